package persist

import (
	"path/filepath"
	"time"
)

// BackupMode selects a time-bucketed backup copy written alongside the
// primary snapshot.
type BackupMode int

const (
	// BackupDaily writes <location>/<YYYYMMDD>-<file>.
	BackupDaily BackupMode = iota + 1
	// BackupHourly writes <location>/<YYYYMMDDHH>00-<file>.
	BackupHourly
)

func (m BackupMode) String() string {
	switch m {
	case BackupDaily:
		return "daily"
	case BackupHourly:
		return "hourly"
	default:
		return "unknown"
	}
}

// BackupFileName returns the backup file name for mode at the given time.
func BackupFileName(mode BackupMode, fileName string, at time.Time) string {
	switch mode {
	case BackupDaily:
		return at.Format("20060102") + "-" + fileName
	case BackupHourly:
		return at.Format("2006010215") + "00-" + fileName
	default:
		return ""
	}
}

func (c Config) backupModes() []BackupMode {
	modes := make([]BackupMode, 0, 2)
	if c.DailyBackupEnabled {
		modes = append(modes, BackupDaily)
	}
	if c.HourlyBackupEnabled {
		modes = append(modes, BackupHourly)
	}
	return modes
}

// BackupPaths returns the backup paths a save at time at would write, in
// write order (daily before hourly).
func (p *Persister) BackupPaths(at time.Time) []string {
	modes := p.cfg.backupModes()
	if len(modes) == 0 {
		return nil
	}
	paths := make([]string, 0, len(modes))
	for _, mode := range modes {
		paths = append(paths, filepath.Join(p.cfg.StorageLocation, BackupFileName(mode, p.cfg.FileName, at)))
	}
	return paths
}
