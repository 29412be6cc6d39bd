package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	persist "github.com/goliatone/go-persistfile"
	"github.com/goliatone/go-persistfile/pkg/driver"
	"github.com/goliatone/go-persistfile/pkg/logging"
)

// Driver names accepted by --driver.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Dir        string
	File       string
	Driver     string
	DSN        string
	CreateDirs bool
	Verbose    bool
}

// NewRootCommand creates the persistfile command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "persistfile",
		Short: "Inspect and edit persisted store snapshots",
		Long: `Inspect, restore and write the JSON snapshots a store persists.

Settings come from --config (YAML, TOML or JSON) and are overridden by flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.Driver {
			case DriverFile, DriverSQLite:
			default:
				return fmt.Errorf("invalid driver %q: must be one of %q or %q", opts.Driver, DriverFile, DriverSQLite)
			}
			if opts.Driver == DriverSQLite && opts.DSN == "" {
				return fmt.Errorf("--dsn is required with the sqlite driver")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().StringVarP(&opts.Dir, "dir", "d", "", "storage location (overrides config)")
	cmd.PersistentFlags().StringVarP(&opts.File, "file", "f", "", "snapshot file name (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", DriverFile, "storage driver (file|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "sqlite data source name")
	cmd.PersistentFlags().BoolVar(&opts.CreateDirs, "create-dirs", false, "create missing directories on write (file driver)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewPathsCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))

	return cmd
}

// session bundles a Persister with the resources it holds open.
type session struct {
	persister *persist.Persister
	closers   []io.Closer
}

func (s *session) Close() error {
	var first error
	for _, closer := range s.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openSession resolves configuration from file and flags and builds a
// Persister logging to the command's stderr.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	var cfg persist.Config
	if opts.ConfigPath != "" {
		loaded, err := persist.LoadConfigFile(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.Dir != "" {
		cfg.StorageLocation = opts.Dir
	}
	if opts.File != "" {
		cfg.FileName = opts.File
	}

	s := &session{}
	switch opts.Driver {
	case DriverSQLite:
		drv, err := driver.OpenSQLite(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		cfg.Driver = drv
		s.closers = append(s.closers, drv)
	default:
		cfg.Driver = driver.NewFileDriver(driver.WithCreateDirs(opts.CreateDirs))
	}

	logger := logging.NewConsole(cmd.ErrOrStderr(), opts.Verbose)
	p, err := persist.New(cfg, persist.WithLogger(logging.Zerolog(logger)))
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.persister = p
	return s, nil
}

func readStateFile(path string) (persist.State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	var state persist.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	if state == nil {
		return nil, fmt.Errorf("decode %q: expected a JSON object", path)
	}
	return state, nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
