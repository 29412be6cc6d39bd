package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// FileOption configures a FileDriver.
type FileOption func(*FileDriver)

// WithFileMode sets the permission bits used when creating snapshot files.
func WithFileMode(mode fs.FileMode) FileOption {
	return func(d *FileDriver) {
		d.fileMode = mode
	}
}

// WithCreateDirs makes Write create missing parent directories.
func WithCreateDirs(enabled bool) FileOption {
	return func(d *FileDriver) {
		d.createDirs = enabled
	}
}

// FileDriver stores each key as a file on the local filesystem. Keys are file
// paths.
type FileDriver struct {
	fileMode   fs.FileMode
	createDirs bool
}

// NewFileDriver returns a FileDriver. By default missing directories are not
// created, so an unwritable storage location surfaces on the first write.
func NewFileDriver(opts ...FileOption) *FileDriver {
	d := &FileDriver{fileMode: defaultFileMode}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *FileDriver) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.createDirs {
		if err := os.MkdirAll(filepath.Dir(key), defaultDirMode); err != nil {
			return fmt.Errorf("driver: create directory for %q: %w", key, err)
		}
	}
	if err := os.WriteFile(key, data, d.fileMode); err != nil {
		return fmt.Errorf("driver: write %q: %w", key, err)
	}
	return nil
}

func (d *FileDriver) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return nil, fmt.Errorf("driver: read %q: %w", key, err)
	}
	return data, nil
}

func (d *FileDriver) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("driver: stat %q: %w", key, err)
	}
	return !info.IsDir(), nil
}
