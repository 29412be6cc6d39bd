package driver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-persistfile/pkg/driver"
)

func driverFactories(t *testing.T) map[string]func(t *testing.T) (driver.Driver, string) {
	t.Helper()
	return map[string]func(t *testing.T) (driver.Driver, string){
		"file": func(t *testing.T) (driver.Driver, string) {
			return driver.NewFileDriver(), t.TempDir()
		},
		"memory": func(t *testing.T) (driver.Driver, string) {
			return driver.NewMemoryDriver(), "/virtual"
		},
		"sqlite": func(t *testing.T) (driver.Driver, string) {
			d, err := driver.OpenSQLite(context.Background(), ":memory:")
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { _ = d.Close() })
			return d, "/virtual"
		},
	}
}

func TestDriverContract(t *testing.T) {
	for name, factory := range driverFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			d, dir := factory(t)
			key := filepath.Join(dir, "store.json")

			ok, err := d.Exists(ctx, key)
			if err != nil {
				t.Fatalf("exists: %v", err)
			}
			if ok {
				t.Fatalf("expected key to be absent before write")
			}

			if _, err := d.Read(ctx, key); !errors.Is(err, driver.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := d.Write(ctx, key, []byte(`{"a":1}`)); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := d.Write(ctx, key, []byte(`{"b":2}`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}

			ok, err = d.Exists(ctx, key)
			if err != nil || !ok {
				t.Fatalf("expected key to exist, ok=%t err=%v", ok, err)
			}

			got, err := d.Read(ctx, key)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != `{"b":2}` {
				t.Fatalf("expected overwritten content, got %q", got)
			}
		})
	}
}

func TestFileDriverMissingDirectorySurfacesOnWrite(t *testing.T) {
	ctx := context.Background()
	key := filepath.Join(t.TempDir(), "missing", "store.json")

	if err := driver.NewFileDriver().Write(ctx, key, []byte("{}")); err == nil {
		t.Fatalf("expected write into missing directory to fail")
	}

	if err := driver.NewFileDriver(driver.WithCreateDirs(true)).Write(ctx, key, []byte("{}")); err != nil {
		t.Fatalf("expected directory to be created: %v", err)
	}
	if _, err := os.Stat(key); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func TestFileDriverExistsIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	ok, err := driver.NewFileDriver().Exists(context.Background(), dir)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatalf("expected directory not to count as a snapshot")
	}
}

func TestMemoryDriverCopiesData(t *testing.T) {
	ctx := context.Background()
	d := driver.NewMemoryDriver()
	payload := []byte(`{"a":1}`)
	if err := d.Write(ctx, "k", payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	payload[2] = 'z'

	got, _ := d.Read(ctx, "k")
	if string(got) != `{"a":1}` {
		t.Fatalf("expected stored bytes detached from caller, got %q", got)
	}

	var zero driver.MemoryDriver
	if err := zero.Write(ctx, "x", nil); err != nil {
		t.Fatalf("zero value write: %v", err)
	}
	if keys := zero.Keys(); len(keys) != 1 || keys[0] != "x" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
