package driver

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryDriver is an in-memory Driver intended for tests and for embedding
// without disk access. Content lives for the lifetime of the value.
type MemoryDriver struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{records: map[string][]byte{}}
}

func (d *MemoryDriver) Write(_ context.Context, key string, data []byte) error {
	d.mu.Lock()
	if d.records == nil {
		d.records = map[string][]byte{}
	}
	d.records[key] = append([]byte(nil), data...)
	d.mu.Unlock()
	return nil
}

func (d *MemoryDriver) Read(_ context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	data, ok := d.records[key]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

func (d *MemoryDriver) Exists(_ context.Context, key string) (bool, error) {
	d.mu.RLock()
	_, ok := d.records[key]
	d.mu.RUnlock()
	return ok, nil
}

// Keys returns the stored keys sorted alphabetically.
func (d *MemoryDriver) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.records))
	for key := range d.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
