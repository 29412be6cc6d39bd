package persist

import "sync"

// ProgramCache stores compiled expression programs. Keys are opaque strings
// chosen by each evaluator.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryProgramCache is an unbounded, concurrency-safe ProgramCache.
type MemoryProgramCache struct {
	entries sync.Map
}

// NewMemoryProgramCache returns an empty cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{}
}

func (c *MemoryProgramCache) Get(key string) (any, bool) {
	return c.entries.Load(key)
}

func (c *MemoryProgramCache) Set(key string, value any) {
	c.entries.Store(key, value)
}

// Len reports the number of cached programs.
func (c *MemoryProgramCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
