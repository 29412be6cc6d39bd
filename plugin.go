package persist

import (
	"context"
	"errors"
)

// Plugin returns the subscription function for p. When invoked with a store
// it restores the saved snapshot, then saves after every committed mutation
// that passes the allow-list. Save errors are returned to the committer.
func (p *Persister) Plugin() PluginFunc {
	return func(ctx context.Context, store Store) error {
		if store == nil {
			return errors.New("persist: store is required")
		}
		if _, err := p.Restore(ctx, store); err != nil {
			return err
		}
		store.Subscribe(func(ctx context.Context, mutation Mutation, state State) error {
			_, err := p.Save(ctx, mutation.Type, state)
			return err
		})
		return nil
	}
}

// Plugin builds a Persister from cfg and returns its subscription function.
func Plugin(cfg Config, opts ...Option) (PluginFunc, error) {
	p, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return p.Plugin(), nil
}
