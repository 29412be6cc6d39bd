package store_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	persist "github.com/goliatone/go-persistfile"
	"github.com/goliatone/go-persistfile/pkg/driver"
	"github.com/goliatone/go-persistfile/pkg/store"
)

func setKey(state persist.State, payload any) error {
	kv, ok := payload.(map[string]any)
	if !ok {
		return errors.New("payload must be an object")
	}
	for key, value := range kv {
		state[key] = value
	}
	return nil
}

func TestCommitAppliesMutationAndNotifiesInOrder(t *testing.T) {
	s := store.New(persist.State{"count": 1.0}, store.WithMutation("set", setKey))

	var order []string
	s.Subscribe(func(_ context.Context, m persist.Mutation, state persist.State) error {
		order = append(order, "first:"+m.Type)
		if state["count"] != 2.0 {
			t.Fatalf("listener should see committed state, got %#v", state)
		}
		return nil
	})
	s.Subscribe(func(_ context.Context, m persist.Mutation, _ persist.State) error {
		order = append(order, "second:"+m.Type)
		return nil
	})

	if err := s.Commit(context.Background(), "set", map[string]any{"count": 2.0}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if want := []string{"first:set", "second:set"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	if got := s.State()["count"]; got != 2.0 {
		t.Fatalf("expected count 2, got %#v", got)
	}
}

func TestCommitUnknownMutation(t *testing.T) {
	s := store.New(nil)
	err := s.Commit(context.Background(), "missing", nil)
	if !errors.Is(err, store.ErrUnknownMutation) {
		t.Fatalf("expected ErrUnknownMutation, got %v", err)
	}
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	s := store.New(persist.State{"a": 1.0}, store.WithMutation("set", setKey))
	called := false
	s.Subscribe(func(context.Context, persist.Mutation, persist.State) error {
		called = true
		return nil
	})

	if err := s.Commit(context.Background(), "set", "not-an-object"); err == nil {
		t.Fatalf("expected mutation error")
	}
	if called {
		t.Fatalf("listeners must not run for a failed mutation")
	}
	if !reflect.DeepEqual(s.State(), persist.State{"a": 1.0}) {
		t.Fatalf("state changed after failed mutation: %#v", s.State())
	}
}

func TestListenerErrorsAreJoined(t *testing.T) {
	s := store.New(nil, store.WithMutation("set", setKey))
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	s.Subscribe(func(context.Context, persist.Mutation, persist.State) error { return errA })
	s.Subscribe(func(context.Context, persist.Mutation, persist.State) error { return errB })

	err := s.Commit(context.Background(), "set", map[string]any{"x": true})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both listener errors, got %v", err)
	}
	if s.State()["x"] != true {
		t.Fatalf("state should be committed even when listeners fail")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := store.New(nil, store.WithMutation("set", setKey))
	calls := 0
	unsubscribe := s.Subscribe(func(context.Context, persist.Mutation, persist.State) error {
		calls++
		return nil
	})

	_ = s.Commit(context.Background(), "set", map[string]any{"x": 1.0})
	unsubscribe()
	unsubscribe()
	_ = s.Commit(context.Background(), "set", map[string]any{"x": 2.0})

	if calls != 1 {
		t.Fatalf("expected 1 delivery, got %d", calls)
	}
}

func TestStateReturnsCopy(t *testing.T) {
	s := store.New(persist.State{"nested": map[string]any{"v": 1.0}})
	snapshot := s.State()
	snapshot["nested"].(map[string]any)["v"] = 99.0

	if got := s.State()["nested"].(map[string]any)["v"]; got != 1.0 {
		t.Fatalf("State leaked internal map, got %#v", got)
	}
}

func TestReplaceStateDoesNotNotify(t *testing.T) {
	s := store.New(persist.State{"a": 1.0})
	s.Subscribe(func(context.Context, persist.Mutation, persist.State) error {
		t.Fatalf("ReplaceState must not notify listeners")
		return nil
	})
	s.ReplaceState(persist.State{"b": 2.0})
	if !reflect.DeepEqual(s.State(), persist.State{"b": 2.0}) {
		t.Fatalf("unexpected state %#v", s.State())
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s := store.New(nil)
	if err := s.Register("set", setKey); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register("set", setKey); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := s.Register("", setKey); err == nil {
		t.Fatalf("expected empty name error")
	}
}

func TestUseAttachesPersistencePlugin(t *testing.T) {
	ctx := context.Background()
	drv := &driver.MemoryDriver{}
	if err := drv.Write(ctx, "/data/store.json", []byte(`{"a":2,"b":{"d":4}}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	plugin, err := persist.Plugin(persist.Config{StorageLocation: "/data", Driver: drv})
	if err != nil {
		t.Fatalf("plugin: %v", err)
	}

	s := store.New(persist.State{"a": 1.0, "b": map[string]any{"c": 3.0}}, store.WithMutation("set", setKey))
	if err := s.Use(ctx, plugin); err != nil {
		t.Fatalf("use: %v", err)
	}

	want := persist.State{"a": 2.0, "b": map[string]any{"c": 3.0, "d": 4.0}}
	if !reflect.DeepEqual(s.State(), want) {
		t.Fatalf("expected restored %#v, got %#v", want, s.State())
	}

	if err := s.Commit(ctx, "set", map[string]any{"e": "x"}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	raw, err := drv.Read(ctx, "/data/store.json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(raw); got != `{"a":2,"b":{"c":3,"d":4},"e":"x"}` {
		t.Fatalf("unexpected persisted snapshot %s", got)
	}
}

func TestUseStopsAtFirstPluginError(t *testing.T) {
	boom := errors.New("boom")
	second := false
	s := store.New(nil)
	err := s.Use(context.Background(),
		func(context.Context, persist.Store) error { return boom },
		func(context.Context, persist.Store) error { second = true; return nil },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected plugin error, got %v", err)
	}
	if second {
		t.Fatalf("second plugin should not run")
	}
}
