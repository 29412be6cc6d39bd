package layering

import (
	"fmt"
	"reflect"
	"strings"
)

// ArrayMode selects how two arrays combine when both sides of a merge hold one
// under the same key.
type ArrayMode string

const (
	// ArrayReplace keeps the overlay array and drops the base array.
	ArrayReplace ArrayMode = "replace"
	// ArrayConcat appends the overlay elements after the base elements.
	ArrayConcat ArrayMode = "concat"
)

// ParseArrayMode converts a textual mode into an ArrayMode. An empty value
// resolves to ArrayReplace.
func ParseArrayMode(value string) (ArrayMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ArrayReplace):
		return ArrayReplace, nil
	case string(ArrayConcat):
		return ArrayConcat, nil
	default:
		return "", fmt.Errorf("layering: unknown array mode %q", value)
	}
}

// Option configures a merge.
type Option func(*mergeConfig)

type mergeConfig struct {
	arrays ArrayMode
}

// WithArrayMode sets the array strategy. Unknown modes fall back to ArrayReplace.
func WithArrayMode(mode ArrayMode) Option {
	return func(cfg *mergeConfig) {
		if mode == ArrayConcat {
			cfg.arrays = ArrayConcat
			return
		}
		cfg.arrays = ArrayReplace
	}
}

func applyOptions(opts []Option) mergeConfig {
	cfg := mergeConfig{arrays: ArrayReplace}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Merge combines two JSON-shaped trees into a new tree. Objects are merged key
// by key with overlay values winning on conflicts; keys present on only one
// side are kept. Neither input is mutated.
func Merge(base, overlay any, opts ...Option) any {
	cfg := applyOptions(opts)
	return mergeValue(base, overlay, cfg)
}

// MergeState is Merge specialised to object roots. A nil overlay returns a
// copy of base.
func MergeState(base, overlay map[string]any, opts ...Option) map[string]any {
	cfg := applyOptions(opts)
	out := mergeObject(base, overlay, cfg)
	if out == nil {
		return map[string]any{}
	}
	return out
}

// MergeLayers composes snapshots ordered from strongest to weakest, returning
// a new tree that keeps values from stronger layers while filling any missing
// keys from weaker ones.
func MergeLayers(layers ...map[string]any) map[string]any {
	if len(layers) == 0 {
		return map[string]any{}
	}
	cfg := applyOptions(nil)
	merged := Clone(layers[len(layers)-1]).(map[string]any)
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeObject(merged, layers[i], cfg)
	}
	if merged == nil {
		return map[string]any{}
	}
	return merged
}

func mergeValue(base, overlay any, cfg mergeConfig) any {
	switch ov := overlay.(type) {
	case map[string]any:
		if bv, ok := base.(map[string]any); ok {
			return mergeObject(bv, ov, cfg)
		}
		return Clone(ov)
	case []any:
		if bv, ok := base.([]any); ok && cfg.arrays == ArrayConcat {
			out := make([]any, 0, len(bv)+len(ov))
			for _, item := range bv {
				out = append(out, Clone(item))
			}
			for _, item := range ov {
				out = append(out, Clone(item))
			}
			return out
		}
		return Clone(ov)
	default:
		return Clone(overlay)
	}
}

func mergeObject(base, overlay map[string]any, cfg mergeConfig) map[string]any {
	if base == nil && overlay == nil {
		return nil
	}
	out := make(map[string]any, len(base)+len(overlay))
	for key, value := range base {
		out[key] = Clone(value)
	}
	for key, value := range overlay {
		existing, ok := out[key]
		if ok {
			out[key] = mergeValue(existing, value, cfg)
			continue
		}
		out[key] = Clone(value)
	}
	return out
}

// Clone returns a deep copy of value. JSON trees are copied directly; other Go
// values are copied through reflection.
func Clone(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		if v == nil {
			return map[string]any(nil)
		}
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Clone(item)
		}
		return out
	case []any:
		if v == nil {
			return []any(nil)
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Clone(item)
		}
		return out
	case string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v
	}
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		return nil
	}
	return cloned.Interface()
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}
