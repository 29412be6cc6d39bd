package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when a snapshot decodes to something other than a
// JSON object.
var ErrNotObject = errors.New("decode: snapshot is not an object")

// Parser replaces the default JSON decoding when provided.
type Parser func(data []byte) (any, error)

// PostHook lets callers adjust or validate the decoded tree.
type PostHook func(map[string]any) (map[string]any, error)

// Option configures a Decoder instance.
type Option func(*Decoder)

// Decoder turns stored snapshot bytes into a state tree.
type Decoder struct {
	parser       Parser
	postHooks    []PostHook
	configureDec []func(*json.Decoder)
}

// WithParser replaces the default JSON decoding path.
func WithParser(parser Parser) Option {
	return func(d *Decoder) {
		d.parser = parser
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook(hook PostHook) Option {
	return func(d *Decoder) {
		if hook != nil {
			d.postHooks = append(d.postHooks, hook)
		}
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber() Option {
	return func(d *Decoder) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts data into a state tree applying the configured hooks.
func (d *Decoder) Decode(data []byte) (map[string]any, error) {
	var (
		out map[string]any
		err error
	)
	if d.parser != nil {
		out, err = d.decodeCustom(data)
	} else {
		out, err = d.decodeJSON(data)
	}
	if err != nil {
		return nil, err
	}

	for _, hook := range d.postHooks {
		next, err := hook(out)
		if err != nil {
			return nil, fmt.Errorf("decode: post-hook failed: %w", err)
		}
		if next != nil {
			out = next
		}
	}
	return out, nil
}

func (d *Decoder) decodeJSON(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	for _, configure := range d.configureDec {
		configure(decoder)
	}
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("decode: trailing data after snapshot")
	}
	return asObject(value)
}

func (d *Decoder) decodeCustom(data []byte) (map[string]any, error) {
	value, err := d.parser(data)
	if err != nil {
		return nil, fmt.Errorf("decode: custom parser failed: %w", err)
	}
	if out, ok := value.(map[string]any); ok {
		if out == nil {
			return nil, ErrNotObject
		}
		return out, nil
	}
	// Parsers may hand back typed values; normalise them through JSON.
	buffer, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("decode: normalise parser result: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(buffer, &normalized); err != nil {
		return nil, fmt.Errorf("decode: normalise parser result: %w", err)
	}
	return asObject(normalized)
}

func asObject(value any) (map[string]any, error) {
	out, ok := value.(map[string]any)
	if !ok || out == nil {
		return nil, fmt.Errorf("%w (got %T)", ErrNotObject, value)
	}
	return out, nil
}
