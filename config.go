package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-persistfile/layering"
	"github.com/goliatone/go-persistfile/pkg/driver"
)

// DefaultFileName is the snapshot file name used when Config.FileName is empty.
const DefaultFileName = "store.json"

// Reducer engines accepted by Config.ReducerEngine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Config describes where and how a store is persisted. Function-valued fields
// cannot be loaded from a config file; ReducerExpression is their declarative
// counterpart.
type Config struct {
	// StorageLocation is the directory (or driver namespace) holding snapshots.
	StorageLocation string `json:"storage_location" yaml:"storage_location" toml:"storage_location"`
	// FileName defaults to DefaultFileName.
	FileName string `json:"file_name,omitempty" yaml:"file_name,omitempty" toml:"file_name,omitempty"`
	// AllowedOperations gates saves by mutation name. Empty allows every mutation.
	AllowedOperations []string `json:"allowed_operations,omitempty" yaml:"allowed_operations,omitempty" toml:"allowed_operations,omitempty"`

	DailyBackupEnabled  bool `json:"daily_backup,omitempty" yaml:"daily_backup,omitempty" toml:"daily_backup,omitempty"`
	HourlyBackupEnabled bool `json:"hourly_backup,omitempty" yaml:"hourly_backup,omitempty" toml:"hourly_backup,omitempty"`

	// ReducerExpression is compiled into the Reducer when Reducer is nil.
	ReducerExpression string `json:"reducer_expression,omitempty" yaml:"reducer_expression,omitempty" toml:"reducer_expression,omitempty"`
	// ReducerEngine is one of EngineExpr (default), EngineCEL or EngineJS.
	ReducerEngine string `json:"reducer_engine,omitempty" yaml:"reducer_engine,omitempty" toml:"reducer_engine,omitempty"`

	// ArrayMerge controls how arrays combine on restore. Defaults to replace.
	ArrayMerge layering.ArrayMode `json:"array_merge,omitempty" yaml:"array_merge,omitempty" toml:"array_merge,omitempty"`

	Reducer      Reducer       `json:"-" yaml:"-" toml:"-"`
	CustomParser Parser        `json:"-" yaml:"-" toml:"-"`
	Driver       driver.Driver `json:"-" yaml:"-" toml:"-"`
}

// withDefaults fills every unset field with its default value.
func (c Config) withDefaults() Config {
	out := c
	out.StorageLocation = strings.TrimSpace(c.StorageLocation)
	if strings.TrimSpace(out.FileName) == "" {
		out.FileName = DefaultFileName
	}
	if out.Driver == nil {
		out.Driver = driver.NewFileDriver()
	}
	if out.ReducerEngine == "" {
		out.ReducerEngine = EngineExpr
	}
	if out.ArrayMerge == "" {
		out.ArrayMerge = layering.ArrayReplace
	}
	if len(c.AllowedOperations) > 0 {
		out.AllowedOperations = append([]string(nil), c.AllowedOperations...)
	}
	return out
}

func (c Config) validate() error {
	if c.StorageLocation == "" {
		return invalidConfig("storage location is required")
	}
	if strings.ContainsAny(c.FileName, `/\`) {
		return invalidConfig("file name %q must not contain path separators", c.FileName)
	}
	if _, err := layering.ParseArrayMode(string(c.ArrayMerge)); err != nil {
		return invalidConfig("%v", err)
	}
	switch c.ReducerEngine {
	case EngineExpr, EngineCEL, EngineJS:
	default:
		return invalidConfig("unknown reducer engine %q", c.ReducerEngine)
	}
	return nil
}

// LoadConfigFile reads a Config from a YAML, TOML or JSON file, selected by
// extension.
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("persist: read config %q: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("persist: decode yaml config %q: %w", path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("persist: decode toml config %q: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("persist: decode json config %q: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("persist: unsupported config extension %q", ext)
	}
	return cfg, nil
}
