package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"sigs.k8s.io/yaml"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/validator"
)

// Error codes carried by *Error.
const (
	ErrCodeNotFound = "config_not_found"
	ErrCodeInvalid  = "config_invalid"
	ErrCodeFormat   = "config_unsupported_format"
)

// Error is a structured config failure.
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s: config file %s not found", e.Code, e.Path)
	case ErrCodeFormat:
		return fmt.Sprintf("%s: config file %s has an unknown extension", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: config file %s: %v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: config file %s", e.Code, e.Path)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code extracts the error code from err, or "" when err is not a *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Config is the top-level configuration for the generators
type Config struct {
	// Errors drives gen-error-names
	Errors Target `json:"errors,omitempty"`

	// Properties drives gen-prop-names
	Properties Target `json:"properties,omitempty"`

	// Lint contains lint rule configuration
	Lint LintConfig `json:"lint,omitempty"`

	// Timing is a JSONL path for per-stage timing events
	Timing string `json:"timing,omitempty"`
}

// Target describes one generated header.
type Target struct {
	// Enum names the enum to extract; empty means every anonymous enum
	Enum string `json:"enum,omitempty"`

	// Locator is "lexer" or "syntax"
	Locator string `json:"locator,omitempty"`

	Banner    string   `json:"banner,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
	CodeType  string   `json:"codeType,omitempty"`
	Includes  []string `json:"includes,omitempty"`

	// Families splits entries by name pattern; empty means one table
	// holding every resolved entry
	Families []Family `json:"families,omitempty"`

	Tables    []TableSpec    `json:"tables,omitempty"`
	Accessors []AccessorSpec `json:"accessors,omitempty"`

	// SourceMacro, when set, records the header path as a #define
	SourceMacro string `json:"sourceMacro,omitempty"`

	// CountMacro, when set, records the total row count as a #define
	CountMacro string `json:"countMacro,omitempty"`
}

// Family is a tag plus a glob over entry names.
type Family struct {
	Tag     string `json:"tag"`
	Pattern string `json:"pattern"`
}

// TableSpec binds a table identifier to a family tag.
type TableSpec struct {
	Ident  string `json:"ident"`
	Family string `json:"family,omitempty"`
}

// AccessorSpec is a lookup function over an ordered chain of tables.
type AccessorSpec struct {
	Func    string   `json:"func"`
	Chain   []string `json:"chain"`
	Default string   `json:"default"`
}

// LintConfig contains lint configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty"`
}

// DefaultErrorsTarget reproduces the layout of the CrError.h name tables.
func DefaultErrorsTarget() Target {
	return Target{
		Locator:   "lexer",
		Banner:    "Auto-generated from Sony CRSDK CrError.h. Do not edit.",
		Namespace: "crsdk_err",
		CodeType:  "CrInt32u",
		Includes:  []string{"<unordered_map>", `"CRSDK/CrTypes.h"`},
		Families: []Family{
			{Tag: "error", Pattern: "CrError_*"},
			{Tag: "warning", Pattern: "CrWarning_*"},
			{Tag: "notify", Pattern: "CrNotify_*"},
		},
		Tables: []TableSpec{
			{Ident: "kErrorNames", Family: "error"},
			{Ident: "kWarningNames", Family: "warning"},
			{Ident: "kNotifyNames", Family: "notify"},
		},
		Accessors: []AccessorSpec{
			{Func: "error_to_name", Chain: []string{"kErrorNames"}, Default: "Error"},
			{Func: "warning_to_name", Chain: []string{"kWarningNames", "kNotifyNames"}, Default: "Warning"},
		},
	}
}

// DefaultPropertiesTarget reproduces the layout of the CrDeviceProperty.h
// name table.
func DefaultPropertiesTarget() Target {
	return Target{
		Enum:        "CrDevicePropertyCode",
		Locator:     "lexer",
		Banner:      "Auto-generated from Sony CRSDK CrDeviceProperty.h. Do not edit.",
		Namespace:   "crsdk_util",
		CodeType:    "CrInt32u",
		Includes:    []string{"<unordered_map>", `"CRSDK/CrTypes.h"`},
		Tables:      []TableSpec{{Ident: "kPropNames"}},
		Accessors:   []AccessorSpec{{Func: "prop_code_to_name", Chain: []string{"kPropNames"}, Default: "DeviceProperty"}},
		SourceMacro: "PROP_NAMES_SOURCE",
		CountMacro:  "PROP_NAMES_COUNT",
	}
}

// DefaultConfig returns the configuration used when no file is found
func DefaultConfig() *Config {
	return &Config{
		Errors:     DefaultErrorsTarget(),
		Properties: DefaultPropertiesTarget(),
		Lint: LintConfig{
			Rules: map[string]string{},
		},
	}
}

// searchNames are tried, in order, in the working directory.
var searchNames = []string{"enumgen.json", "enumgen.yaml", "enumgen.yml", "enumgen.toml", ".enumgen.json"}

// Load finds and loads the configuration file.
// Search order:
//  1. explicit (when non-empty; it must exist)
//  2. ./enumgen.json, ./enumgen.yaml, ./enumgen.yml, ./enumgen.toml
//  3. ./.enumgen.json
//  4. ~/.config/enumgen/config.json
//
// Returns DefaultConfig if no config file is found. The second return
// value is the file that was loaded, or "".
func Load(explicit string) (*Config, string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, "", &Error{Code: ErrCodeNotFound, Path: explicit, Err: err}
		}
		cfg, err := LoadFile(explicit)
		return cfg, explicit, err
	}

	cwd, _ := os.Getwd()
	var searchPaths []string
	for _, name := range searchNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "enumgen", "config.json"))
	}

	for _, path := range searchPaths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			cfg, err := LoadFile(path)
			return cfg, path, err
		}
	}

	return DefaultConfig(), "", nil
}

// LoadFile loads configuration from a specific file. The format follows the
// extension: .json, .yaml/.yml or .toml.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: fmt.Errorf("reading config file: %w", err)}
	}

	jsonData, err := toJSON(path, data)
	if err != nil {
		return nil, err
	}

	v, err := validator.New()
	if err != nil {
		return nil, err
	}
	if err := v.ValidateConfigJSON(jsonData); err != nil {
		return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: fmt.Errorf("parsing config file: %w", err)}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// toJSON converts any supported format to JSON so a single schema and a
// single set of struct tags cover all of them.
func toJSON(path string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return data, nil
	case ".yaml", ".yml":
		out, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: fmt.Errorf("parsing yaml: %w", err)}
		}
		return out, nil
	case ".toml":
		var doc map[string]interface{}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: fmt.Errorf("parsing toml: %w", err)}
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
		}
		return out, nil
	default:
		return nil, &Error{Code: ErrCodeFormat, Path: path}
	}
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	c.Errors.fill(DefaultErrorsTarget())
	c.Properties.fill(DefaultPropertiesTarget())
	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}
}

// fill copies every unset field from def. Families, tables and accessors
// travel together: a target that sets any of them owns the layout.
func (t *Target) fill(def Target) {
	if t.Enum == "" {
		t.Enum = def.Enum
	}
	if t.Locator == "" {
		t.Locator = def.Locator
	}
	if t.Banner == "" {
		t.Banner = def.Banner
	}
	if t.Namespace == "" {
		t.Namespace = def.Namespace
	}
	if t.CodeType == "" {
		t.CodeType = def.CodeType
	}
	if t.Includes == nil {
		t.Includes = def.Includes
	}
	if t.Families == nil && t.Tables == nil && t.Accessors == nil {
		t.Families = def.Families
		t.Tables = def.Tables
		t.Accessors = def.Accessors
	}
	if t.SourceMacro == "" {
		t.SourceMacro = def.SourceMacro
	}
	if t.CountMacro == "" {
		t.CountMacro = def.CountMacro
	}
}

// Check reports layout mistakes the schema cannot express: tables bound to
// unknown families, accessors over unknown tables.
func (t Target) Check() error {
	families := map[string]bool{}
	for _, f := range t.Families {
		if families[f.Tag] {
			return fmt.Errorf("family %s declared twice", f.Tag)
		}
		families[f.Tag] = true
	}
	tables := map[string]bool{}
	for _, ts := range t.Tables {
		if tables[ts.Ident] {
			return fmt.Errorf("table %s declared twice", ts.Ident)
		}
		tables[ts.Ident] = true
		if len(t.Families) == 0 && ts.Family != "" {
			return fmt.Errorf("table %s names family %s but the target has no families", ts.Ident, ts.Family)
		}
		if len(t.Families) > 0 && !families[ts.Family] {
			return fmt.Errorf("table %s names unknown family %q", ts.Ident, ts.Family)
		}
	}
	if len(t.Families) == 0 && len(t.Tables) != 1 {
		return fmt.Errorf("a target without families needs exactly one table, got %d", len(t.Tables))
	}
	for _, acc := range t.Accessors {
		for _, ident := range acc.Chain {
			if !tables[ident] {
				return fmt.Errorf("accessor %s references unknown table %s", acc.Func, ident)
			}
		}
	}
	return nil
}
