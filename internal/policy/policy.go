package policy

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/rego"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/resolver"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/tables"
)

//go:embed enumgen.rego
var builtinPolicy string

// Rule names evaluated by the built-in policy.
const (
	RuleUnresolvedAlias  = "unresolved_alias"
	RuleShadowedCode     = "shadowed_code"
	RuleDuplicateName    = "duplicate_name"
	RuleUnclassifiedName = "unclassified_name"
)

// Severities understood by the engine.
const (
	SeverityOff     = "off"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Engine evaluates OPA policies against resolved enum entries
type Engine struct {
	queries map[string]rego.PreparedEvalQuery
}

// Violation represents a policy violation
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Name     string `json:"name"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation
	Summary    Summary
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// Input is the data structure passed to OPA
type Input struct {
	Target  string            `json:"target"`
	Header  string            `json:"header"`
	Entries []resolver.Entry  `json:"entries"`
	Dropped []tables.Dropped  `json:"dropped"`
	Rules   map[string]string `json:"rules"`
}

// FailedError is returned when a rule configured with severity "error"
// fired.
type FailedError struct {
	Violations []Violation
}

func (e *FailedError) Error() string {
	names := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		names = append(names, fmt.Sprintf("%s (%s, line %d)", v.Rule, v.Name, v.Line))
	}
	return fmt.Sprintf("lint failed with %d error(s): %s", len(e.Violations), strings.Join(names, "; "))
}

// Err returns a *FailedError when any violation has severity "error".
func (r *Result) Err() error {
	var failed []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			failed = append(failed, v)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &FailedError{Violations: failed}
}

// New creates a policy engine from the built-in policy plus every .rego
// file in policyDir. Extra files extend package enumgen.lint by adding
// rules to the violations set. An empty policyDir loads only the built-in
// policy.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	engine := &Engine{
		queries: make(map[string]rego.PreparedEvalQuery),
	}

	modules := []func(*rego.Rego){rego.Module("enumgen.rego", builtinPolicy)}
	if policyDir != "" {
		files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("finding policy files: %w", err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no policy files found in %s", policyDir)
		}
		sort.Strings(files)
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f, err)
			}
			modules = append(modules, rego.Module(f, string(content)))
		}
	}

	for name, query := range map[string]string{
		"violations": "data.enumgen.lint.all_violations",
		"summary":    "data.enumgen.lint.summary",
	} {
		opts := append(append([]func(*rego.Rego){}, modules...), rego.Query(query))
		prepared, err := rego.New(opts...).PrepareForEval(ctx)
		if err != nil {
			return nil, fmt.Errorf("preparing %s query: %w", name, err)
		}
		engine.queries[name] = prepared
	}

	return engine, nil
}

// Evaluate runs the policies against the input data
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	if input.Rules == nil {
		input.Rules = map[string]string{}
	}
	if input.Entries == nil {
		input.Entries = []resolver.Entry{}
	}
	if input.Dropped == nil {
		input.Dropped = []tables.Dropped{}
	}

	// Convert input to map for OPA
	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	result := &Result{}

	rs, err := e.queries["violations"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}

	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		violations, ok := rs[0].Expressions[0].Value.([]interface{})
		if ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					Name:     getString(vmap, "name"),
					Line:     getInt(vmap, "line"),
					Message:  getString(vmap, "message"),
				})
			}
		}
	}
	sort.SliceStable(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Name < b.Name
	})

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}

	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		smap, ok := rs[0].Expressions[0].Value.(map[string]interface{})
		if ok {
			result.Summary = Summary{
				TotalViolations: getInt(smap, "total_violations"),
				Errors:          getInt(smap, "errors"),
				Warnings:        getInt(smap, "warnings"),
				Info:            getInt(smap, "info"),
			}
		}
	}

	return result, nil
}

// Helper functions
func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var result map[string]interface{}
	err = dec.Decode(&result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
