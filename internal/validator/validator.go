package validator

// The validator is the contract guard between the generator and what it
// writes. A table model that breaks the contract is a bug upstream
// (resolver, categorizer or config), so it fails the run loudly instead of
// producing a header that only breaks at C++ compile time.

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/emitter"
)

//go:embed schema.cue
var schemaSource []byte

// ContractError is returned when data does not satisfy a schema definition.
type ContractError struct {
	Definition string
	Details    []string
	Err        error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s contract violated: %v", e.Definition, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// Validator checks data against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a Validator with the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

type contractEntry struct {
	Code int64  `json:"code"`
	Name string `json:"name"`
}

type contractTable struct {
	Ident   string          `json:"ident"`
	Entries []contractEntry `json:"entries"`
}

type contractArtifact struct {
	*emitter.Artifact
	Tables []contractTable `json:"tables"`
}

// ValidateArtifact checks the model a header is rendered from.
func (v *Validator) ValidateArtifact(a *emitter.Artifact) error {
	shape := *a
	if shape.Includes == nil {
		shape.Includes = []string{}
	}
	shape.Accessors = make([]emitter.Accessor, 0, len(a.Accessors))
	for _, acc := range a.Accessors {
		if acc.Chain == nil {
			acc.Chain = []string{}
		}
		shape.Accessors = append(shape.Accessors, acc)
	}
	model := contractArtifact{Artifact: &shape, Tables: make([]contractTable, 0, len(a.Tables))}
	for _, t := range a.Tables {
		ct := contractTable{Ident: t.Ident, Entries: make([]contractEntry, 0, len(t.Codes))}
		for _, c := range t.Codes.Codes() {
			ct.Entries = append(ct.Entries, contractEntry{Code: c, Name: t.Codes[c]})
		}
		model.Tables = append(model.Tables, ct)
	}
	data, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("marshaling artifact to JSON: %w", err)
	}
	return v.validateJSON(data, "#Artifact")
}

// ValidateConfigJSON checks a config document already converted to JSON.
func (v *Validator) ValidateConfigJSON(data []byte) error {
	return v.validateJSON(data, "#Config")
}

func (v *Validator) validateJSON(jsonBytes []byte, definition string) error {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling JSON as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath(definition))
	if def.Err() != nil {
		return fmt.Errorf("looking up %s definition: %w", definition, def.Err())
	}

	unified := def.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var details []string
		for _, e := range cueerrors.Errors(err) {
			details = append(details, e.Error())
		}
		return &ContractError{Definition: definition, Details: details, Err: err}
	}
	return nil
}
