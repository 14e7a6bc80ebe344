package validator

import (
	"errors"
	"testing"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/emitter"
	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/tables"
)

func validArtifact() *emitter.Artifact {
	return &emitter.Artifact{
		Banner:      "Auto-generated from Sony CRSDK CrError.h. Do not edit.",
		Fingerprint: "xxh64:0123456789abcdef",
		Includes:    []string{"<unordered_map>", `"CRSDK/CrTypes.h"`},
		Namespace:   "crsdk_err",
		CodeType:    "CrInt32u",
		Tables: []emitter.Table{
			{Ident: "kErrorNames", Codes: tables.CodeMap{0x8000: "CrError_Generic"}},
			{Ident: "kNotifyNames", Codes: tables.CodeMap{}},
		},
		Accessors: []emitter.Accessor{
			{Func: "error_to_name", Chain: []string{"kErrorNames"}, Default: "Error"},
		},
	}
}

// TestArtifactContract makes sure a broken table model is caught before
// anything is rendered.
func TestArtifactContract(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(a *emitter.Artifact)
		wantErr bool
	}{
		{name: "valid_artifact", mutate: func(a *emitter.Artifact) {}},
		{name: "no_fingerprint", mutate: func(a *emitter.Artifact) { a.Fingerprint = "" }},
		{name: "nil_slices", mutate: func(a *emitter.Artifact) { a.Includes = nil; a.Accessors = []emitter.Accessor{{Func: "f", Default: "x"}} }},
		{
			name:    "entry_name_not_identifier",
			mutate:  func(a *emitter.Artifact) { a.Tables[0].Codes[0x8001] = "Bad Name" },
			wantErr: true,
		},
		{
			name:    "table_ident_not_identifier",
			mutate:  func(a *emitter.Artifact) { a.Tables[1].Ident = "9lives" },
			wantErr: true,
		},
		{
			name:    "include_without_delimiters",
			mutate:  func(a *emitter.Artifact) { a.Includes = []string{"unordered_map"} },
			wantErr: true,
		},
		{
			name:    "multiline_banner",
			mutate:  func(a *emitter.Artifact) { a.Banner = "one\ntwo" },
			wantErr: true,
		},
		{
			name:    "bad_fingerprint",
			mutate:  func(a *emitter.Artifact) { a.Fingerprint = "sha256:abc" },
			wantErr: true,
		},
		{
			name:    "qualified_namespace",
			mutate:  func(a *emitter.Artifact) { a.Namespace = "crsdk::err" },
			wantErr: false,
		},
		{
			name:    "empty_define_value",
			mutate:  func(a *emitter.Artifact) { a.Defines = []emitter.Define{{Name: "COUNT", Value: ""}} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArtifact()
			tt.mutate(a)
			err := v.ValidateArtifact(a)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArtifact() error = %v, wantErr %v", err, tt.wantErr)
			}
			var ce *ContractError
			if err != nil && !errors.As(err, &ce) {
				t.Errorf("expected ContractError, got %T", err)
			}
		})
	}
}

func TestConfigContract(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"empty", `{}`, false},
		{"lint_rules", `{"lint":{"rules":{"shadowed_code":"off","unresolved_alias":"error"}}}`, false},
		{"target", `{"errors":{"namespace":"crsdk_err","families":[{"tag":"error","pattern":"CrError_*"}],"tables":[{"ident":"kErrorNames","family":"error"}]}}`, false},
		{"bad_severity", `{"lint":{"rules":{"shadowed_code":"fatal"}}}`, true},
		{"unknown_field", `{"standard":"2008"}`, true},
		{"bad_locator", `{"properties":{"locator":"clang"}}`, true},
		{"empty_family_pattern", `{"errors":{"families":[{"tag":"error","pattern":""}]}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateConfigJSON([]byte(tt.json))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfigJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContractErrorDetails(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	a := validArtifact()
	a.Tables[0].Codes[1] = "not valid"
	err = v.ValidateArtifact(a)
	ce, ok := err.(*ContractError)
	if !ok {
		t.Fatalf("expected *ContractError, got %T (%v)", err, err)
	}
	if ce.Definition != "#Artifact" || len(ce.Details) == 0 {
		t.Fatalf("unexpected contract error: %+v", ce)
	}
}
