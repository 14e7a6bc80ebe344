package resolver

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/extractor"
)

func block(body string) extractor.Block {
	return extractor.Block{Body: body, Offset: 100, Line: 10}
}

type nv struct {
	name  string
	value Value
}

func pairs(entries []Entry) []nv {
	out := make([]nv, 0, len(entries))
	for _, e := range entries {
		out = append(out, nv{e.Name, e.Value})
	}
	return out
}

func TestResolveRules(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []nv
	}{
		{
			name: "implicit_then_explicit_then_increment",
			body: "A,\nB = 5,\nC",
			want: []nv{{"A", Known(0)}, {"B", Known(5)}, {"C", Known(6)}},
		},
		{
			name: "hex_then_increment",
			body: "A = 0x10,\nB",
			want: []nv{{"A", Known(16)}, {"B", Known(17)}},
		},
		{
			name: "hex_prefix_is_case_insensitive",
			body: "A = 0XfF,",
			want: []nv{{"A", Known(255)}},
		},
		{
			name: "alias_by_name",
			body: "A = 3,\nB = A,",
			want: []nv{{"A", Known(3)}, {"B", Known(3)}},
		},
		{
			name: "alias_then_increment",
			body: "A = 0x8000,\nB = A,\nC,",
			want: []nv{{"A", Known(0x8000)}, {"B", Known(0x8000)}, {"C", Known(0x8001)}},
		},
		{
			name: "unknown_alias_is_unresolved",
			body: "A = UNKNOWN_SYMBOL,",
			want: []nv{{"A", Unresolved}},
		},
		{
			name: "forward_reference_is_unresolved",
			body: "A = B,\nB = 1,",
			want: []nv{{"A", Unresolved}, {"B", Known(1)}},
		},
		{
			name: "increment_does_not_repair_unresolved",
			body: "A = 1,\nB = MISSING,\nC,\nD = 7,\nE",
			want: []nv{{"A", Known(1)}, {"B", Unresolved}, {"C", Unresolved}, {"D", Known(7)}, {"E", Known(8)}},
		},
		{
			name: "alias_to_unresolved_propagates",
			body: "A = MISSING,\nB = A,",
			want: []nv{{"A", Unresolved}, {"B", Unresolved}},
		},
		{
			name: "expression_is_unresolved",
			body: "A = 1,\nB = (A + 1),\nC = 1 << 3,",
			want: []nv{{"A", Known(1)}, {"B", Unresolved}, {"C", Unresolved}},
		},
		{
			name: "negative_decimal",
			body: "A = -1,\nB",
			want: []nv{{"A", Known(-1)}, {"B", Known(0)}},
		},
		{
			name: "integer_suffixes",
			body: "A = 0x10u,\nB = 20UL,\nC = 0xFULL,",
			want: []nv{{"A", Known(16)}, {"B", Known(20)}, {"C", Known(15)}},
		},
		{
			name: "comments_and_blank_lines",
			body: "\n  // leading comment\n  A = 1, // trailing\n  B = 2, /* block */\n\n  /* whole line */\n  C\n",
			want: []nv{{"A", Known(1)}, {"B", Known(2)}, {"C", Known(3)}},
		},
		{
			name: "multiline_block_comment",
			body: "A = 1,\n/**\n * B = 99,\n * describes C\n */\nC,\n/* x\n y */ D = 9,",
			want: []nv{{"A", Known(1)}, {"C", Known(2)}, {"D", Known(9)}},
		},
		{
			name: "closed_then_open_block_comment",
			body: "A = 1, /* first */ /* second starts\n and continues here */\nB,",
			want: []nv{{"A", Known(1)}, {"B", Known(2)}},
		},
		{
			name: "two_closed_block_comments",
			body: "A = 1, /* first */ /* second */\nB,",
			want: []nv{{"A", Known(1)}, {"B", Known(2)}},
		},
		{
			name: "block_marker_after_closed_comment_and_line_comment",
			body: "A = 1, /* first */ // then /* here\nB,",
			want: []nv{{"A", Known(1)}, {"B", Known(2)}},
		},
		{
			name: "block_marker_inside_line_comment",
			body: "A = 1, // see /* here\nB,",
			want: []nv{{"A", Known(1)}, {"B", Known(2)}},
		},
		{
			name: "preprocessor_lines_skipped",
			body: "A = 1,\n#if defined(X)\nB,\n#endif\nC,",
			want: []nv{{"A", Known(1)}, {"B", Known(2)}, {"C", Known(3)}},
		},
		{
			name: "duplicate_name_aliases_first",
			body: "A = 1,\nA = 2,\nB = A,",
			want: []nv{{"A", Known(1)}, {"A", Known(2)}, {"B", Known(1)}},
		},
		{
			name: "last_entry_without_comma",
			body: "A = 4\n",
			want: []nv{{"A", Known(4)}},
		},
		{
			name: "windows_line_endings",
			body: "A = 1,\r\nB,\r\n",
			want: []nv{{"A", Known(1)}, {"B", Known(2)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(block(tt.body))
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got := pairs(res.Entries); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("entries = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveTerminalState(t *testing.T) {
	res, err := Resolve(block("A = 3,\nB,"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.HasLast || res.Last != Known(4) {
		t.Errorf("terminal state = (%v, %v), want (4, true)", res.Last, res.HasLast)
	}

	empty, err := Resolve(block("  // nothing\n"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if empty.HasLast || len(empty.Entries) != 0 {
		t.Errorf("expected empty scan, got %+v", empty)
	}
}

func TestResolveEntryMetadata(t *testing.T) {
	res, err := Resolve(block("\nA = 0x1,\nB = A,\nC"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	wantKinds := []Kind{KindHex, KindAlias, KindImplicit}
	wantLines := []int{11, 12, 13}
	for i, e := range res.Entries {
		if e.Kind != wantKinds[i] {
			t.Errorf("%s kind = %s, want %s", e.Name, e.Kind, wantKinds[i])
		}
		if e.Line != wantLines[i] {
			t.Errorf("%s line = %d, want %d", e.Name, e.Line, wantLines[i])
		}
	}
	if res.Entries[1].Expr != "A" || res.Entries[2].Expr != "" {
		t.Errorf("unexpected exprs: %q %q", res.Entries[1].Expr, res.Entries[2].Expr)
	}
}

func TestResolveMalformed(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
		wantLine int
	}{
		{name: "bad_hex", body: "A = 1,\nB = 0xZZ,", wantText: "B = 0xZZ", wantLine: 2},
		{name: "empty_hex", body: "A = 0x,", wantText: "A = 0x", wantLine: 1},
		{name: "missing_value", body: "A =,", wantText: "A =", wantLine: 1},
		{name: "missing_name", body: "= 3,", wantText: "= 3", wantLine: 1},
		{name: "two_names_on_one_line", body: "A, B,", wantText: "A, B", wantLine: 1},
		{name: "signed_hex_digits", body: "A = 0x-10,", wantText: "A = 0x-10", wantLine: 1},
		{name: "plus_signed_hex_digits", body: "A = 0x+10,", wantText: "A = 0x+10", wantLine: 1},
		{name: "hex_overflow", body: "A = 0x1FFFFFFFFFFFFFFFF,", wantText: "A = 0x1FFFFFFFFFFFFFFFF", wantLine: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(block(tt.body))
			var me *MalformedEntryError
			if !errors.As(err, &me) {
				t.Fatalf("expected MalformedEntryError, got %v", err)
			}
			if me.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", me.Text, tt.wantText)
			}
			if me.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", me.Line, tt.wantLine)
			}
			if me.BlockOffset != 100 || me.SourceLine != 10+tt.wantLine-1 {
				t.Errorf("position = (%d, %d)", me.BlockOffset, me.SourceLine)
			}
		})
	}
}

func TestResolveAllStopsAtFirstMalformed(t *testing.T) {
	blocks := []extractor.Block{block("A = 1,"), block("B = 0xQ,"), block("C,")}
	_, err := ResolveAll(blocks)
	if err == nil || !strings.Contains(err.Error(), "0xQ") {
		t.Fatalf("expected malformed error for the second block, got %v", err)
	}
}

func TestResolveAliasesAreScopedToBlock(t *testing.T) {
	results, err := ResolveAll([]extractor.Block{block("A = 5,"), block("B = A,")})
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	entries := Flatten(results)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Value.Resolved {
		t.Errorf("alias across blocks resolved to %v", entries[1].Value)
	}
	if entries[0].Block != 0 || entries[1].Block != 1 {
		t.Errorf("block indexes = %d, %d", entries[0].Block, entries[1].Block)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	body := "A,\nB = 0x20,\nC = B,\nD = NOPE,\nE,"
	first, err := Resolve(block(body))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := Resolve(block(body))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two resolutions of the same block differ")
	}
}

func TestValueJSON(t *testing.T) {
	b, err := json.Marshal([]Value{Known(7), Unresolved})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != "[7,null]" {
		t.Fatalf("got %s", b)
	}
	var back []Value
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back[0] != Known(7) || back[1] != Unresolved {
		t.Errorf("round trip = %v", back)
	}
}
