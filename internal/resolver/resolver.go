// Package resolver assigns a numeric value to every entry of an enum body.
//
// Resolution is one left-to-right pass over the body's lines. Each entry
// takes its value from an explicit hex or decimal literal, from the value of
// an earlier entry it names, or from the previous value plus one. Alias
// lookups only ever see entries that precede them in the same block.
package resolver

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/extractor"
)

// Value is a resolved integer or the unresolved marker.
type Value struct {
	N        int64
	Resolved bool
}

// Unresolved marks an alias whose target was not found earlier in the block.
var Unresolved = Value{}

// Known wraps a resolved integer.
func Known(n int64) Value {
	return Value{N: n, Resolved: true}
}

func (v Value) String() string {
	if !v.Resolved {
		return "unresolved"
	}
	return strconv.FormatInt(v.N, 10)
}

// MarshalJSON encodes unresolved values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Resolved {
		return []byte("null"), nil
	}
	return json.Marshal(v.N)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Unresolved
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = Known(n)
	return nil
}

// Kind records which rule produced an entry's value.
type Kind string

const (
	KindHex      Kind = "hex"
	KindDecimal  Kind = "decimal"
	KindAlias    Kind = "alias"
	KindImplicit Kind = "implicit"
)

// Entry is one resolved enumerator.
type Entry struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
	Kind  Kind   `json:"kind"`
	// Expr is the value expression as written; empty for implicit entries.
	Expr string `json:"expr,omitempty"`
	// Line is the 1-based source line of the entry.
	Line int `json:"line"`
	// Block is the position of the entry's block among the blocks of one
	// run. Set by Flatten.
	Block int `json:"block"`
}

// MalformedEntryError reports a line that fits none of the resolution rules.
type MalformedEntryError struct {
	Text string
	// Line is the 1-based line within the block body.
	Line int
	// BlockOffset is the byte offset of the block body in the source.
	BlockOffset int
	// SourceLine is the 1-based line in the source text.
	SourceLine int
	Reason     string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed enum entry %q at line %d (block offset %d, block line %d): %s",
		e.Text, e.SourceLine, e.BlockOffset, e.Line, e.Reason)
}

// Result is the outcome of resolving one block.
type Result struct {
	Block   extractor.Block
	Entries []Entry
	// Last is the terminal lastValue of the scan; HasLast is false when the
	// block produced no entries.
	Last    Value
	HasLast bool
}

// Resolve scans blk and resolves every entry.
func Resolve(blk extractor.Block) (Result, error) {
	st := newScanState()
	inComment := false

	for i, raw := range strings.Split(blk.Body, "\n") {
		line := strings.TrimSpace(raw)

		if inComment {
			end := strings.Index(line, "*/")
			if end < 0 {
				continue
			}
			inComment = false
			line = strings.TrimSpace(line[end+2:])
		}

		if line == "" || strings.HasPrefix(line, "//") || isDirective(line) {
			continue
		}

		text, open := stripComments(line)
		inComment = open
		if text == "" {
			continue
		}

		text = strings.TrimSpace(strings.TrimSuffix(text, ","))
		if text == "" {
			continue
		}

		if err := st.resolveLine(text, blk.Line+i); err != nil {
			return Result{}, &MalformedEntryError{
				Text:        text,
				Line:        i + 1,
				BlockOffset: blk.Offset,
				SourceLine:  blk.Line + i,
				Reason:      err.Error(),
			}
		}
	}

	return Result{
		Block:   blk,
		Entries: st.seen,
		Last:    st.last,
		HasLast: st.started,
	}, nil
}

// ResolveAll resolves blocks in order and stops at the first malformed entry.
func ResolveAll(blocks []extractor.Block) ([]Result, error) {
	results := make([]Result, 0, len(blocks))
	for _, blk := range blocks {
		res, err := Resolve(blk)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Flatten concatenates the entries of results in block order and stamps
// each with the index of its block.
func Flatten(results []Result) []Entry {
	var n int
	for _, r := range results {
		n += len(r.Entries)
	}
	out := make([]Entry, 0, n)
	for i, r := range results {
		for _, e := range r.Entries {
			e.Block = i
			out = append(out, e)
		}
	}
	return out
}

// scanState is the only mutable state of a scan. index maps a name to the
// position of its first occurrence in seen.
type scanState struct {
	last    Value
	started bool
	seen    []Entry
	index   map[string]int
}

func newScanState() *scanState {
	return &scanState{index: make(map[string]int)}
}

func (s *scanState) resolveLine(text string, sourceLine int) error {
	eq := strings.IndexByte(text, '=')
	if eq < 0 {
		if !IsIdentifier(text) {
			return fmt.Errorf("%q is not an identifier", text)
		}
		v, err := s.next()
		if err != nil {
			return err
		}
		s.push(Entry{Name: text, Value: v, Kind: KindImplicit, Line: sourceLine})
		return nil
	}

	name := strings.TrimSpace(text[:eq])
	expr := strings.TrimSpace(text[eq+1:])
	if !IsIdentifier(name) {
		return fmt.Errorf("%q is not an identifier", name)
	}
	if expr == "" {
		return fmt.Errorf("missing value for %s", name)
	}

	v, kind, err := s.evaluate(expr)
	if err != nil {
		return err
	}
	s.push(Entry{Name: name, Value: v, Kind: kind, Expr: expr, Line: sourceLine})
	return nil
}

// next is the implicit-increment rule.
func (s *scanState) next() (Value, error) {
	if !s.started {
		return Known(0), nil
	}
	if !s.last.Resolved {
		return Unresolved, nil
	}
	if s.last.N == math.MaxInt64 {
		return Value{}, fmt.Errorf("implicit value after %d overflows", s.last.N)
	}
	return Known(s.last.N + 1), nil
}

func (s *scanState) evaluate(expr string) (Value, Kind, error) {
	if strings.HasPrefix(strings.ToLower(expr), "0x") {
		digits := trimIntSuffix(expr[2:])
		if strings.HasPrefix(digits, "+") || strings.HasPrefix(digits, "-") {
			return Value{}, "", fmt.Errorf("invalid hex literal %q", expr)
		}
		n, err := strconv.ParseInt(digits, 16, 64)
		if err != nil {
			return Value{}, "", fmt.Errorf("invalid hex literal %q", expr)
		}
		return Known(n), KindHex, nil
	}

	if n, err := strconv.ParseInt(trimIntSuffix(expr), 10, 64); err == nil {
		return Known(n), KindDecimal, nil
	}

	if i, ok := s.index[expr]; ok {
		return s.seen[i].Value, KindAlias, nil
	}
	return Unresolved, KindAlias, nil
}

func (s *scanState) push(e Entry) {
	s.last = e.Value
	s.started = true
	if _, ok := s.index[e.Name]; !ok {
		s.index[e.Name] = len(s.seen)
	}
	s.seen = append(s.seen, e)
}
