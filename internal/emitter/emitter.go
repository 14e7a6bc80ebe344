// Package emitter renders code->name tables as a self-contained C++ header.
package emitter

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/tables"
)

// Table is one static lookup map in the generated header.
type Table struct {
	Ident string         `json:"ident"`
	Codes tables.CodeMap `json:"-"`
}

// Accessor is an inline lookup function that consults Chain in order and
// returns Default when no table has the code.
type Accessor struct {
	Func    string   `json:"func"`
	Chain   []string `json:"chain"`
	Default string   `json:"default"`
}

// Define is a preprocessor macro emitted before the namespace.
type Define struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Artifact is everything needed to render one generated header.
type Artifact struct {
	Banner      string `json:"banner"`
	Fingerprint string `json:"fingerprint,omitempty"`
	// Includes are include targets with their delimiters, e.g. "<unordered_map>".
	Includes  []string   `json:"includes"`
	Comments  []string   `json:"comments,omitempty"`
	Defines   []Define   `json:"defines,omitempty"`
	Namespace string     `json:"namespace"`
	CodeType  string     `json:"code_type"`
	Tables    []Table    `json:"tables"`
	Accessors []Accessor `json:"accessors"`
}

// Table returns the table named ident.
func (a *Artifact) Table(ident string) (Table, bool) {
	for _, t := range a.Tables {
		if t.Ident == ident {
			return t, true
		}
	}
	return Table{}, false
}

// Snapshot flattens every table into rows, in table then code order.
func (a *Artifact) Snapshot() tables.Snapshot {
	var out tables.Snapshot
	for _, t := range a.Tables {
		out = append(out, tables.Rows(t.Ident, t.Codes)...)
	}
	return out
}

// FingerprintPrefix starts the fingerprint comment line.
const FingerprintPrefix = "// fingerprint: "

// Render produces the header text. Rendering is deterministic: rows are
// sorted by code and tables and accessors keep their declared order.
func Render(a *Artifact) ([]byte, error) {
	if a.Namespace == "" {
		return nil, fmt.Errorf("artifact has no namespace")
	}
	if a.CodeType == "" {
		return nil, fmt.Errorf("artifact has no code type")
	}
	declared := make(map[string]bool, len(a.Tables))
	for _, t := range a.Tables {
		if declared[t.Ident] {
			return nil, fmt.Errorf("table %s declared twice", t.Ident)
		}
		declared[t.Ident] = true
	}
	for _, acc := range a.Accessors {
		for _, ident := range acc.Chain {
			if !declared[ident] {
				return nil, fmt.Errorf("accessor %s references unknown table %s", acc.Func, ident)
			}
		}
	}

	var b strings.Builder
	if a.Banner != "" {
		fmt.Fprintf(&b, "// %s\n", a.Banner)
	}
	if a.Fingerprint != "" {
		fmt.Fprintf(&b, "%s%s\n", FingerprintPrefix, a.Fingerprint)
	}
	b.WriteString("#pragma once\n")
	for _, inc := range a.Includes {
		fmt.Fprintf(&b, "#include %s\n", inc)
	}
	b.WriteString("\n")

	if len(a.Comments) > 0 || len(a.Defines) > 0 {
		for _, c := range a.Comments {
			fmt.Fprintf(&b, "// %s\n", c)
		}
		for _, d := range a.Defines {
			fmt.Fprintf(&b, "#define %s %s\n", d.Name, d.Value)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "namespace %s {\n", a.Namespace)
	for i, t := range a.Tables {
		fmt.Fprintf(&b, "static const std::unordered_map<%s, const char*> %s = {\n", a.CodeType, t.Ident)
		for _, code := range t.Codes.Codes() {
			fmt.Fprintf(&b, "    { %s, %s },\n", formatCode(a.CodeType, code), Quote(t.Codes[code]))
		}
		b.WriteString("};\n")
		if i == len(a.Tables)-1 {
			b.WriteString("\n")
		}
	}
	for _, acc := range a.Accessors {
		writeAccessor(&b, a.CodeType, acc)
	}
	fmt.Fprintf(&b, "} // namespace %s\n", a.Namespace)
	return []byte(b.String()), nil
}

func formatCode(codeType string, code int64) string {
	if code < 0 {
		return fmt.Sprintf("(%s)-0x%04x", codeType, uint64(-code))
	}
	return fmt.Sprintf("(%s)0x%04x", codeType, code)
}

// iterator names for successive chain lookups
func iterName(i int) string {
	switch i {
	case 0:
		return "it"
	case 1:
		return "in"
	default:
		return fmt.Sprintf("i%d", i)
	}
}

func writeAccessor(b *strings.Builder, codeType string, acc Accessor) {
	fmt.Fprintf(b, "static inline const char* %s(%s code) {\n", acc.Func, codeType)
	def := Quote(acc.Default)
	if len(acc.Chain) == 0 {
		b.WriteString("    (void)code;\n")
		fmt.Fprintf(b, "    return %s;\n", def)
		b.WriteString("}\n")
		return
	}
	for i, ident := range acc.Chain {
		it := iterName(i)
		fmt.Fprintf(b, "    auto %s = %s.find(code);\n", it, ident)
		if i == len(acc.Chain)-1 {
			fmt.Fprintf(b, "    return %s == %s.end() ? %s : %s->second;\n", it, ident, def, it)
		} else {
			fmt.Fprintf(b, "    if (%s != %s.end()) return %s->second;\n", it, ident, it)
		}
	}
	b.WriteString("}\n")
}

// Quote renders s as a C string literal.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
