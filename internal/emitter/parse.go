package emitter

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/tables"
)

var (
	tableOpenPattern = regexp.MustCompile(`^static const std::unordered_map<[^,]+, const char\*> ([A-Za-z_][A-Za-z0-9_]*) = \{$`)
	rowPattern       = regexp.MustCompile(`^\{ \([^)]+\)(-?)0x([0-9a-fA-F]+), "((?:[^"\\]|\\.)*)" \},$`)
)

// Existing is what Parse recovers from a previously generated header.
type Existing struct {
	Fingerprint string
	Rows        tables.Snapshot
}

// Parse reads back a header produced by Render. Only the fingerprint line
// and table rows are recovered; everything else is ignored.
func Parse(data []byte) (Existing, error) {
	var out Existing
	current := ""
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, FingerprintPrefix) && out.Fingerprint == "" {
			out.Fingerprint = strings.TrimSpace(strings.TrimPrefix(line, FingerprintPrefix))
			continue
		}
		if current == "" {
			if m := tableOpenPattern.FindStringSubmatch(line); m != nil {
				current = m[1]
			}
			continue
		}
		if line == "};" {
			current = ""
			continue
		}
		m := rowPattern.FindStringSubmatch(line)
		if m == nil {
			return Existing{}, fmt.Errorf("line %d: unrecognized row in table %s: %q", lineNo, current, line)
		}
		code, err := strconv.ParseUint(m[2], 16, 64)
		if err != nil {
			return Existing{}, fmt.Errorf("line %d: bad code %q: %w", lineNo, m[2], err)
		}
		n := int64(code)
		if m[1] == "-" {
			n = -n
		}
		name, err := unquote(m[3])
		if err != nil {
			return Existing{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out.Rows = append(out.Rows, tables.Row{Table: current, Code: n, Name: name})
	}
	if err := sc.Err(); err != nil {
		return Existing{}, err
	}
	if current != "" {
		return Existing{}, fmt.Errorf("table %s is not closed", current)
	}
	return out, nil
}

func unquote(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("dangling escape in %q", s)
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"', '\\':
			b.WriteByte(s[i])
		default:
			if i+2 < len(s) {
				v, err := strconv.ParseUint(s[i:i+3], 8, 8)
				if err == nil {
					b.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			return "", fmt.Errorf("unsupported escape \\%c in %q", s[i], s)
		}
	}
	return b.String(), nil
}
