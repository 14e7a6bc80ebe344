package resolver

import (
	"regexp"
	"strings"
)

var (
	// Pattern: C identifier
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	// Pattern: integer literal suffix (u, l, ul, lu, ll, ull, llu; any case)
	intSuffixPattern = regexp.MustCompile(`(?i)(?:ull|llu|ul|lu|ll|u|l)$`)
)

// IsIdentifier reports whether s is a valid C identifier.
func IsIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// trimIntSuffix drops one integer literal suffix.
func trimIntSuffix(s string) string {
	if loc := intSuffixPattern.FindStringIndex(s); loc != nil {
		return s[:loc[0]]
	}
	return s
}

// isDirective reports whether line is a preprocessor directive.
func isDirective(line string) bool {
	return strings.HasPrefix(line, "#")
}

// stripComments applies the per-line comment rules: everything from an
// opening block-comment marker to the end of the line is dropped, as is any
// line-comment tail. open reports a block comment left unclosed on this line.
func stripComments(line string) (text string, open bool) {
	lc := strings.Index(line, "//")
	bc := strings.Index(line, "/*")
	if bc >= 0 && (lc < 0 || bc < lc) {
		open = unclosedAfter(line[bc:])
		line = line[:bc]
	}
	if lc = strings.Index(line, "//"); lc >= 0 {
		line = line[:lc]
	}
	return strings.TrimSpace(line), open
}

// unclosedAfter reports whether the last block comment in rest, which starts
// with an opening marker, is still open at the end of the line.
func unclosedAfter(rest string) bool {
	for {
		end := strings.Index(rest[2:], "*/")
		if end < 0 {
			return true
		}
		rest = rest[2+end+2:]
		bc := strings.Index(rest, "/*")
		if bc < 0 {
			return false
		}
		if lc := strings.Index(rest, "//"); lc >= 0 && lc < bc {
			return false
		}
		rest = rest[bc:]
	}
}
