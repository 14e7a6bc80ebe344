package extractor

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokPunct
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
}

// lexer splits C/C++ source into words and single-character punctuation.
// Comments, string literals and character literals are skipped, so braces
// and keywords inside them are never seen by the block scanner.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (lx *lexer) next() token {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case isSpace(c):
			lx.pos++
		case c == '/' && lx.peek(1) == '/':
			lx.skipLineComment()
		case c == '/' && lx.peek(1) == '*':
			lx.skipBlockComment()
		case c == '"' || c == '\'':
			lx.skipQuoted(c)
		case isWordChar(c):
			return lx.word()
		default:
			lx.pos++
			return token{kind: tokPunct, text: lx.src[lx.pos-1 : lx.pos], start: lx.pos - 1, end: lx.pos}
		}
	}
	return token{kind: tokEOF, start: len(lx.src), end: len(lx.src)}
}

func (lx *lexer) peek(n int) byte {
	if lx.pos+n < len(lx.src) {
		return lx.src[lx.pos+n]
	}
	return 0
}

func (lx *lexer) skipLineComment() {
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		lx.pos++
	}
}

// skipBlockComment consumes through the closing marker. An unterminated
// comment runs to the end of the input. Block comments do not nest in C.
func (lx *lexer) skipBlockComment() {
	lx.pos += 2
	for lx.pos < len(lx.src) {
		if lx.src[lx.pos] == '*' && lx.peek(1) == '/' {
			lx.pos += 2
			return
		}
		lx.pos++
	}
}

func (lx *lexer) skipQuoted(quote byte) {
	lx.pos++
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\\':
			lx.pos += 2
			continue
		case quote:
			lx.pos++
			return
		case '\n':
			// unterminated literal; resume on the next line
			return
		}
		lx.pos++
	}
}

func (lx *lexer) word() token {
	start := lx.pos
	numeric := isDigit(lx.src[start])
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if isWordChar(c) {
			lx.pos++
			continue
		}
		// C++14 digit separator: 1'000'000
		if numeric && c == '\'' && isWordChar(lx.peek(1)) {
			lx.pos++
			continue
		}
		break
	}
	return token{kind: tokWord, text: lx.src[start:lx.pos], start: start, end: lx.pos}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordChar(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
