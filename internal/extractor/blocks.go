package extractor

// Extractor is the lexer based block locator.
type Extractor struct{}

// New creates the default Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Locate returns the bodies selected by mode in file order.
func (e *Extractor) Locate(src string, mode Mode) ([]Block, error) {
	lx := newLexer(src)
	var blocks []Block

	for tok := lx.next(); tok.kind != tokEOF; tok = lx.next() {
		if tok.kind != tokWord || tok.text != "enum" {
			continue
		}

		var (
			blk Block
			ok  bool
		)
		if mode.Anonymous() {
			blk, ok = scanAnonymous(lx, src)
		} else {
			blk, ok = scanNamed(lx, src, mode.Name)
		}
		if !ok {
			continue
		}
		blocks = append(blocks, blk)
		if !mode.Anonymous() {
			break
		}
	}

	return finish(mode, blocks)
}

// scanAnonymous expects `{ body } ;` right after the enum keyword.
func scanAnonymous(lx *lexer, src string) (Block, bool) {
	open := lx.next()
	if open.kind != tokPunct || open.text != "{" {
		return Block{}, false
	}
	blk, ok := scanBody(lx, src, open)
	if !ok {
		return Block{}, false
	}
	if term := lx.next(); term.kind != tokPunct || term.text != ";" {
		return Block{}, false
	}
	return blk, true
}

// scanNamed expects `name [: type] { body }` right after the enum keyword.
// Forward declarations and uses of the enum as a type are skipped.
func scanNamed(lx *lexer, src, name string) (Block, bool) {
	tok := lx.next()
	if tok.kind != tokWord || tok.text != name {
		return Block{}, false
	}

	tok = lx.next()
	if tok.kind == tokPunct && tok.text == ":" {
		tok = lx.next()
		// underlying type: one or more words, possibly qualified with ::
		words := 0
		for tok.kind == tokWord || (tok.kind == tokPunct && tok.text == ":") {
			if tok.kind == tokWord {
				words++
			}
			tok = lx.next()
		}
		if words == 0 {
			return Block{}, false
		}
	}
	if tok.kind != tokPunct || tok.text != "{" {
		return Block{}, false
	}

	blk, ok := scanBody(lx, src, tok)
	if !ok {
		return Block{}, false
	}
	blk.Name = name
	return blk, true
}

// scanBody consumes tokens up to the first closing brace. Enum bodies are
// flat, so a nested opening brace means this is not an enum body.
func scanBody(lx *lexer, src string, open token) (Block, bool) {
	for tok := lx.next(); tok.kind != tokEOF; tok = lx.next() {
		if tok.kind != tokPunct {
			continue
		}
		switch tok.text {
		case "{":
			return Block{}, false
		case "}":
			return Block{
				Body:   src[open.end:tok.start],
				Offset: open.end,
				Line:   lineAt(src, open.end),
			}, true
		}
	}
	return Block{}, false
}
