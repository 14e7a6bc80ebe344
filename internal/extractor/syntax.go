package extractor

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// SyntaxLocator finds enum bodies with the tree-sitter C++ grammar. It is an
// independent second opinion on the lexer; both must agree on well formed
// vendor headers.
type SyntaxLocator struct {
	parser *sitter.Parser
}

// NewSyntaxLocator creates a locator with the C++ grammar loaded.
func NewSyntaxLocator() *SyntaxLocator {
	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())
	return &SyntaxLocator{parser: parser}
}

// Locate parses src and returns the bodies selected by mode in file order.
func (l *SyntaxLocator) Locate(src string, mode Mode) ([]Block, error) {
	source := []byte(src)
	tree, err := l.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	var blocks []Block
	l.walk(tree.RootNode(), src, mode, &blocks)
	return finish(mode, blocks)
}

// Close releases the parser.
func (l *SyntaxLocator) Close() {
	if l.parser != nil {
		l.parser.Close()
	}
}

func (l *SyntaxLocator) walk(node *sitter.Node, src string, mode Mode, blocks *[]Block) {
	if node == nil {
		return
	}
	if !mode.Anonymous() && len(*blocks) > 0 {
		return
	}

	if node.Type() == "enum_specifier" {
		if blk, ok := enumBlock(node, src, mode); ok {
			*blocks = append(*blocks, blk)
			return
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		l.walk(node.Child(i), src, mode, blocks)
	}
}

func enumBlock(node *sitter.Node, src string, mode Mode) (Block, bool) {
	body := node.ChildByFieldName("body")
	if body == nil {
		body = findChildByType(node, "enumerator_list")
	}
	if body == nil {
		// enum used as a type or forward declared
		return Block{}, false
	}

	name := ""
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content([]byte(src))
	}

	start, end := int(body.StartByte()), int(body.EndByte())
	if end-start < 2 || src[start] != '{' || src[end-1] != '}' {
		// recovered from a syntax error without a closing brace
		return Block{}, false
	}

	if mode.Anonymous() {
		if name != "" || !terminated(src, int(node.EndByte())) {
			return Block{}, false
		}
	} else if name != mode.Name {
		return Block{}, false
	}

	return Block{
		Name:   name,
		Body:   src[start+1 : end-1],
		Offset: start + 1,
		Line:   lineAt(src, start+1),
	}, true
}

// terminated reports whether the next token after offset is ';'.
func terminated(src string, offset int) bool {
	lx := newLexer(src)
	lx.pos = offset
	tok := lx.next()
	return tok.kind == tokPunct && tok.text == ";"
}

func findChildByType(node *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == typ {
			return child
		}
	}
	return nil
}

// DumpTree renders the syntax tree around every enum_specifier, for the
// debug tool.
func (l *SyntaxLocator) DumpTree(src string) (string, error) {
	source := []byte(src)
	tree, err := l.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return "", fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	var sb strings.Builder
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "enum_specifier" {
			fmt.Fprintf(&sb, "line %d: %s\n", n.StartPoint().Row+1, n.String())
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(tree.RootNode())
	return sb.String(), nil
}
