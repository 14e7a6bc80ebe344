// Package extractor locates enumeration bodies inside header source text.
//
// Two locators share one contract: the hand-rolled Lexer based Extractor
// (default) and the tree-sitter based SyntaxLocator. Both return the raw
// body text of each matching enum in file order; value resolution happens
// later, in the resolver package.
package extractor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoBlocks is returned in anonymous mode when the text contains no
// anonymous enumeration.
var ErrNoBlocks = errors.New("no anonymous enums found")

// EnumNotFoundError is returned in named mode when no definition of the
// requested enum exists in the text.
type EnumNotFoundError struct {
	Name string
}

func (e *EnumNotFoundError) Error() string {
	return fmt.Sprintf("could not find enum %s", e.Name)
}

// Mode selects which enumerations a locator returns.
type Mode struct {
	// Name is empty for anonymous mode.
	Name string
}

// AllAnonymous selects every anonymous enum terminated by ';'.
func AllAnonymous() Mode { return Mode{} }

// NamedEnum selects the first definition of the enum called name.
func NamedEnum(name string) Mode { return Mode{Name: name} }

// Anonymous reports whether m is the anonymous mode.
func (m Mode) Anonymous() bool { return m.Name == "" }

func (m Mode) String() string {
	if m.Anonymous() {
		return "anonymous"
	}
	return "enum " + m.Name
}

// Block is the body of one enum declaration: the text between the opening
// and closing brace, both excluded.
type Block struct {
	// Name is empty for anonymous enums.
	Name string `json:"name"`
	Body string `json:"body"`
	// Offset is the byte offset of Body within the source text.
	Offset int `json:"offset"`
	// Line is the 1-based source line on which Body starts.
	Line int `json:"line"`
}

// Locator finds enum blocks in source text.
type Locator interface {
	Locate(src string, mode Mode) ([]Block, error)
}

// Extract runs the default lexer based locator.
func Extract(src string, mode Mode) ([]Block, error) {
	return New().Locate(src, mode)
}

// finish applies the not-found policy shared by all locators.
func finish(mode Mode, blocks []Block) ([]Block, error) {
	if len(blocks) > 0 {
		return blocks, nil
	}
	if mode.Anonymous() {
		return nil, ErrNoBlocks
	}
	return nil, &EnumNotFoundError{Name: mode.Name}
}

func lineAt(src string, offset int) int {
	return strings.Count(src[:offset], "\n") + 1
}
