// Package header reads vendor header files into immutable source text.
package header

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Source is the content of one header file. It is read once and never mutated.
type Source struct {
	Path string
	Text string
	// Raw is the undecoded file content; fingerprints are computed over it.
	Raw []byte
}

// NotFoundError reports a header path that does not resolve to a readable file.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("header not found: %s (%v)", e.Path, e.Err)
	}
	return fmt.Sprintf("header not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

var errIsDir = errors.New("path is a directory")

// Read loads the header at path. A UTF-8 byte order mark is dropped and
// UTF-16 content with a byte order mark is transcoded to UTF-8; anything
// else is passed through byte for byte.
func Read(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, &NotFoundError{Path: path, Err: err}
	}
	if info.IsDir() {
		return Source{}, &NotFoundError{Path: path, Err: errIsDir}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Source{}, &NotFoundError{Path: path, Err: err}
	}

	text, err := decode(raw)
	if err != nil {
		return Source{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return Source{Path: path, Text: text, Raw: raw}, nil
}

// FromString wraps in-memory text, mostly for tests and the debug tool.
func FromString(path, text string) Source {
	return Source{Path: path, Text: text, Raw: []byte(text)}
}

func decode(raw []byte) (string, error) {
	if !hasBOM(raw) {
		return string(raw), nil
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), dec))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func hasBOM(b []byte) bool {
	switch {
	case bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}):
		return true
	case bytes.HasPrefix(b, []byte{0xFE, 0xFF}), bytes.HasPrefix(b, []byte{0xFF, 0xFE}):
		return true
	}
	return false
}
