package header

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadMissingHeader(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "CrError.h"))
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestReadDirectory(t *testing.T) {
	_, err := Read(t.TempDir())
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError for a directory, got %v", err)
	}
}

func TestReadDecoding(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{name: "plain", raw: []byte("enum { A };\n"), want: "enum { A };\n"},
		{name: "utf8_bom", raw: append([]byte{0xEF, 0xBB, 0xBF}, "enum { A };"...), want: "enum { A };"},
		{name: "utf16le_bom", raw: []byte{0xFF, 0xFE, 'A', 0, '=', 0, '1', 0}, want: "A=1"},
		{name: "utf16be_bom", raw: []byte{0xFE, 0xFF, 0, 'B', 0, ',', 0}, want: "B,"},
		{name: "latin1_passthrough", raw: []byte{'/', '/', ' ', 0xE9, '\n'}, want: "// \xe9\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "h.h")
			if err := os.WriteFile(path, tt.raw, 0o644); err != nil {
				t.Fatalf("write header: %v", err)
			}
			src, err := Read(path)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if src.Text != tt.want {
				t.Errorf("Text = %q, want %q", src.Text, tt.want)
			}
			if string(src.Raw) != string(tt.raw) {
				t.Errorf("Raw was modified")
			}
		})
	}
}
