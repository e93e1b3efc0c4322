package table

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadFile loads a table from path, choosing the format by extension.
// For workbooks the first sheet is read.
func ReadFile(path string) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ReadBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ReadBytes parses content in the format named by ext (".csv", ".tsv", ".xlsx").
func ReadBytes(content []byte, ext string) (*Table, error) {
	switch ext {
	case ".csv", "":
		return ReadCSV(bytes.NewReader(content), ',')
	case ".tsv", ".txt":
		return ReadCSV(bytes.NewReader(content), '\t')
	case ".xlsx":
		return ReadXLSX(bytes.NewReader(content), "")
	default:
		return nil, fmt.Errorf("unsupported table format %q", ext)
	}
}

// WriteFile writes t to path in the format named by its extension. Parent
// directories are created.
func WriteFile(path string, t *Table, sheetName string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	var buf bytes.Buffer
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		err = WriteCSV(&buf, t, ',')
	case ".tsv", ".txt":
		err = WriteCSV(&buf, t, '\t')
	case ".xlsx":
		if sheetName == "" {
			sheetName = "Sheet1"
		}
		err = WriteXLSX(&buf, Sheet{Name: sheetName, Table: t})
	default:
		return fmt.Errorf("unsupported table format %q", ext)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// IsTableFile reports whether path has an extension ReadFile understands.
func IsTableFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".xlsx":
		return true
	}
	return false
}
