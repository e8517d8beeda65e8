// Package extract turns uploaded document files into raw text for the
// ingestion pipeline. Plain-text and markdown files are read directly; PDF
// text is pulled
// with [github.com/ledongthuc/pdf]. Extraction is best-effort: a file that
// produces no usable text fails with ErrNoText rather than yielding an
// empty document downstream.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxFileSize is the upload size ceiling in bytes (10 MiB).
const MaxFileSize = 10 << 20

var (
	// ErrUnsupportedType is returned for file extensions other than
	// .pdf/.txt/.md.
	ErrUnsupportedType = errors.New("extract: unsupported file type")

	// ErrTooLarge is returned when the file exceeds MaxFileSize.
	ErrTooLarge = errors.New("extract: file exceeds size limit")

	// ErrNoText is returned when extraction succeeds but yields no usable text.
	ErrNoText = errors.New("extract: no text extracted")
)

// allowedExtensions is the set of supported upload extensions (lowercase).
var allowedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// ValidateName checks that filename carries a supported extension.
func ValidateName(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %q (allowed: .pdf, .txt, .md)", ErrUnsupportedType, ext)
	}
	return nil
}

// ValidateSize checks that a file of size bytes fits under MaxFileSize.
func ValidateSize(size int64) error {
	if size > MaxFileSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, size, MaxFileSize)
	}
	return nil
}

// File extracts the text content of the file at path, dispatching on its
// extension. The returned text is cleaned but not chunk-normalized; the
// splitter owns whitespace normalization.
func File(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("extract: stat %s: %w", path, err)
	}
	if err := ValidateSize(info.Size()); err != nil {
		return "", err
	}
	if err := ValidateName(path); err != nil {
		return "", err
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		text, err = fromText(path)
	case ".pdf":
		text, err = fromPDF(path)
	}
	if err != nil {
		return "", err
	}

	text = clean(text)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrNoText, filepath.Base(path))
	}
	return text, nil
}

// fromText reads a plain-text file.
func fromText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract: read %s: %w", path, err)
	}
	return string(data), nil
}

// fromPDF extracts plain text from every page of a PDF.
func fromPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("extract: open pdf %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for page := 1; page <= reader.NumPage(); page++ {
		p := reader.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages rather than failing the whole document.
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// clean strips carriage returns and NUL bytes that PDF extraction and
// Windows-edited text files commonly carry.
func clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ReplaceAll(text, "\x00", "")
}
