// Package extract provides text extraction from various document formats.
//
// Extraction yields segments: the natural units of a document (paragraphs,
// pages, sheets or slides). Each segment is stored as one instance of a
// multivalued field, so fragments never span two pages.
package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Extractor extracts text segments from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its non-empty text segments.
// Returns an error if the file cannot be read or the format cannot be parsed.
func (e *Extractor) Extract(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts segments from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]string, error) {
	var (
		segments []string
		err      error
	)
	switch ext {
	case ".pdf":
		segments, err = extractPDF(content)
	case ".docx":
		segments, err = extractDOCX(content)
	case ".xlsx":
		segments, err = extractExcel(content)
	case ".pptx":
		segments, err = extractPPTX(content)
	case ".odp":
		segments, err = extractODP(content)
	case ".ods":
		segments, err = extractODS(content)
	default:
		segments = extractPlain(content)
	}
	if err != nil {
		return nil, err
	}
	return compact(segments), nil
}

// Normalize trims text and collapses every run of whitespace to one space.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

func compact(segments []string) []string {
	out := segments[:0]
	for _, s := range segments {
		if s = Normalize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var blankLines = regexp.MustCompile(`\n[ \t\r]*\n`)

// extractPlain splits text into paragraphs at blank lines.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) []string {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return blankLines.Split(text, -1)
}

// readZipFile returns the contents of name inside zr.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

func openZip(content []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}
	return zr, nil
}

var anyTag = regexp.MustCompile(`<[^>]+>`)

// stripTags replaces every XML tag with a space and decodes entities.
func stripTags(xml string) string {
	return html.UnescapeString(anyTag.ReplaceAllString(xml, " "))
}
