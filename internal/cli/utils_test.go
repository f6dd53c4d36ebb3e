package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/hyperjump/hikari/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "fox",
		QueryTime: 42,
		Total:     1,
		Results: []*models.SearchResult{
			{
				DocumentID: "doc-1",
				Rank:       1,
				Score:      0.9,
				Highlights: map[string][]string{
					"title":   {"the <b>fox</b>"},
					"content": {"a <b>fox</b> here", "another <b>fox</b>"},
				},
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "fox" || decoded.QueryTime != 42 || decoded.Total != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Results) != 1 || len(decoded.Results[0].Highlights["content"]) != 2 {
		t.Errorf("decoded results = %+v", decoded.Results)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 results", "42ms", "Rank: 1", "ID: doc-1", "[content]", "a <b>fox</b> here", "[title]"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
	if strings.Index(out, "[content]") > strings.Index(out, "[title]") {
		t.Errorf("fields should be listed in name order:\n%s", out)
	}
}

func TestWriteSearchResults_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, &models.SearchResponse{Query: "x"}, OutputFormat("unknown")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Found 0 results") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestWriteHighlight(t *testing.T) {
	tests := []struct {
		name     string
		response *models.HighlightResponse
		format   OutputFormat
		want     []string
	}{
		{
			name:     "text",
			response: &models.HighlightResponse{DocumentID: "d1", Field: "content", Fragments: []string{"<b>a</b>", "<b>b</b>"}},
			format:   OutputText,
			want:     []string{"d1/content: 2 fragments", "1. <b>a</b>", "2. <b>b</b>"},
		},
		{
			name:     "empty text",
			response: &models.HighlightResponse{DocumentID: "d1", Field: "title", Fragments: []string{}, Empty: true},
			format:   OutputText,
			want:     []string{"d1/title: no stored text"},
		},
		{
			name:     "json",
			response: &models.HighlightResponse{DocumentID: "d1", Field: "content", Fragments: []string{"x"}},
			format:   OutputJSON,
			want:     []string{`"document_id": "d1"`, `"fragments": [`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteHighlight(&buf, tt.response, tt.format); err != nil {
				t.Fatal(err)
			}
			for _, sub := range tt.want {
				if !strings.Contains(buf.String(), sub) {
					t.Errorf("output missing %q:\n%s", sub, buf.String())
				}
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
		{"multibyte boundary", "aé", 2, "a..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.s, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestPrintSearchResults(t *testing.T) {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = oldStdout
		_ = w.Close()
	}()
	PrintSearchResults(&models.SearchResponse{Query: "print test", QueryTime: 1})
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	if !strings.Contains(buf.String(), "Found 0 results") {
		t.Errorf("PrintSearchResults should write to stdout; got %q", buf.String())
	}
}
