// Package cli formats search and highlight results for the hikari command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/hyperjump/hikari/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// maxFragmentLen bounds each fragment line in text output.
const maxFragmentLen = 300

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
	return nil
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
	fmt.Fprintf(w, "ID: %s\n", result.DocumentID)
	fields := make([]string, 0, len(result.Highlights))
	for field := range result.Highlights {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(w, "\n[%s]\n", field)
		for _, fragment := range result.Highlights[field] {
			fmt.Fprintf(w, "  … %s …\n", Truncate(fragment, maxFragmentLen))
		}
	}
	fmt.Fprintln(w)
}

// WriteHighlight writes a highlight response to w in the given format.
func WriteHighlight(w io.Writer, response *models.HighlightResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	if response.Empty {
		fmt.Fprintf(w, "%s/%s: no stored text\n", response.DocumentID, response.Field)
		return nil
	}
	fmt.Fprintf(w, "%s/%s: %d fragments\n", response.DocumentID, response.Field, len(response.Fragments))
	for i, fragment := range response.Fragments {
		fmt.Fprintf(w, "%d. %s\n", i+1, fragment)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// Truncate truncates s to maxLen bytes and appends "..." if truncated.
// The cut never splits a UTF-8 sequence.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
