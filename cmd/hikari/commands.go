package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/hikari/internal/cli"
	"github.com/hyperjump/hikari/internal/indexer"
	"github.com/hyperjump/hikari/internal/models"
	"github.com/hyperjump/hikari/internal/storage"
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

// fail prints msg and err to stderr and exits.
func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

// parseFormat maps an --output value to a cli.OutputFormat.
func parseFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "text", "":
		return cli.OutputText, nil
	case "json":
		return cli.OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// parseFields splits a comma-separated field list, dropping blanks.
func parseFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. The flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// callAPI sends body (when non-nil) as JSON to serverURL+path and decodes the
// JSON response into out. Non-2xx responses are returned as errors.
func callAPI(method, serverURL, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, strings.TrimRight(serverURL, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runSearch() {
	fs := newFlagSet("search")
	configPath := fs.String("config", configPathDefault(), "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	limit := fs.Int("limit", 0, "number of results (0 = config default)")
	fields := fs.String("fields", "", "comma-separated fields to search and highlight")
	fragments := fs.Int("fragments", 0, "fragments per field (0 = config default)")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: hikari search [flags] <query>")
		os.Exit(1)
	}
	format, err := parseFormat(*output)
	if err != nil {
		fail("Invalid flag", err)
	}
	query := &models.SearchQuery{
		Query:        queryStr,
		Fields:       parseFields(*fields),
		Limit:        *limit,
		MaxFragments: *fragments,
		FuzzyEnabled: *fuzzy,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response = &models.SearchResponse{}
		if err := callAPI(http.MethodPost, *serverURL, "/api/v1/search", query, response); err != nil {
			fail("Search failed", err)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fail("Failed to initialize", err)
		}
		defer components.Close()
		if response, err = components.Engine.Search(context.Background(), query); err != nil {
			fail("Search failed", err)
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fail("Output failed", err)
	}
}

// readHighlightRequest decodes a highlight request from r.
func readHighlightRequest(r io.Reader) (*models.HighlightRequest, error) {
	var req models.HighlightRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid highlight request: %w", err)
	}
	return &req, nil
}

func runHighlight() {
	fs := newFlagSet("highlight")
	configPath := fs.String("config", configPathDefault(), "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseFormat(*output)
	if err != nil {
		fail("Invalid flag", err)
	}
	req, err := readHighlightRequest(os.Stdin)
	if err != nil {
		fail("Highlight failed", err)
	}

	var response *models.HighlightResponse
	if *serverURL != "" {
		response = &models.HighlightResponse{}
		if err := callAPI(http.MethodPost, *serverURL, "/api/v1/highlight", req, response); err != nil {
			fail("Highlight failed", err)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fail("Failed to initialize", err)
		}
		defer components.Close()
		if response, err = components.Engine.Highlight(context.Background(), req); err != nil {
			fail("Highlight failed", err)
		}
	}
	if err := cli.WriteHighlight(os.Stdout, response, format); err != nil {
		fail("Output failed", err)
	}
}

func runIndex() {
	fs := newFlagSet("index")
	configPath := fs.String("config", configPathDefault(), "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: hikari index [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fail("Failed to stat path", err)
	}
	if info.IsDir() {
		n, err := components.Indexer.IndexDirectory(ctx, path, cfg.Watch.Extensions)
		if err != nil {
			fail("Indexing directory failed", err)
		}
		fmt.Printf("Indexed %d file(s) from %s\n", n, path)
		return
	}
	// A single named file is indexed whatever its extension.
	if err := components.Indexer.IndexFile(ctx, path, nil); err != nil {
		fail("Indexing failed", err)
	}
	absPath, _ := filepath.Abs(path)
	fmt.Printf("Document indexed successfully: %s\n", indexer.FileDocID(absPath))
}

func runDelete() {
	fs := newFlagSet("delete")
	configPath := fs.String("config", configPathDefault(), "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: hikari delete [flags] <document-id-or-file>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer components.Close()
	ctx := context.Background()
	if isIndexedFilePath(docID) {
		err = components.Indexer.DeleteFile(ctx, docID)
	} else {
		err = components.Indexer.DeleteDocument(ctx, docID)
	}
	if err != nil {
		fail("Deletion failed", err)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

// isIndexedFilePath reports whether arg names a file rather than a document ID.
func isIndexedFilePath(arg string) bool {
	if indexer.IsFileDocID(arg) {
		return false
	}
	info, err := os.Stat(arg)
	return err == nil && info.Mode().IsRegular()
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Documents        int64                  `json:"documents"`
	Fields           int64                  `json:"fields"`
	DiskUsageBytes   *int64                 `json:"disk_usage_bytes,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
	WatchDirectories []string               `json:"watch_directories,omitempty"`
}

func runStatus() {
	fs := newFlagSet("status")
	configPath := fs.String("config", configPathDefault(), "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseFormat(*output)
	if err != nil {
		fail("Invalid flag", err)
	}
	var status statusResponse
	if *serverURL != "" {
		if err := callAPI(http.MethodGet, *serverURL, "/api/v1/status", nil, &status); err != nil {
			fail("Status failed", err)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fail("Failed to initialize", err)
		}
		defer components.Close()
		ctx := context.Background()
		if status.Documents, err = components.Storage.CountDocuments(ctx); err != nil {
			fail("Count documents failed", err)
		}
		if status.Fields, err = components.Storage.CountFields(ctx); err != nil {
			fail("Count fields failed", err)
		}
		if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err == nil {
			status.DiskUsageBytes = &diskBytes
		}
		status.Config = map[string]interface{}{
			"database_path":    cfg.Storage.DatabasePath,
			"bleve_index_path": cfg.Storage.BleveIndexPath,
			"source":           cfg.Highlight.Source,
			"selector":         cfg.Highlight.Selector,
		}
	}
	writeStatus(os.Stdout, &status, format)
}

func writeStatus(w io.Writer, status *statusResponse, format cli.OutputFormat) {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	fmt.Fprintf(w, "documents:          %d   # count of stored documents\n", status.Documents)
	fmt.Fprintf(w, "fields:             %d   # count of stored field instances\n", status.Fields)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # storage + index on disk\n", *status.DiskUsageBytes)
	}
	for _, key := range []string{"database_path", "bleve_index_path", "source", "selector"} {
		if v, ok := status.Config[key]; ok {
			fmt.Fprintf(w, "%-19s %v\n", key+":", v)
		}
	}
	for _, d := range status.WatchDirectories {
		fmt.Fprintf(w, "watching:           %s\n", d)
	}
}
