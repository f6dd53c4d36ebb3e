package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const fileIDPrefix = "file:"

// FileDocID returns a stable document ID for the given absolute path.
// Same path always yields the same ID, so re-indexing replaces the document.
func FileDocID(absolutePath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return fileIDPrefix + hex.EncodeToString(hash[:])
}

// IsFileDocID reports whether id was produced by FileDocID.
func IsFileDocID(id string) bool {
	return strings.HasPrefix(id, fileIDPrefix) && len(id) == len(fileIDPrefix)+sha256.Size*2
}
