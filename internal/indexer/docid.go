package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const fileIDPrefix = "file:"

// FileDocID returns the document ID of the file at path. The cleaned path is
// hashed, so re-ingesting a file replaces its previous passages.
func FileDocID(path string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return fileIDPrefix + hex.EncodeToString(sum[:])
}

// IsFileDocID reports whether id was produced by FileDocID.
func IsFileDocID(id string) bool {
	return strings.HasPrefix(id, fileIDPrefix) && len(id) == len(fileIDPrefix)+sha256.Size*2
}
