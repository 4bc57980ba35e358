package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Changes classifies scanned files against the indexing history.
type Changes struct {
	Added    []string // present on disk, not in history
	Modified []string // present in both, content hash differs
	Deleted  []string // in history, gone from disk
}

// Total returns the number of files needing work.
func (c *Changes) Total() int {
	return len(c.Added) + len(c.Modified) + len(c.Deleted)
}

// FileHash returns the SHA-256 hex digest of a file's raw bytes.
func FileHash(filePath string) (string, error) {
	// #nosec G304 -- paths come from the scanned archive directory
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", filePath, err)
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

// DocID converts a relative file path into a document ID by dropping the
// .md extension.
func DocID(relPath string) string {
	return strings.TrimSuffix(relPath, ".md")
}

// DetectChanges compares the current file set against the stored history,
// a map of relative path to content hash. Modified detection rehashes the
// files on disk, so it touches every file present in the history.
func DetectChanges(contentsDir string, current []string, history map[string]string) (*Changes, error) {
	changes := &Changes{}
	seen := make(map[string]struct{}, len(current))

	for _, rel := range current {
		seen[rel] = struct{}{}

		prevHash, known := history[rel]
		if !known {
			changes.Added = append(changes.Added, rel)
			continue
		}

		hash, err := FileHash(filepath.Join(contentsDir, rel))
		if err != nil {
			return nil, err
		}
		if hash != prevHash {
			changes.Modified = append(changes.Modified, rel)
		}
	}

	for rel := range history {
		if _, ok := seen[rel]; !ok {
			changes.Deleted = append(changes.Deleted, rel)
		}
	}

	sort.Strings(changes.Added)
	sort.Strings(changes.Modified)
	sort.Strings(changes.Deleted)
	return changes, nil
}
