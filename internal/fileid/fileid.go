// Package fileid derives stable source IDs from document contents, so the
// same solicitation dropped into the inbox twice is only processed once.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const prefix = "src:"

// SourceID returns the ID for a document with the given bytes. Identical
// content always yields the same ID regardless of file name.
func SourceID(content []byte) string {
	hash := sha256.Sum256(content)
	return prefix + hex.EncodeToString(hash[:])
}

// FileSourceID hashes the file at path without loading it into memory.
func FileSourceID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return prefix + hex.EncodeToString(h.Sum(nil)), nil
}
