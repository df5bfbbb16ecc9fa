// Package fileutil holds the file helpers of the ingest pipeline: fixity
// checksums, format tags and name sanitization.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// BlockSize is the read size used when hashing files
const BlockSize = 64 * 1024

// Checksum streams the file at path through SHA-256 and returns the hex digest.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ChecksumReader(f)
}

// ChecksumReader hashes r in BlockSize chunks.
func ChecksumReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, BlockSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
