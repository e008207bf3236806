// Package etl implements the document enrichment pipeline: run and attempt
// ledgers, the response validator, and the per-document state machine.
package etl

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// HashText returns the SHA-256 hex digest of s. Identical input always
// yields an identical fingerprint; this is the idempotency key for
// enrichment attempts.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashFile returns the SHA-256 hex digest of the file contents. Read
// failures propagate to the caller and are fatal to that unit of work.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "hash: open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "hash: read %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
