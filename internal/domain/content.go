package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"unicode/utf8"
)

// ErrInvalidEncoding reports content that is not valid UTF-8.
var ErrInvalidEncoding = errors.New("content is not valid utf-8")

// ContentHash returns the hex SHA-256 fingerprint of content. The
// fingerprint is deterministic and content-only; it backs the no-op
// write check, so it must be collision-resistant, not a checksum.
func ContentHash(content string) (string, error) {
	if !utf8.ValidString(content) {
		return "", ErrInvalidEncoding
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:]), nil
}
