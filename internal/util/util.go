// Package util provides utility functions for content hashing.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

// CanonicalHash hashes the JSON encoding of v. Map keys are sorted by
// encoding/json, so equal maps hash equally.
func CanonicalHash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return ContentHash(data), nil
}
