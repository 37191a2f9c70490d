package services

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashImageBytes returns the lowercase hex SHA-256 digest of the original
// upload bytes. Dedup keys on the bytes as received, not the processed output.
func HashImageBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
