package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// HashContent returns the hex SHA-256 of data.
func HashContent(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// GetHostname returns the hostname, or "unknown" if it cannot be read.
func GetHostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}
