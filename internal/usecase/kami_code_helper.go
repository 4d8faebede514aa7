package usecase

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"
)

// generateKamiCode creates a secure random redemption code: 16 uppercase
// hexadecimal characters drawn from a 128-bit random value. No uniqueness
// check against existing codes; collision odds are astronomically small.
func generateKamiCode() (string, error) {
	buffer := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buffer)[:16]), nil
}
