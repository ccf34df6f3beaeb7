// Package ticketcode generates human-verifiable ticket short codes and the
// QR payloads that encode their verification URL.
package ticketcode

import (
	"crypto/rand"
	"fmt"
)

// alphabet omits 0/O, 1/I/L and U so codes survive being read out loud or
// written on a counter slip.
const alphabet = "23456789ABCDEFGHJKMNPQRSTVWXYZ"

// CodeLength is the short-code length. 30^8 leaves collision odds low
// enough that the issuing transaction's uniqueness re-check rarely loops.
const CodeLength = 8

// NewShortCode returns a random human-readable ticket code such as
// "TK-7XK2M9QD". Global uniqueness is enforced by the caller against
// storage, not here.
func NewShortCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	code := make([]byte, CodeLength)
	for i, b := range buf {
		code[i] = alphabet[int(b)%len(alphabet)]
	}
	return fmt.Sprintf("TK-%s", code), nil
}

// QRPayload builds the scannable verification URL for a short code.
func QRPayload(verifyBaseURL, shortCode string) string {
	return fmt.Sprintf("%s/%s", verifyBaseURL, shortCode)
}
