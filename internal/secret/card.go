package secret

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const maskTemplate = "**** **** **** "

// MaskNumber returns the display-safe form of a PAN: the last 4 characters
// prefixed with the fixed mask template. The full PAN never leaves the
// caller's scope in any other shape.
func MaskNumber(pan string) string {
	if len(pan) < 4 {
		return maskTemplate + pan
	}
	return maskTemplate + pan[len(pan)-4:]
}

// GenerateCardNumber generates a card number with the specified prefix and length
func GenerateCardNumber(prefix string, length int) (string, error) {
	if length < len(prefix) || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}

	digits := make([]byte, length-len(prefix))
	if _, err := rand.Read(digits); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(prefix)
	for _, b := range digits {
		builder.WriteByte(b%10 + '0')
	}

	return builder.String(), nil
}

// GenerateCVV generates a 3-digit CVV code
func GenerateCVV() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate CVV: %w", err)
	}
	return fmt.Sprintf("%d%d%d", b[0]%10, b[1]%10, b[2]%10), nil
}
