package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const defaultOTPLength = 4

// generateOTP returns a random numeric code for delivery confirmation.
func generateOTP(length int) (string, error) {
	if length <= 0 {
		length = defaultOTPLength
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("reading randomness: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
