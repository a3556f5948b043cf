package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// otpRange keeps every generated code in 100000-999999 so the code always
// renders as exactly six digits.
const (
	otpMin   = 100000
	otpRange = 900000
)

// GenerateOTPCode returns a uniformly random 6-digit code from a
// cryptographic random source, as a zero-padded string.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
