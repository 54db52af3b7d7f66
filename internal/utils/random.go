package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomDigits returns n cryptographically random decimal digits, zero padded
func RandomDigits(n int) (string, error) {
	if n <= 0 || n > 18 {
		return "", fmt.Errorf("invalid digit count %d", n)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}
