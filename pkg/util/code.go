package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateClaimCode returns a 6-digit one-time code drawn uniformly from
// 100000-999999.
func GenerateClaimCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
