package ballot

import (
	cryptorand "crypto/rand"
	"fmt"
	"math/big"
)

// NewRand draws a mask uniformly from [1, 2^128).
func NewRand() (*big.Int, error) {
	r, err := cryptorand.Int(cryptorand.Reader, new(big.Int).Sub(maxValue, big.NewInt(1)))
	if err != nil {
		return nil, fmt.Errorf("cannot draw mask: %w", err)
	}
	return r.Add(r, big.NewInt(1)), nil
}

// Mask returns value XOR rand. Applying it twice with the same rand gives
// value back, so it also de-masks.
func Mask(value, rand *big.Int) *big.Int {
	return new(big.Int).Xor(value, rand)
}

func inRange(v *big.Int, min int64) bool {
	return v != nil && v.Cmp(big.NewInt(min)) >= 0 && v.Cmp(maxValue) < 0
}
