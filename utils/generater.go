package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateMRN returns a medical record number of the form MRN-XXXXXXXX.
func GenerateMRN() string {
	n, err := rand.Int(rand.Reader, big.NewInt(100000000))
	if err != nil {
		return "MRN-00000000"
	}
	return fmt.Sprintf("MRN-%08d", n.Int64())
}
