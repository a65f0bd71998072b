package crypto

import (
	"crypto/rand"
	"math/big"
)

// CodeAlphabet is the character set referral and invitation codes draw from.
// Kept to upper-case letters and digits so codes stay readable when shared aloud.
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomCodeSuffix returns length characters drawn uniformly from CodeAlphabet.
func RandomCodeSuffix(length int) (string, error) {
	if length <= 0 {
		length = 6
	}

	alphabetSize := big.NewInt(int64(len(CodeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		buf[i] = CodeAlphabet[n.Int64()]
	}

	return string(buf), nil
}
