package pages

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	slugLength      = 6
	editTokenLength = 26
	alphabet        = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// generateSlug returns a short public identifier.
func generateSlug() (string, error) {
	return randomString(slugLength)
}

// generateEditToken returns a long secret used as the edit credential.
func generateEditToken() (string, error) {
	return randomString(editTokenLength)
}

// newEntityID returns an identifier for components, incidents and updates.
func newEntityID() string {
	return uuid.NewString()
}

func randomString(n int) (string, error) {
	alphabetSize := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}
