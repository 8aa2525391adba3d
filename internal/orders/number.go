package orders

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const (
	orderNumberSuffixLen = 9
	base36Alphabet       = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// newOrderNumber formats ORD-<unix millis>-<9 upper-case base36 chars>.
func newOrderNumber(now time.Time, random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	suffix := make([]byte, orderNumberSuffixLen)
	limit := big.NewInt(int64(len(base36Alphabet)))
	for i := range suffix {
		n, err := rand.Int(random, limit)
		if err != nil {
			return "", fmt.Errorf("generate order number: %w", err)
		}
		suffix[i] = base36Alphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix), nil
}
