// Package tid generates sortable-time record keys: a 14-character base36
// id derived from a timestamp plus a random suffix, so lexical and
// chronological order coincide.
package tid

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	length         = 14
)

// New returns a 14-character base36 identifier whose lexical order matches
// generation order: a 10-character microsecond timestamp component followed
// by a 4-character random suffix to break ties within the same tick.
func New() string {
	return newAt(time.Now().UTC())
}

func newAt(t time.Time) string {
	micros := t.UnixMicro()
	var sb strings.Builder
	sb.WriteString(encodeBase36(micros, 10))
	sb.WriteString(randomBase36(length - 10))
	return sb.String()
}

func encodeBase36(n int64, width int) string {
	if n < 0 {
		n = 0
	}
	var digits []byte
	base := int64(len(base36Alphabet))
	for n > 0 {
		digits = append([]byte{base36Alphabet[n%base]}, digits...)
		n /= base
	}
	for len(digits) < width {
		digits = append([]byte{'0'}, digits...)
	}
	if len(digits) > width {
		digits = digits[len(digits)-width:]
	}
	return string(digits)
}

func randomBase36(width int) string {
	out := make([]byte, width)
	base := big.NewInt(int64(len(base36Alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			// crypto/rand failure is unrecoverable.
			panic(fmt.Sprintf("tid: random read failed: %v", err))
		}
		out[i] = base36Alphabet[n.Int64()]
	}
	return string(out)
}
