package payment

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
	"time"
)

const referencePrefix = "CBK"

var refEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewReference mints the transaction reference for a payment attempt:
// a domain prefix, a UTC timestamp and a random suffix. Uniqueness is
// additionally enforced by the primary key on payment_records.
func NewReference(now time.Time) (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return strings.Join([]string{
		referencePrefix,
		now.UTC().Format("20060102T150405"),
		refEncoding.EncodeToString(buf),
	}, "-"), nil
}
