package ticket

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyPrefix = errors.New("ticket prefix cannot be empty")
	ErrEmptyID     = errors.New("ticket identifier cannot be empty")
)

// MaxMintAttempts bounds the retry loop on a storage-level identifier
// collision before issuance fails hard.
const MaxMintAttempts = 3

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID mints a collision-resistant ticket identifier without a global
// sequence: {domain-prefix}-{UTC date}-{8-char random suffix}. Global
// uniqueness is enforced by the unique constraint on bookings.ticket_id;
// callers retry a bounded number of times on collision.
func NewID(prefix string, now time.Time) (string, error) {
	if prefix == "" {
		return "", ErrEmptyPrefix
	}

	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%s",
		prefix,
		now.UTC().Format("20060102"),
		idEncoding.EncodeToString(buf),
	), nil
}

// EncodeQR renders the ticket identifier as a QR PNG and returns it
// base64-encoded. The payload carries the identifier only, never PII,
// so a scanned code resolves through the ticket lookup endpoint.
func EncodeQR(ticketID string) (string, error) {
	if ticketID == "" {
		return "", ErrEmptyID
	}

	png, err := qrcode.Encode(ticketID, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(png), nil
}
