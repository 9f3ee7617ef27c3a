package booking

import (
	"errors"
	"strings"
)

var (
	ErrEmptyName    = errors.New("customer name cannot be empty")
	ErrInvalidEmail = errors.New("invalid customer email")
)

// Contact is the customer contact information carried on a booking.
// Bookings are guest-checkout; there is no user account reference.
type Contact struct {
	name  string
	email string
}

func NewContact(name, email string) (Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Contact{}, ErrEmptyName
	}

	email = strings.TrimSpace(strings.ToLower(email))
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return Contact{}, ErrInvalidEmail
	}

	return Contact{name: name, email: email}, nil
}

func (c Contact) Name() string  { return c.name }
func (c Contact) Email() string { return c.email }

type Money struct {
	cents    int64
	currency string
}

func NewMoney(cents int64, currency string) (Money, error) {
	if cents < 0 {
		return Money{}, errors.New("money cannot be negative")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, errors.New("currency must be a 3-letter code")
	}
	return Money{cents: cents, currency: currency}, nil
}

func (m Money) Cents() int64     { return m.cents }
func (m Money) Currency() string { return m.currency }

// Equals compares amount and currency. Used by reconciliation to match
// the provider-reported paid amount against the expected total.
func (m Money) Equals(other Money) bool {
	return m.cents == other.cents && m.currency == other.currency
}
