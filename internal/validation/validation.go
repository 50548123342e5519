// Package validation holds the input policies shared by the client, user and
// operation services. All helpers return a ValidationError from the shared
// taxonomy; nothing here touches storage.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/qoricash/tradingdesk/internal/errors"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// DNI checks a Peruvian national id: exactly 8 digits.
func DNI(dni string) error {
	dni = strings.TrimSpace(dni)
	if dni == "" {
		return errors.Validation("dni is required")
	}
	if len(dni) != 8 || !allDigits(dni) {
		return errors.Validation("dni must be exactly 8 digits")
	}
	return nil
}

// Email checks basic address shape.
func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.Validation("email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.Validation("invalid email format")
	}
	return nil
}

// Phone checks a Peruvian phone number: 9 digits for mobile, 7 for landline.
// Empty input is accepted; phone is optional.
func Phone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	phone = strings.NewReplacer(" ", "", "-", "").Replace(phone)
	if (len(phone) != 7 && len(phone) != 9) || !allDigits(phone) {
		return errors.Validation("phone must be 7 or 9 digits")
	}
	return nil
}

// Password enforces the desk policy: at least 8 characters including a digit.
func Password(password string) error {
	if password == "" {
		return errors.Validation("password is required")
	}
	if len(password) < 8 {
		return errors.Validation("password must be at least 8 characters")
	}
	hasDigit := false
	for _, r := range password {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return errors.Validation("password must contain at least one digit")
	}
	return nil
}

// Amount checks a positive USD amount.
func Amount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.Validation("usd amount must be greater than 0")
	}
	return nil
}

// ExchangeRate checks a positive rate inside the configured plausible band
// (inclusive on both ends).
func ExchangeRate(rate, min, max decimal.Decimal) error {
	if rate.LessThanOrEqual(decimal.Zero) {
		return errors.Validation("exchange rate must be greater than 0")
	}
	if rate.LessThan(min) || rate.GreaterThan(max) {
		return errors.Validation("exchange rate outside expected band (%s - %s)", min, max)
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
