// Package money holds the currency helpers shared by statements and bookkeeping
// records. Amounts are shopspring decimals; the agency books in USD and IQD.
package money

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code
type Currency string

const (
	USD Currency = "USD"
	IQD Currency = "IQD"
)

// ErrUnsupportedCurrency is returned for codes the agency does not book in
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// ParseCurrency normalizes and validates a currency code
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	switch c {
	case USD, IQD:
		return c, nil
	case "":
		return USD, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
}

// Places returns how many fraction digits are displayed for the currency
func (c Currency) Places() int32 {
	if c == IQD {
		return 0
	}
	return 2
}

var nonAmountChars = regexp.MustCompile(`[^0-9.\-]`)

// Parse reads a human-entered amount such as "1,250.50 $" or "IQD 15,000".
// Empty input is zero.
func Parse(text string) (decimal.Decimal, error) {
	clean := nonAmountChars.ReplaceAllString(text, "")
	if clean == "" || clean == "-" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	return amount, nil
}

// Format renders an amount with thousands separators and the currency code,
// e.g. "1,250.00 USD" or "-15,000 IQD".
func Format(amount decimal.Decimal, c Currency) string {
	return Group(amount, c.Places()) + " " + string(c)
}

// Group renders an amount rounded to places with comma thousands separators
func Group(amount decimal.Decimal, places int32) string {
	s := amount.StringFixed(places)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/3 + 1)
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(fracPart)
	return b.String()
}
