package broadcast

import (
	"strings"
	"unicode"
)

// NormalizePhone reduces a phone number to international digits. Local Iraqi
// mobile numbers (07XXXXXXXXX) gain the 964 prefix. The empty string means
// the input is not a usable number.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if unicode.IsDigit(r) {
			// Arabic-Indic and Persian digits
			b.WriteRune('0' + digitValue(r))
		}
	}
	digits := b.String()
	digits = strings.TrimPrefix(digits, "00")

	if len(digits) == 11 && strings.HasPrefix(digits, "07") {
		digits = "964" + digits[1:]
	}
	if len(digits) < 8 || len(digits) > 15 {
		return ""
	}
	return digits
}

func digitValue(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩':
		return r - '٠'
	case r >= '۰' && r <= '۹':
		return r - '۰'
	}
	return 0
}

// ParseRecipients normalizes and de-duplicates numbers, keeping input order.
// Unusable entries are returned separately.
func ParseRecipients(raw []string) (valid, invalid []string) {
	seen := make(map[string]bool, len(raw))
	for _, entry := range raw {
		for _, part := range strings.FieldsFunc(entry, func(r rune) bool {
			return r == ',' || r == ';' || r == '\n'
		}) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			phone := NormalizePhone(part)
			if phone == "" {
				invalid = append(invalid, part)
				continue
			}
			if seen[phone] {
				continue
			}
			seen[phone] = true
			valid = append(valid, phone)
		}
	}
	return valid, invalid
}
