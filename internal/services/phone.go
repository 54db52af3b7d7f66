package services

import (
	"regexp"
	"strings"
)

var nonDigitRegex = regexp.MustCompile(`\D`)

// PhoneNormalizer maps free-form phone text to the canonical dialable form
// (country code + local number, digits only).
type PhoneNormalizer struct {
	CountryCode  string // e.g. "237"
	MobilePrefix string // first digit of local mobile numbers, e.g. "6"

	canonical *regexp.Regexp
}

// NewPhoneNormalizer creates a normalizer for the given country code and mobile prefix digit.
func NewPhoneNormalizer(countryCode, mobilePrefix string) PhoneNormalizer {
	cc := nonDigitRegex.ReplaceAllString(countryCode, "")
	mp := nonDigitRegex.ReplaceAllString(mobilePrefix, "")
	return PhoneNormalizer{
		CountryCode:  cc,
		MobilePrefix: mp,
		canonical:    regexp.MustCompile(`^` + cc + mp + `\d{8}$`),
	}
}

// Normalize strips all non-digits. A 9-digit local mobile number gets the
// country code prepended; anything else is returned as stripped digits.
func (p PhoneNormalizer) Normalize(raw string) string {
	digits := nonDigitRegex.ReplaceAllString(raw, "")
	localLen := 12 - len(p.CountryCode)

	switch {
	case len(digits) == localLen && strings.HasPrefix(digits, p.MobilePrefix):
		return p.CountryCode + digits
	case len(digits) == 12 && strings.HasPrefix(digits, p.CountryCode):
		return digits
	default:
		return digits
	}
}

// IsCanonical reports whether an already normalized number is a dialable
// mobile number: country code, mobile prefix digit, eight more digits.
func (p PhoneNormalizer) IsCanonical(phone string) bool {
	if p.canonical == nil {
		return false
	}
	return p.canonical.MatchString(phone)
}

// NormalizeAll normalizes a list, dropping entries with no digits and duplicates.
func (p PhoneNormalizer) NormalizeAll(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, r := range raw {
		n := p.Normalize(r)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// SenderIdentity turns a transport sender id ("whatsapp:+237...", "237...@c.us")
// into the normalized key used for sessions and privilege checks.
func (p PhoneNormalizer) SenderIdentity(from string) string {
	from = strings.TrimPrefix(strings.TrimSpace(from), "whatsapp:")
	if at := strings.Index(from, "@"); at >= 0 {
		from = from[:at]
	}
	return p.Normalize(from)
}
