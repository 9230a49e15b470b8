package utils

import "strings"

// Phone handling mirrors the phone-input flow: clients send numbers like
// "+525512345678" or "5512345678". Users keep the "+"-prefixed form, the
// whitelist and OTP stores keep digits only.

// CleanPhone strips everything but digits.
func CleanPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhone returns the "+"-prefixed canonical form.
func FormatPhone(phone string) string {
	return "+" + CleanPhone(phone)
}

// ValidPhoneLength checks country code + local number bounds.
func ValidPhoneLength(phone string) bool {
	n := len(CleanPhone(phone))
	return n >= 10 && n <= 15
}
