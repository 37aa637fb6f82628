package utils

import (
	"regexp"
	"strings"
)

const (
	// MinReasonLength is the minimum length of a booking reason.
	MinReasonLength = 10
	// MinRejectionReasonLength is the minimum length of a rejection reason.
	MinRejectionReasonLength = 5
	// MinPasswordLength is the minimum password length at registration.
	MinPasswordLength = 6
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks email format.
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// NormalizeEmail lowercases and trims an email for case-insensitive
// uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateReason checks the free-text booking reason.
func ValidateReason(reason string) bool {
	return len(strings.TrimSpace(reason)) >= MinReasonLength
}

// ValidateRejectionReason checks the free-text rejection reason.
func ValidateRejectionReason(reason string) bool {
	return len(strings.TrimSpace(reason)) >= MinRejectionReasonLength
}

// ValidateName checks a display name.
func ValidateName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return len(trimmed) >= 2 && len(trimmed) <= 50
}

// ValidatePassword checks password length at registration.
func ValidatePassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// ValidateTimeOfDay checks the HH:MM slot time format.
func ValidateTimeOfDay(t string) bool {
	matched, _ := regexp.MatchString(`^([01][0-9]|2[0-3]):[0-5][0-9]$`, t)
	return matched
}
