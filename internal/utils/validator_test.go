package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("jane@example.com"))
	assert.True(t, ValidateEmail("jane.doe+tag@sub.example.co"))
	assert.True(t, ValidateEmail("  jane@example.com  "))

	assert.False(t, ValidateEmail(""))
	assert.False(t, ValidateEmail("jane"))
	assert.False(t, ValidateEmail("jane@"))
	assert.False(t, ValidateEmail("jane@example"))
	assert.False(t, ValidateEmail("@example.com"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}

func TestValidateReason(t *testing.T) {
	assert.True(t, ValidateReason("Persistent stomach pain"))
	assert.False(t, ValidateReason("too short"))
	assert.False(t, ValidateReason("         padded        "))
	assert.False(t, ValidateReason(""))
}

func TestValidateRejectionReason(t *testing.T) {
	assert.True(t, ValidateRejectionReason("Fully booked that week"))
	assert.True(t, ValidateRejectionReason("12345"))
	assert.False(t, ValidateRejectionReason("nope"))
	assert.False(t, ValidateRejectionReason("   a  "))
}

func TestValidateName(t *testing.T) {
	assert.True(t, ValidateName("Jo"))
	assert.True(t, ValidateName("Jane Doe"))
	assert.False(t, ValidateName("J"))
	assert.False(t, ValidateName(strings.Repeat("x", 51)))
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("secret"))
	assert.False(t, ValidatePassword("short"))
	assert.False(t, ValidatePassword(""))
}

func TestValidateTimeOfDay(t *testing.T) {
	valid := []string{"00:00", "09:30", "14:05", "23:59"}
	for _, v := range valid {
		assert.True(t, ValidateTimeOfDay(v), v)
	}

	invalid := []string{"24:00", "9:30", "14:60", "14:5", "noon", "", "14:05:00"}
	for _, v := range invalid {
		assert.False(t, ValidateTimeOfDay(v), v)
	}
}
