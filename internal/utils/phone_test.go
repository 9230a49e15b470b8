package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPhone(t *testing.T) {
	assert.Equal(t, "525512345678", CleanPhone("+52 55 1234-5678"))
	assert.Equal(t, "50376487592", CleanPhone("(503) 7648 7592"))
	assert.Equal(t, "", CleanPhone("sin número"))
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "+525512345678", FormatPhone("52 55 1234 5678"))
	assert.Equal(t, "+525512345678", FormatPhone("+525512345678"))
}

func TestValidPhoneLength(t *testing.T) {
	assert.True(t, ValidPhoneLength("+525512345678"))
	assert.True(t, ValidPhoneLength("5512345678")) // 10 digits, lower bound
	assert.False(t, ValidPhoneLength("123456789"))
	assert.False(t, ValidPhoneLength("1234567890123456"))
	assert.False(t, ValidPhoneLength(""))
}
