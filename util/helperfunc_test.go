package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	list := []string{"cash", "transfer", "card"}

	assert.True(t, Contains("cash", list))
	assert.True(t, Contains("card", list))
	assert.False(t, Contains("cheque", list))
	assert.False(t, Contains("", list))
	assert.False(t, Contains("cash", nil))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "Giulia Rossi", "Giulia Rossi"},
		{"leading and trailing whitespace", "  Giulia Rossi  ", "Giulia Rossi"},
		{"internal whitespace collapsed", "Giulia   Rossi", "Giulia Rossi"},
		{"tabs and newlines", "Giulia\t\nRossi", "Giulia Rossi"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}
