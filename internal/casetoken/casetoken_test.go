package casetoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_ProducesValidTokens(t *testing.T) {
	token, err := Generate()

	assert.NoError(t, err)
	assert.True(t, IsValid(token), "generated token %q must pass the format check", token)
	assert.Len(t, token, 23)
}

func TestGenerate_TokensDiffer(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := Generate()
		assert.NoError(t, err)
		assert.False(t, seen[token], "token %q generated twice", token)
		seen[token] = true
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected bool
	}{
		{
			name:     "Well-formed token",
			token:    "SR-0123456789ABCDEFGHJK",
			expected: true,
		},
		{
			name:     "Empty string",
			token:    "",
			expected: false,
		},
		{
			name:     "Missing prefix",
			token:    "XX-0123456789ABCDEFGHJK",
			expected: false,
		},
		{
			name:     "Too short",
			token:    "SR-0123456789",
			expected: false,
		},
		{
			name:     "Too long",
			token:    "SR-0123456789ABCDEFGHJKM",
			expected: false,
		},
		{
			name:     "Lowercase code",
			token:    "SR-0123456789abcdefghjk",
			expected: false,
		},
		{
			name:     "Excluded letter O",
			token:    "SR-O123456789ABCDEFGHJK",
			expected: false,
		},
		{
			name:     "Excluded letter I",
			token:    "SR-I123456789ABCDEFGHJK",
			expected: false,
		},
		{
			name:     "Report id is not a token",
			token:    "3f8a1c2e-9d4b-4a6f-8e21",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValid(tt.token))
		})
	}
}
