package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCode_Length(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"default length", 6, 6},
		{"short code", 4, 4},
		{"long code", 12, 12},
		{"zero falls back to default", 0, DefaultCodeLength},
		{"negative falls back to default", -3, DefaultCodeLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := GenerateCode(tt.length)
			assert.Len(t, code, tt.want, "GenerateCode(%d)", tt.length)
		})
	}
}

func TestGenerateCode_Alphabet(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := GenerateCode(6)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r),
				"code %q contains %q outside the alphabet", code, r)
		}
	}
}

func TestGenerateCode_Varies(t *testing.T) {
	// With 62^8 possibilities, any repeat in a small sample means the
	// randomness source is broken.
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[GenerateCode(8)] = true
	}
	assert.Greater(t, len(seen), 95, "expected generated codes to vary")
}
