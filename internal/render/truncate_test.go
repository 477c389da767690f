package render

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than limit", "Maria", 12, "Maria"},
		{"exactly at limit", "abcdef", 6, "abcdef"},
		{"ascii cut", "abcdefgh", 4, "abcd"},
		{"multibyte at boundary", "João Conceição", 4, "João"},
		{"all multibyte", "あいうえお", 3, "あいう"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := truncate(tc.in, tc.n)
			assert.Equal(t, tc.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
