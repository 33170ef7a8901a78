package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCodeShape(t *testing.T) {
	t.Parallel()
	for i := 0; i < 100; i++ {
		code := randomCode()
		require.Len(t, code, codeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q", r)
		}
	}
}

func TestRandomCodesDoNotRepeat(t *testing.T) {
	t.Parallel()
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		code := randomCode()
		require.False(t, seen[code], "code %s repeated", code)
		seen[code] = true
	}
}

func TestNewLobbyCodeRerollsTakenCodes(t *testing.T) {
	t.Parallel()
	rejections := 0
	code := newLobbyCode(func(string) bool {
		if rejections < 3 {
			rejections++
			return true
		}
		return false
	})

	assert.Len(t, code, codeLength)
	assert.Equal(t, 3, rejections, "every collision must force a re-roll")
}
