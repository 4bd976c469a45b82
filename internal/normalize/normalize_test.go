package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	decomposed := "cafe\u0301"
	composed := "caf\u00e9"

	tests := []struct {
		mode Mode
		in   string
		want string
	}{
		{ModeNone, decomposed, decomposed},
		{ModeNone, "Hello", "Hello"},
		{ModeNFC, decomposed, composed},
		{ModeNFC, "Hello", "Hello"},
		{ModeFold, "Hello", "hello"},
		{ModeFold, "STRASSE", "strasse"},
		{ModeFold, "CAF\u00c9", composed},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.in, func(t *testing.T) {
			fn, err := New(tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fn(tt.in))
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, m)

	m, err = ParseMode(" FOLD ")
	require.NoError(t, err)
	assert.Equal(t, ModeFold, m)

	_, err = ParseMode("soundex")
	assert.Error(t, err)

	_, err = New("soundex")
	assert.Error(t, err)
}
