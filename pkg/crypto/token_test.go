package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(32)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	require.Len(t, raw, 32)

	other, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}

func TestHashToken(t *testing.T) {
	require.Equal(t, HashToken("abc"), HashToken("abc"))
	require.NotEqual(t, HashToken("abc"), HashToken("abd"))
	require.Len(t, HashToken("abc"), 64)
}

func TestShortID(t *testing.T) {
	id := ShortID(11)
	require.Len(t, id, 11)
	require.Regexp(t, "^[0-9a-f]+$", id)
	require.NotEqual(t, id, ShortID(11))
	require.Len(t, ShortID(0), 32)
	require.Len(t, ShortID(64), 32)
}
