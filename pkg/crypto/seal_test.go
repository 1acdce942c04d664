package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	payload := []byte(`{"uid":"admin-1","isLoggedIn":true}`)

	sealed, err := Encrypt(payload, key)
	require.NoError(t, err)
	require.NotContains(t, sealed, "=")

	again, err := Encrypt(payload, key)
	require.NoError(t, err)
	require.NotEqual(t, sealed, again)

	opened, err := Decrypt(sealed, key)
	require.NoError(t, err)
	require.Equal(t, payload, opened)
}

func TestDecryptRejectsTampering(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	sealed, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)

	_, err = Decrypt(sealed, bytes.Repeat([]byte{0x22}, 32))
	require.Error(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)

	flipped := append([]byte(nil), raw...)
	flipped[len(flipped)-1] ^= 0xff
	_, err = Decrypt(base64.RawURLEncoding.EncodeToString(flipped), key)
	require.Error(t, err)

	versioned := append([]byte(nil), raw...)
	versioned[0] = 9
	_, err = Decrypt(base64.RawURLEncoding.EncodeToString(versioned), key)
	require.ErrorIs(t, err, errMalformedSeal)

	_, err = Decrypt("!!not base64!!", key)
	require.ErrorIs(t, err, errMalformedSeal)

	_, err = Decrypt(base64.RawURLEncoding.EncodeToString([]byte{sealVersion, 1, 2}), key)
	require.ErrorIs(t, err, errMalformedSeal)
}
