package secrets_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/myparcel/internal/secrets"
	"github.com/tournevent/myparcel/pkg/carrier"
)

const testHexKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestCipher_RoundTrip(t *testing.T) {
	c := secrets.NewCipher(testHexKey)

	enc, err := c.Encrypt("my-api-key-1234")
	require.NoError(t, err)
	assert.NotContains(t, enc, "my-api-key")

	plain, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "my-api-key-1234", plain)
}

func TestCipher_WireLayout(t *testing.T) {
	c := secrets.NewCipher(testHexKey)

	enc, err := c.Encrypt("abcd")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(enc)
	require.NoError(t, err)
	assert.Len(t, raw, 12+16+4)
}

func TestCipher_FreshIVPerCall(t *testing.T) {
	c := secrets.NewCipher(testHexKey)

	a, err := c.Encrypt("same")
	require.NoError(t, err)
	b, err := c.Encrypt("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCipher_Base64Key(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	c := secrets.NewCipher(key)

	enc, err := c.Encrypt("x")
	require.NoError(t, err)
	plain, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "x", plain)
}

func TestCipher_MissingKey(t *testing.T) {
	c := secrets.NewCipher("")

	_, err := c.Encrypt("x")

	assert.True(t, errors.Is(err, carrier.ErrMissingEncryptionKey))
	assert.Equal(t, carrier.KindConfiguration, carrier.KindOf(err))
	assert.False(t, c.Configured())
}

func TestCipher_WrongKeyLength(t *testing.T) {
	c := secrets.NewCipher(base64.StdEncoding.EncodeToString([]byte("short")))

	_, err := c.Encrypt("x")

	assert.True(t, errors.Is(err, carrier.ErrInvalidEncryptionKey))
}

func TestCipher_ShortPayload(t *testing.T) {
	c := secrets.NewCipher(testHexKey)

	_, err := c.Decrypt(base64.StdEncoding.EncodeToString([]byte("too short")))

	assert.True(t, errors.Is(err, carrier.ErrInvalidCiphertext))
}

func TestCipher_TamperedPayload(t *testing.T) {
	c := secrets.NewCipher(testHexKey)
	enc, err := c.Encrypt("secret")
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(enc)
	raw[len(raw)-1] ^= 0xff

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.True(t, errors.Is(err, carrier.ErrInvalidCiphertext))
}
