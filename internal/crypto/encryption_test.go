package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *FieldCipher {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	c, err := NewFieldCipher(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func TestFieldCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)
	phone := "+1234567890"

	enc, err := c.EncryptField(&phone)
	require.NoError(t, err)
	require.NotNil(t, enc)
	assert.NotEqual(t, phone, *enc)

	dec, err := c.DecryptField(enc)
	require.NoError(t, err)
	require.NotNil(t, dec)
	assert.Equal(t, phone, *dec)
}

func TestFieldCipher_NilValues(t *testing.T) {
	c := newTestCipher(t)

	enc, err := c.EncryptField(nil)
	require.NoError(t, err)
	assert.Nil(t, enc)

	dec, err := c.DecryptField(nil)
	require.NoError(t, err)
	assert.Nil(t, dec)
}

func TestFieldCipher_DisabledPassesThrough(t *testing.T) {
	c, err := NewFieldCipher("")
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	v := "plain"
	enc, err := c.EncryptField(&v)
	require.NoError(t, err)
	assert.Equal(t, "plain", *enc)
}

func TestFieldCipher_RejectsTamperedValue(t *testing.T) {
	c := newTestCipher(t)
	other := newTestCipher(t)
	v := "secret"

	enc, err := other.EncryptField(&v)
	require.NoError(t, err)

	_, err = c.DecryptField(enc)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	short := base64.StdEncoding.EncodeToString([]byte("abc"))
	_, err = c.DecryptField(&short)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	notBase64 := "%%%"
	_, err = c.DecryptField(&notBase64)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestNewFieldCipher_InvalidKey(t *testing.T) {
	_, err := NewFieldCipher(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.ErrorIs(t, err, ErrInvalidMasterKey)
}
