package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type loginFixture struct {
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
}

func TestEncryptDecryptRecord_RoundTrip(t *testing.T) {
	key := testKey(t, "Sup3rSecret!", "user-42")

	in := loginFixture{Username: "a@b.com", Password: "p1", URL: "https://example.com"}

	p, err := EncryptRecord(in, key)
	require.NoError(t, err)

	var out loginFixture
	require.NoError(t, DecryptRecord(p, key, &out))
	require.Equal(t, in, out)
}

func TestEncryptRecord_Unserializable(t *testing.T) {
	key := testKey(t, "Sup3rSecret!", "user-42")

	_, err := EncryptRecord(make(chan int), key)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDecryptRecord_WrongKeyIsOpaque(t *testing.T) {
	key1 := testKey(t, "Sup3rSecret!", "user-42")
	key2 := testKey(t, "0therSecret!", "user-42")

	p, err := EncryptRecord(loginFixture{Username: "a@b.com"}, key1)
	require.NoError(t, err)

	var out loginFixture
	require.ErrorIs(t, DecryptRecord(p, key2, &out), ErrDecryptionFailed)
}

func TestDecryptRecord_MalformedPlaintextIsOpaque(t *testing.T) {
	key := testKey(t, "Sup3rSecret!", "user-42")

	// valid ciphertext that does not contain JSON
	p, err := Encrypt([]byte("not json at all"), key)
	require.NoError(t, err)

	var out loginFixture
	require.ErrorIs(t, DecryptRecord(p, key, &out), ErrDecryptionFailed)
}
