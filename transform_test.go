package dctdm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentityTransform(t *testing.T) {
	var tr Identity
	sealed, err := tr.Seal([]byte("plaintext"))
	require.NoError(t, err)
	require.Equal(t, []byte("plaintext"), sealed)

	opened, err := tr.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("plaintext"), opened)
}

func TestPassphraseRoundTrip(t *testing.T) {
	tr := Passphrase{Password: "correct horse battery staple"}
	sealed, err := tr.Seal([]byte("secret"))
	require.NoError(t, err)
	require.NotEqual(t, []byte("secret"), sealed)

	opened, err := tr.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), opened)
}

func TestPassphraseWrongPasswordFails(t *testing.T) {
	sealed, err := (Passphrase{Password: "pw"}).Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = (Passphrase{Password: "wrong"}).Open(sealed)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, ErrAuthenticationFailed, derr.Kind)
}

func TestPassphraseTamperedCiphertextFails(t *testing.T) {
	sealed, err := (Passphrase{Password: "pw"}).Seal([]byte("secret"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = (Passphrase{Password: "pw"}).Open(sealed)
	require.Error(t, err)
}

func TestPassphraseSealIsRandomized(t *testing.T) {
	tr := Passphrase{Password: "pw"}
	a, err := tr.Seal([]byte("secret"))
	require.NoError(t, err)
	b, err := tr.Seal([]byte("secret"))
	require.NoError(t, err)
	require.NotEqual(t, a, b, "distinct salts/nonces must produce distinct ciphertexts")
}
