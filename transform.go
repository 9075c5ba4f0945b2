package dctdm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100_000
	saltSize         = 16
	keySize          = 32 // AES-256
)

// Transform is the opaque payload-boundary hook of spec §4.6: Seal prepares
// plaintext for framing, Open reverses it. The framing layer never
// inspects a Transform's output.
type Transform interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Identity is the no-passphrase Transform: both operations are the
// identity function, spec §4.6's "{ Identity, Passphrase(pw) }" tagged
// choice's first arm.
type Identity struct{}

func (Identity) Seal(plaintext []byte) ([]byte, error) { return plaintext, nil }
func (Identity) Open(sealed []byte) ([]byte, error)    { return sealed, nil }

// Passphrase is the password-based authenticated encryption arm of that
// tagged choice. Seal's output is salt(16) || nonce(12) || AES-256-GCM
// ciphertext, keyed by PBKDF2-HMAC-SHA256(pw, salt, 100000).
type Passphrase struct {
	Password string
}

func (p Passphrase) Seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, plainErr(ErrMalformedCiphertext, "could not generate salt: "+err.Error())
	}
	gcm, err := p.cipher(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, plainErr(ErrMalformedCiphertext, "could not generate nonce: "+err.Error())
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

func (p Passphrase) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < saltSize {
		return nil, plainErr(ErrMalformedCiphertext, "sealed blob is shorter than a salt")
	}
	salt := sealed[:saltSize]
	gcm, err := p.cipher(salt)
	if err != nil {
		return nil, err
	}
	rest := sealed[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return nil, plainErr(ErrMalformedCiphertext, "sealed blob is shorter than a nonce")
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, plainErr(ErrAuthenticationFailed, "wrong passphrase or tampered ciphertext")
	}
	return plaintext, nil
}

func (p Passphrase) cipher(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(p.Password), salt, pbkdf2Iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, plainErr(ErrMalformedCiphertext, "could not construct AES cipher: "+err.Error())
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, plainErr(ErrMalformedCiphertext, "could not construct AEAD mode: "+err.Error())
	}
	return gcm, nil
}
