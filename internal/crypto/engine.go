package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	stderrors "errors"
	"io"

	apperrors "swarmsync/internal/errors"
)

var (
	errCiphertextTooShort = stderrors.New("ciphertext too short")
	errOpenFailed         = stderrors.New("authentication failed")
	errInvalidSignature   = stderrors.New("invalid signature")
	errNoMatchingKey      = stderrors.New("no group key opened the message")
	errUnknownVersion     = stderrors.New("unsupported ciphertext version")
)

// Engine performs the protocol operations for one account. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	keys *UserKeys
	rand io.Reader
}

func NewEngine(keys *UserKeys) *Engine {
	return &Engine{keys: keys, rand: rand.Reader}
}

func (e *Engine) Keys() *UserKeys {
	return e.keys
}

// Verify checks an ed25519 signature, returning false for malformed inputs.
func (e *Engine) Verify(publicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}

func decryptionFailed(protocol string, err error) error {
	return apperrors.DecryptionFailed(protocol, err)
}

func concat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
