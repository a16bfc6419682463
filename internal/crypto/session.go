package crypto

import (
	"crypto/ed25519"

	"golang.org/x/crypto/nacl/box"
)

const sessionProtocol = "session"

// EncryptSession seals plaintext for a recipient session id. The sender's
// ed25519 key and a signature binding it to the recipient travel inside the box.
func (e *Engine) EncryptSession(plaintext []byte, recipientSessionID string) ([]byte, error) {
	recipient, err := x25519FromSessionID(recipientSessionID)
	if err != nil {
		return nil, err
	}
	edPub := e.keys.Ed25519Public()
	sig := ed25519.Sign(e.keys.Ed25519, concat(plaintext, edPub, recipient))

	var recipientKey [32]byte
	copy(recipientKey[:], recipient)
	return box.SealAnonymous(nil, concat(plaintext, edPub, sig), &recipientKey, e.rand)
}

// DecryptSession opens a sealed session message addressed to this account and
// returns the plaintext and the sender's session id.
func (e *Engine) DecryptSession(ciphertext []byte) ([]byte, string, error) {
	inner, ok := box.OpenAnonymous(nil, ciphertext, &e.keys.X25519Public, &e.keys.X25519Private)
	if !ok {
		return nil, "", decryptionFailed(sessionProtocol, errOpenFailed)
	}
	if len(inner) < ed25519.PublicKeySize+ed25519.SignatureSize {
		return nil, "", decryptionFailed(sessionProtocol, errCiphertextTooShort)
	}

	sigStart := len(inner) - ed25519.SignatureSize
	keyStart := sigStart - ed25519.PublicKeySize
	plaintext := inner[:keyStart]
	senderEd := inner[keyStart:sigStart]
	sig := inner[sigStart:]

	if !ed25519.Verify(senderEd, concat(plaintext, senderEd, e.keys.X25519Public[:]), sig) {
		return nil, "", decryptionFailed(sessionProtocol, errInvalidSignature)
	}
	sender, err := SessionIDFromEd25519(senderEd)
	if err != nil {
		return nil, "", decryptionFailed(sessionProtocol, err)
	}
	return plaintext, sender, nil
}
