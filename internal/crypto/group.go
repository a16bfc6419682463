package crypto

import (
	"crypto/ed25519"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

const groupProtocol = "group"

// EncryptGroup encrypts plaintext under a symmetric group key. The group id is
// bound as associated data so a ciphertext cannot be replayed into another group.
func (e *Engine) EncryptGroup(plaintext []byte, groupID string, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(e.rand, nonce); err != nil {
		return nil, err
	}
	edPub := e.keys.Ed25519Public()
	inner := concat(edPub, ed25519.Sign(e.keys.Ed25519, plaintext), plaintext)
	return append(nonce, aead.Seal(nil, nonce, inner, []byte(groupID))...), nil
}

// DecryptGroup tries each key, newest first as supplied, and returns the
// plaintext and the sender's session id.
func (e *Engine) DecryptGroup(ciphertext []byte, groupID string, keys [][]byte) ([]byte, string, error) {
	if len(ciphertext) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, "", decryptionFailed(groupProtocol, errCiphertextTooShort)
	}
	nonce := ciphertext[:chacha20poly1305.NonceSizeX]
	body := ciphertext[chacha20poly1305.NonceSizeX:]

	var inner []byte
	for _, key := range keys {
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			continue
		}
		if opened, err := aead.Open(nil, nonce, body, []byte(groupID)); err == nil {
			inner = opened
			break
		}
	}
	if inner == nil {
		return nil, "", decryptionFailed(groupProtocol, errNoMatchingKey)
	}
	if len(inner) < ed25519.PublicKeySize+ed25519.SignatureSize {
		return nil, "", decryptionFailed(groupProtocol, errCiphertextTooShort)
	}

	senderEd := inner[:ed25519.PublicKeySize]
	sig := inner[ed25519.PublicKeySize : ed25519.PublicKeySize+ed25519.SignatureSize]
	plaintext := inner[ed25519.PublicKeySize+ed25519.SignatureSize:]
	if !ed25519.Verify(senderEd, plaintext, sig) {
		return nil, "", decryptionFailed(groupProtocol, errInvalidSignature)
	}
	sender, err := SessionIDFromEd25519(senderEd)
	if err != nil {
		return nil, "", decryptionFailed(groupProtocol, err)
	}
	return plaintext, sender, nil
}
