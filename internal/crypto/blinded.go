package crypto

import (
	"encoding/hex"
	"fmt"
	"io"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"

	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
)

const (
	blindedProtocol      = "blinded"
	blindedVersion  byte = 0x00
	ed25519KeySize       = 32
)

// blindingFactor derives the per-community scalar k from the server's key.
func blindingFactor(serverPublicKeyHex string) (*edwards25519.Scalar, error) {
	serverKey, err := hex.DecodeString(serverPublicKeyHex)
	if err != nil || len(serverKey) != 32 {
		return nil, fmt.Errorf("invalid community server public key %q", serverPublicKeyHex)
	}
	h := blake2b.Sum512(serverKey)
	return edwards25519.NewScalar().SetUniformBytes(h[:])
}

func blindPoint(k *edwards25519.Scalar, pub []byte) ([]byte, error) {
	p, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return nil, err
	}
	return new(edwards25519.Point).ScalarMult(k, p).Bytes(), nil
}

func blindedIDFromKey(key []byte) string {
	return models.SessionIDPrefixBlinded + hex.EncodeToString(key)
}

// BlindedID is the current account's identity within a community.
func (e *Engine) BlindedID(serverPublicKeyHex string) (string, error) {
	k, err := blindingFactor(serverPublicKeyHex)
	if err != nil {
		return "", err
	}
	blinded, err := blindPoint(k, e.keys.Ed25519Public())
	if err != nil {
		return "", err
	}
	return blindedIDFromKey(blinded), nil
}

func (e *Engine) blindedSecret(serverPublicKeyHex string, other, senderBlinded, recipientBlinded []byte) ([]byte, error) {
	k, err := blindingFactor(serverPublicKeyHex)
	if err != nil {
		return nil, err
	}
	a, err := e.keys.clampedScalar()
	if err != nil {
		return nil, err
	}
	ka := edwards25519.NewScalar().Multiply(k, a)

	otherPoint, err := new(edwards25519.Point).SetBytes(other)
	if err != nil {
		return nil, fmt.Errorf("invalid blinded key: %w", err)
	}
	shared := new(edwards25519.Point).ScalarMult(ka, otherPoint)

	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	h.Write(shared.Bytes())
	h.Write(senderBlinded)
	h.Write(recipientBlinded)
	return h.Sum(nil), nil
}

// EncryptBlinded encrypts a community inbox message to another blinded id.
func (e *Engine) EncryptBlinded(plaintext []byte, recipientBlindedID, serverPublicKeyHex string) ([]byte, error) {
	recipient, err := decodePrefixedKey(recipientBlindedID, models.SessionIDPrefixBlinded)
	if err != nil {
		return nil, err
	}
	senderID, err := e.BlindedID(serverPublicKeyHex)
	if err != nil {
		return nil, err
	}
	sender, _ := hex.DecodeString(senderID[2:])

	key, err := e.blindedSecret(serverPublicKeyHex, recipient, sender, recipient)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(e.rand, nonce); err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, concat(plaintext, e.keys.Ed25519Public()), nil)
	return concat([]byte{blindedVersion}, ciphertext, nonce), nil
}

// DecryptBlinded opens a community inbox message. The current account may be
// either party: outgoing copies are delivered back to the sender's inbox too.
// The sender's real session id is recovered and checked against its blinded id.
func (e *Engine) DecryptBlinded(ciphertext []byte, senderBlindedID, recipientBlindedID, serverPublicKeyHex string) ([]byte, string, error) {
	if len(ciphertext) < 1+chacha20poly1305.Overhead+chacha20poly1305.NonceSizeX {
		return nil, "", decryptionFailed(blindedProtocol, errCiphertextTooShort)
	}
	if ciphertext[0] != blindedVersion {
		return nil, "", decryptionFailed(blindedProtocol, errUnknownVersion)
	}

	sender, err := decodePrefixedKey(senderBlindedID, models.SessionIDPrefixBlinded)
	if err != nil {
		return nil, "", apperrors.InvalidSender(err.Error())
	}
	recipient, err := decodePrefixedKey(recipientBlindedID, models.SessionIDPrefixBlinded)
	if err != nil {
		return nil, "", apperrors.InvalidSender(err.Error())
	}

	me, err := e.BlindedID(serverPublicKeyHex)
	if err != nil {
		return nil, "", decryptionFailed(blindedProtocol, err)
	}
	var other []byte
	switch me {
	case recipientBlindedID:
		other = sender
	case senderBlindedID:
		other = recipient
	default:
		return nil, "", apperrors.InvalidSender("inbox message is not addressed to the current user")
	}

	key, err := e.blindedSecret(serverPublicKeyHex, other, sender, recipient)
	if err != nil {
		return nil, "", decryptionFailed(blindedProtocol, err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, "", decryptionFailed(blindedProtocol, err)
	}
	nonce := ciphertext[len(ciphertext)-chacha20poly1305.NonceSizeX:]
	body := ciphertext[1 : len(ciphertext)-chacha20poly1305.NonceSizeX]
	inner, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, "", decryptionFailed(blindedProtocol, errOpenFailed)
	}
	if len(inner) < ed25519KeySize {
		return nil, "", decryptionFailed(blindedProtocol, errCiphertextTooShort)
	}

	plaintext := inner[:len(inner)-ed25519KeySize]
	senderEd := inner[len(inner)-ed25519KeySize:]

	k, err := blindingFactor(serverPublicKeyHex)
	if err != nil {
		return nil, "", decryptionFailed(blindedProtocol, err)
	}
	reblinded, err := blindPoint(k, senderEd)
	if err != nil || blindedIDFromKey(reblinded) != senderBlindedID {
		return nil, "", apperrors.InvalidSender("sender key does not match blinded id")
	}
	senderID, err := SessionIDFromEd25519(senderEd)
	if err != nil {
		return nil, "", apperrors.InvalidSender(err.Error())
	}
	return plaintext, senderID, nil
}

// SessionIDMatchesBlindedID reports whether a blinded id belongs to a session id
// in the given community. The x25519 key loses the ed25519 sign bit, so both
// candidate points are tried.
func (e *Engine) SessionIDMatchesBlindedID(sessionID, blindedID, serverPublicKeyHex string) bool {
	x, err := x25519FromSessionID(sessionID)
	if err != nil || !models.IsBlindedID(blindedID) {
		return false
	}
	k, err := blindingFactor(serverPublicKeyHex)
	if err != nil {
		return false
	}

	u, err := new(field.Element).SetBytes(x)
	if err != nil {
		return false
	}
	one := new(field.Element).One()
	num := new(field.Element).Subtract(u, one)
	den := new(field.Element).Add(u, one)
	y := new(field.Element).Multiply(num, new(field.Element).Invert(den))

	for _, sign := range []byte{0x00, 0x80} {
		candidate := y.Bytes()
		candidate[31] = candidate[31]&0x7f | sign
		blinded, err := blindPoint(k, candidate)
		if err != nil {
			continue
		}
		if blindedIDFromKey(blinded) == blindedID {
			return true
		}
	}
	return false
}
