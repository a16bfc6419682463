// Package crypto implements the message-level encryption protocols the
// receive pipeline consumes: sealed 1:1 session messages, group-keyed
// messages and blinded community inbox messages.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"

	"swarmsync/internal/models"
)

// UserKeys is the current account's long-term identity.
type UserKeys struct {
	Ed25519       ed25519.PrivateKey
	X25519Private [32]byte
	X25519Public  [32]byte
}

// NewUserKeys derives the full identity from a 32-byte ed25519 seed.
func NewUserKeys(seed []byte) (*UserKeys, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	keys := &UserKeys{Ed25519: ed25519.NewKeyFromSeed(seed)}

	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	copy(keys.X25519Private[:], h[:32])

	pub, err := curve25519.X25519(keys.X25519Private[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive x25519 public key: %w", err)
	}
	copy(keys.X25519Public[:], pub)
	return keys, nil
}

// NewUserKeysFromHex accepts a hex-encoded seed as stored in the config file.
func NewUserKeysFromHex(seedHex string) (*UserKeys, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode ed25519 seed: %w", err)
	}
	return NewUserKeys(seed)
}

// GenerateUserKeys creates a fresh random identity.
func GenerateUserKeys() (*UserKeys, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return NewUserKeys(seed)
}

func (k *UserKeys) Ed25519Public() ed25519.PublicKey {
	return k.Ed25519.Public().(ed25519.PublicKey)
}

// SessionID is the account id other users address messages to.
func (k *UserKeys) SessionID() string {
	return models.SessionIDPrefixStandard + hex.EncodeToString(k.X25519Public[:])
}

// clampedScalar is the ed25519 private scalar matching Ed25519Public.
func (k *UserKeys) clampedScalar() (*edwards25519.Scalar, error) {
	h := sha512.Sum512(k.Ed25519.Seed())
	return edwards25519.NewScalar().SetBytesWithClamping(h[:32])
}

// SessionIDFromEd25519 converts a sender's ed25519 key to its session id.
func SessionIDFromEd25519(pub []byte) (string, error) {
	p, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return "", fmt.Errorf("invalid ed25519 public key: %w", err)
	}
	return models.SessionIDPrefixStandard + hex.EncodeToString(p.BytesMontgomery()), nil
}

// GroupIDFromSeed derives a group's session id from its identity seed.
func GroupIDFromSeed(seed []byte) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", fmt.Errorf("group identity seed must be %d bytes", ed25519.SeedSize)
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	return models.SessionIDPrefixGroup + hex.EncodeToString(pub), nil
}

// GroupPublicKey returns the ed25519 key a group id encodes.
func GroupPublicKey(groupID string) (ed25519.PublicKey, error) {
	return decodePrefixedKey(groupID, models.SessionIDPrefixGroup)
}

func x25519FromSessionID(sessionID string) ([]byte, error) {
	return decodePrefixedKey(sessionID, models.SessionIDPrefixStandard)
}

func decodePrefixedKey(id, prefix string) ([]byte, error) {
	if !strings.HasPrefix(id, prefix) || len(id) != 66 {
		return nil, fmt.Errorf("id %q is not a %s-prefixed key", id, prefix)
	}
	raw, err := hex.DecodeString(id[2:])
	if err != nil {
		return nil, fmt.Errorf("decode id: %w", err)
	}
	return raw, nil
}
