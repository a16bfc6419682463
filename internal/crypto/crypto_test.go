package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "swarmsync/internal/errors"
)

const testServerKey = "a03c383cf63c3c4efe67acc52112a6dd734b3a946b9545f488aaa93da7991238"

func newEngine(t *testing.T) *Engine {
	t.Helper()
	keys, err := GenerateUserKeys()
	require.NoError(t, err)
	return NewEngine(keys)
}

func TestUserKeys_SessionIDMatchesEd25519(t *testing.T) {
	keys, err := NewUserKeys(make([]byte, 32))
	require.NoError(t, err)

	fromEd, err := SessionIDFromEd25519(keys.Ed25519Public())
	require.NoError(t, err)
	assert.Equal(t, keys.SessionID(), fromEd)
	assert.True(t, strings.HasPrefix(keys.SessionID(), "05"))
	assert.Len(t, keys.SessionID(), 66)

	_, err = NewUserKeys([]byte{1, 2})
	assert.Error(t, err)
}

func TestSessionProtocol(t *testing.T) {
	alice, bob := newEngine(t), newEngine(t)

	ciphertext, err := alice.EncryptSession([]byte("hello"), bob.Keys().SessionID())
	require.NoError(t, err)

	plaintext, sender, err := bob.DecryptSession(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plaintext))
	assert.Equal(t, alice.Keys().SessionID(), sender)

	_, _, err = alice.DecryptSession(ciphertext)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDecryptionFailed))

	ciphertext[len(ciphertext)-1] ^= 0xff
	_, _, err = bob.DecryptSession(ciphertext)
	assert.Error(t, err)
}

func TestGroupProtocol(t *testing.T) {
	sender, receiver := newEngine(t), newEngine(t)
	groupID := "03" + strings.Repeat("ab", 32)
	oldKey := make([]byte, 32)
	currentKey := append(make([]byte, 31), 1)

	ciphertext, err := sender.EncryptGroup([]byte("group hello"), groupID, currentKey)
	require.NoError(t, err)

	plaintext, from, err := receiver.DecryptGroup(ciphertext, groupID, [][]byte{oldKey, currentKey})
	require.NoError(t, err)
	assert.Equal(t, "group hello", string(plaintext))
	assert.Equal(t, sender.Keys().SessionID(), from)

	_, _, err = receiver.DecryptGroup(ciphertext, groupID, [][]byte{oldKey})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDecryptionFailed))

	otherGroup := "03" + strings.Repeat("cd", 32)
	_, _, err = receiver.DecryptGroup(ciphertext, otherGroup, [][]byte{currentKey})
	assert.Error(t, err)
}

func TestBlindedProtocol(t *testing.T) {
	alice, bob := newEngine(t), newEngine(t)
	aliceBlinded, err := alice.BlindedID(testServerKey)
	require.NoError(t, err)
	bobBlinded, err := bob.BlindedID(testServerKey)
	require.NoError(t, err)

	ciphertext, err := alice.EncryptBlinded([]byte("inbox"), bobBlinded, testServerKey)
	require.NoError(t, err)

	t.Run("recipient", func(t *testing.T) {
		plaintext, sender, err := bob.DecryptBlinded(ciphertext, aliceBlinded, bobBlinded, testServerKey)
		require.NoError(t, err)
		assert.Equal(t, "inbox", string(plaintext))
		assert.Equal(t, alice.Keys().SessionID(), sender)
	})

	t.Run("sender's own copy", func(t *testing.T) {
		plaintext, sender, err := alice.DecryptBlinded(ciphertext, aliceBlinded, bobBlinded, testServerKey)
		require.NoError(t, err)
		assert.Equal(t, "inbox", string(plaintext))
		assert.Equal(t, alice.Keys().SessionID(), sender)
	})

	t.Run("third party", func(t *testing.T) {
		_, _, err := newEngine(t).DecryptBlinded(ciphertext, aliceBlinded, bobBlinded, testServerKey)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidSender))
	})

	t.Run("forged sender id", func(t *testing.T) {
		mallory := newEngine(t)
		malloryBlinded, err := mallory.BlindedID(testServerKey)
		require.NoError(t, err)
		forged, err := mallory.EncryptBlinded([]byte("x"), bobBlinded, testServerKey)
		require.NoError(t, err)

		_, _, err = bob.DecryptBlinded(forged, aliceBlinded, bobBlinded, testServerKey)
		assert.Error(t, err)

		_, _, err = bob.DecryptBlinded(forged, malloryBlinded, bobBlinded, testServerKey)
		assert.NoError(t, err)
	})
}

func TestSessionIDMatchesBlindedID(t *testing.T) {
	alice, bob := newEngine(t), newEngine(t)
	aliceBlinded, err := alice.BlindedID(testServerKey)
	require.NoError(t, err)

	assert.True(t, bob.SessionIDMatchesBlindedID(alice.Keys().SessionID(), aliceBlinded, testServerKey))
	assert.False(t, bob.SessionIDMatchesBlindedID(bob.Keys().SessionID(), aliceBlinded, testServerKey))
	assert.False(t, bob.SessionIDMatchesBlindedID(alice.Keys().SessionID(), "05"+aliceBlinded[2:], testServerKey))
}

func TestGroupIDFromSeed(t *testing.T) {
	seed := make([]byte, 32)
	seed[0] = 7
	groupID, err := GroupIDFromSeed(seed)
	require.NoError(t, err)

	pub, err := GroupPublicKey(groupID)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)), hex.EncodeToString(pub))

	msg := []byte("INFO_CHANGE1")
	engine := newEngine(t)
	assert.True(t, engine.Verify(pub, msg, ed25519.Sign(ed25519.NewKeyFromSeed(seed), msg)))
	assert.False(t, engine.Verify(pub[:10], msg, make([]byte, 64)))
}
