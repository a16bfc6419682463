package integration_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swarmsync/internal/crypto"
	"swarmsync/internal/ingest"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

// Contact is a remote account able to send deliveries to the local user.
type Contact struct {
	Engine *crypto.Engine
}

func NewContact(t *testing.T) *Contact {
	t.Helper()
	keys, err := crypto.GenerateUserKeys()
	require.NoError(t, err)
	return &Contact{Engine: crypto.NewEngine(keys)}
}

func (c *Contact) ID() string {
	return c.Engine.Keys().SessionID()
}

// Frame encrypts content for recipient and wraps it as a swarm delivery.
func (c *Contact) Frame(t *testing.T, recipient string, sentMs int64, hash string, content *protocol.Content) ingest.Frame {
	t.Helper()
	ciphertext, err := c.Engine.EncryptSession(protocol.Pad(protocol.EncodeContent(content)), recipient)
	require.NoError(t, err)
	return ingest.Frame{
		Origin: models.NewSwarmOrigin(models.SwarmOrigin{
			PublicKey:         recipient,
			Namespace:         models.NamespaceDefault,
			ServerHash:        hash,
			ServerTimestampMs: sentMs,
		}),
		Data: protocol.WrapWebSocketEnvelope(&protocol.Envelope{
			Type:        protocol.EnvelopeSessionMessage,
			Source:      c.ID(),
			TimestampMs: uint64(sentMs),
			Content:     ciphertext,
		}, 1),
	}
}

func TextContent(body string) *protocol.Content {
	return &protocol.Content{DataMessage: &protocol.DataMessage{Body: body}}
}

func ReactionContent(targetMs int64, author, emoji string, action protocol.ReactionAction) *protocol.Content {
	return &protocol.Content{DataMessage: &protocol.DataMessage{
		Reaction: &protocol.ReactionProto{ID: uint64(targetMs), Author: author, Emoji: emoji, Action: action},
	}}
}

func UnsendContent(targetMs int64, author string) *protocol.Content {
	return &protocol.Content{UnsendRequest: &protocol.UnsendProto{TimestampMs: uint64(targetMs), Author: author}}
}
