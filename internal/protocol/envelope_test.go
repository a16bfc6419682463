package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketEnvelope(t *testing.T) {
	env := &Envelope{
		Type:              EnvelopeSessionMessage,
		TimestampMs:       1000,
		Content:           []byte("ciphertext"),
		ServerTimestampMs: 1005,
	}

	got, err := UnwrapWebSocketEnvelope(WrapWebSocketEnvelope(env, 7))
	require.NoError(t, err)
	assert.Equal(t, env, got)
}

func TestUnwrapWebSocketEnvelope_MissingBody(t *testing.T) {
	_, err := UnwrapWebSocketEnvelope(appendVarint(nil, 1, webSocketRequestType))
	assert.ErrorIs(t, err, ErrMissingRequestBody)

	_, err = UnwrapWebSocketEnvelope([]byte{0xff, 0xff})
	assert.Error(t, err)
}

func TestPadding(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"empty", nil, 160},
		{"short", []byte("hi"), 160},
		{"block minus one", bytes.Repeat([]byte{1}, 159), 160},
		{"full block", bytes.Repeat([]byte{1}, 160), 320},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			padded := Pad(tt.data)
			assert.Len(t, padded, tt.want)
			assert.Equal(t, len(tt.data), len(Unpad(padded)))
		})
	}
}

func TestUnpad_LeavesUnpaddedDataAlone(t *testing.T) {
	data := []byte{1, 2, 3, 0, 0}
	assert.Equal(t, data, Unpad(data))
}
