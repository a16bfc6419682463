package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignaturePayloads(t *testing.T) {
	member := "05" + strings.Repeat("ab", 32)

	assert.Equal(t, []byte("INVITE"+member+"1700"), InviteSignaturePayload(member, 1700))
	assert.Equal(t, []byte("INFO_CHANGE11700"), InfoChangeSignaturePayload(InfoChangeName, 1700))
	assert.Equal(t, []byte("MEMBER_CHANGE21700"), MemberChangeSignaturePayload(MemberChangeRemoved, 1700))
	assert.Equal(t, []byte("DELETE_CONTENT1700"+member+"h1h2"),
		DeleteContentSignaturePayload(1700, []string{member}, []string{"h1", "h2"}))
}

func TestLibSessionInstruction_EncodeDecode(t *testing.T) {
	member := "05" + strings.Repeat("cd", 32)
	sig := bytes.Repeat([]byte{7}, 64)

	encoded, err := LibSessionInstruction{Type: LibSessionKicked, MemberSessionID: member, Signature: sig}.Encode()
	require.NoError(t, err)
	assert.Len(t, encoded, 98)

	decoded, err := DecodeLibSessionInstruction(encoded)
	require.NoError(t, err)
	assert.Equal(t, LibSessionKicked, decoded.Type)
	assert.Equal(t, member, decoded.MemberSessionID)
	assert.Equal(t, sig, decoded.Signature)

	signed, err := decoded.SignedBytes()
	require.NoError(t, err)
	assert.Equal(t, encoded[:34], signed)
}

func TestLibSessionInstruction_Malformed(t *testing.T) {
	_, err := DecodeLibSessionInstruction([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedInstruction)

	_, err = LibSessionInstruction{Type: LibSessionKicked, MemberSessionID: "zz", Signature: make([]byte, 64)}.Encode()
	assert.ErrorIs(t, err, ErrMalformedInstruction)

	_, err = LibSessionInstruction{Type: LibSessionKicked, MemberSessionID: "05" + strings.Repeat("00", 32)}.Encode()
	assert.ErrorIs(t, err, ErrMalformedInstruction)
}
