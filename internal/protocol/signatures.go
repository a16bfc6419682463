package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Admin signature payloads. Group admins sign these with the group's
// identity key so members can verify control messages offline.

func InviteSignaturePayload(memberSessionID string, sentTimestampMs int64) []byte {
	return []byte("INVITE" + memberSessionID + strconv.FormatInt(sentTimestampMs, 10))
}

func InfoChangeSignaturePayload(changeType InfoChangeType, sentTimestampMs int64) []byte {
	return []byte("INFO_CHANGE" + strconv.FormatUint(uint64(changeType), 10) + strconv.FormatInt(sentTimestampMs, 10))
}

func MemberChangeSignaturePayload(changeType MemberChangeType, sentTimestampMs int64) []byte {
	return []byte("MEMBER_CHANGE" + strconv.FormatUint(uint64(changeType), 10) + strconv.FormatInt(sentTimestampMs, 10))
}

func DeleteContentSignaturePayload(sentTimestampMs int64, memberSessionIDs, messageHashes []string) []byte {
	var b strings.Builder
	b.WriteString("DELETE_CONTENT")
	b.WriteString(strconv.FormatInt(sentTimestampMs, 10))
	for _, id := range memberSessionIDs {
		b.WriteString(id)
	}
	for _, h := range messageHashes {
		b.WriteString(h)
	}
	return []byte(b.String())
}

// LibSessionInstructionType identifies an out-of-band group instruction.
type LibSessionInstructionType byte

const (
	LibSessionKicked LibSessionInstructionType = 1
)

const (
	libSessionMemberSize      = 33
	libSessionInstructionSize = 1 + libSessionMemberSize + signatureSize
)

var ErrMalformedInstruction = errors.New("malformed group instruction")

// LibSessionInstruction is the decrypted payload of a LibSessionMessage:
// type(1) || member(33) || signature(64), the signature covering type||member.
type LibSessionInstruction struct {
	Type            LibSessionInstructionType
	MemberSessionID string
	Signature       []byte
}

// SignedBytes returns the part of the instruction covered by its signature.
func (i LibSessionInstruction) SignedBytes() ([]byte, error) {
	member, err := hex.DecodeString(i.MemberSessionID)
	if err != nil || len(member) != libSessionMemberSize {
		return nil, fmt.Errorf("%w: member id %q", ErrMalformedInstruction, i.MemberSessionID)
	}
	return append([]byte{byte(i.Type)}, member...), nil
}

func (i LibSessionInstruction) Encode() ([]byte, error) {
	signed, err := i.SignedBytes()
	if err != nil {
		return nil, err
	}
	if len(i.Signature) != signatureSize {
		return nil, fmt.Errorf("%w: signature must be %d bytes", ErrMalformedInstruction, signatureSize)
	}
	return append(signed, i.Signature...), nil
}

func DecodeLibSessionInstruction(b []byte) (LibSessionInstruction, error) {
	if len(b) != libSessionInstructionSize {
		return LibSessionInstruction{}, fmt.Errorf("%w: %d bytes", ErrMalformedInstruction, len(b))
	}
	return LibSessionInstruction{
		Type:            LibSessionInstructionType(b[0]),
		MemberSessionID: hex.EncodeToString(b[1 : 1+libSessionMemberSize]),
		Signature:       append([]byte(nil), b[1+libSessionMemberSize:]...),
	}, nil
}
