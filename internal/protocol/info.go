package protocol

import (
	"encoding/json"
	"fmt"

	"swarmsync/internal/models"
)

// MessageInfo is the serializable snapshot of a classified message handed
// across the job/queue boundary.
type MessageInfo struct {
	Kind                      Kind                 `json:"kind"`
	ThreadVariant             models.ThreadVariant `json:"thread_variant"`
	ServerExpirationTimestamp int64                `json:"server_expiration_timestamp,omitempty"`
	Common                    Common               `json:"common"`
	// Content is the serialized wire content the message was built from.
	Content []byte `json:"content,omitempty"`
	// LibSessionCiphertext is set for messages that carry no wire content.
	LibSessionCiphertext []byte `json:"lib_session_ciphertext,omitempty"`
}

// NewMessageInfo snapshots a classified message and the content it came from.
func NewMessageInfo(m Message, content *Content, variant models.ThreadVariant, serverExpiration int64) MessageInfo {
	info := MessageInfo{
		Kind:                      m.Kind(),
		ThreadVariant:             variant,
		ServerExpirationTimestamp: serverExpiration,
		Common:                    *m.Base(),
	}
	if lib, ok := m.(*LibSessionMessage); ok {
		info.LibSessionCiphertext = lib.Ciphertext
		return info
	}
	if content != nil {
		info.Content = EncodeContent(content)
	}
	return info
}

// Message rebuilds the message and content a snapshot was taken from.
func (i MessageInfo) Message() (Message, *Content, error) {
	if i.Kind == KindLibSessionMessage {
		m := &LibSessionMessage{Common: i.Common, Ciphertext: i.LibSessionCiphertext}
		return m, &Content{SigTimestampMs: 0}, nil
	}

	content, err := DecodeContent(i.Content)
	if err != nil {
		return nil, nil, err
	}
	m, err := FromContent(content)
	if err != nil {
		return nil, nil, err
	}
	if m.Kind() != i.Kind {
		return nil, nil, fmt.Errorf("snapshot kind %s decoded as %s", i.Kind, m.Kind())
	}
	*m.Base() = i.Common
	return m, content, nil
}

func (i MessageInfo) MarshalBinary() ([]byte, error) {
	return json.Marshal(i)
}

func (i *MessageInfo) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, i)
}
