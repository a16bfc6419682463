package protocol

import (
	"errors"
)

type EnvelopeType uint32

const (
	EnvelopeSessionMessage     EnvelopeType = 6
	EnvelopeClosedGroupMessage EnvelopeType = 7
)

// Envelope is the outer wrapper a sender attaches around encrypted content.
type Envelope struct {
	Type              EnvelopeType
	Source            string
	TimestampMs       uint64
	Content           []byte
	ServerTimestampMs uint64
}

// ErrMissingRequestBody is returned for websocket frames that carry no envelope.
var ErrMissingRequestBody = errors.New("websocket message has no request body")

const webSocketRequestType = 1

// DecodeEnvelope parses a bare Envelope.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	e := &Envelope{}
	err := parseFields("Envelope", b, func(f field) (err error) {
		switch f.num {
		case 1:
			var v uint32
			v, err = f.asUint32("type")
			e.Type = EnvelopeType(v)
		case 2:
			e.Source, err = f.asString("source")
		case 5:
			e.TimestampMs, err = f.asUint("timestamp")
		case 8:
			e.Content, err = f.asBytes("content")
		case 10:
			e.ServerTimestampMs, err = f.asUint("serverTimestamp")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UnwrapWebSocketEnvelope extracts the Envelope carried in a websocket request frame,
// the wrapper swarm storage applies to default-namespace messages.
func UnwrapWebSocketEnvelope(b []byte) (*Envelope, error) {
	var body []byte
	err := parseFields("WebSocketMessage", b, func(f field) error {
		if f.num != 2 {
			return nil
		}
		raw, err := f.asMessage("request")
		if err != nil {
			return err
		}
		return f.nested("request", parseFields("WebSocketRequestMessage", raw, func(inner field) (err error) {
			if inner.num == 3 {
				body, err = inner.asBytes("body")
			}
			return err
		}))
	})
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, ErrMissingRequestBody
	}
	return DecodeEnvelope(body)
}

// EncodeEnvelope serializes e.
func EncodeEnvelope(e *Envelope) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(e.Type))
	b = appendString(b, 2, e.Source)
	b = appendVarint(b, 5, e.TimestampMs)
	b = appendBytes(b, 8, e.Content)
	b = appendVarint(b, 10, e.ServerTimestampMs)
	return b
}

// WrapWebSocketEnvelope wraps e the way swarm storage does for default-namespace messages.
func WrapWebSocketEnvelope(e *Envelope, requestID uint64) []byte {
	var req []byte
	req = appendString(req, 1, "PUT")
	req = appendString(req, 2, "/api/v1/message")
	req = appendBytes(req, 3, EncodeEnvelope(e))
	req = appendVarint(req, 4, requestID)

	var b []byte
	b = appendVarint(b, 1, webSocketRequestType)
	b = appendMessage(b, 2, req)
	return b
}
