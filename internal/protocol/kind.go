package protocol

import "fmt"

// Kind is the closed set of message variants the receive pipeline understands.
type Kind int

const (
	KindVisibleMessage Kind = iota + 1
	KindReadReceipt
	KindTypingIndicator
	KindExpirationTimerUpdate
	KindUnsendRequest
	KindCallMessage
	KindMessageRequestResponse
	KindDataExtractionNotification
	KindGroupUpdateInvite
	KindGroupUpdatePromote
	KindGroupUpdateInfoChange
	KindGroupUpdateMemberChange
	KindGroupUpdateMemberLeft
	KindGroupUpdateMemberLeftNotification
	KindGroupUpdateInviteResponse
	KindGroupUpdateDeleteMemberContent
	KindLibSessionMessage
)

var kindNames = map[Kind]string{
	KindVisibleMessage:                    "visibleMessage",
	KindReadReceipt:                       "readReceipt",
	KindTypingIndicator:                   "typingIndicator",
	KindExpirationTimerUpdate:             "expirationTimerUpdate",
	KindUnsendRequest:                     "unsendRequest",
	KindCallMessage:                       "callMessage",
	KindMessageRequestResponse:            "messageRequestResponse",
	KindDataExtractionNotification:        "dataExtractionNotification",
	KindGroupUpdateInvite:                 "groupUpdateInvite",
	KindGroupUpdatePromote:                "groupUpdatePromote",
	KindGroupUpdateInfoChange:             "groupUpdateInfoChange",
	KindGroupUpdateMemberChange:           "groupUpdateMemberChange",
	KindGroupUpdateMemberLeft:             "groupUpdateMemberLeft",
	KindGroupUpdateMemberLeftNotification: "groupUpdateMemberLeftNotification",
	KindGroupUpdateInviteResponse:         "groupUpdateInviteResponse",
	KindGroupUpdateDeleteMemberContent:    "groupUpdateDeleteMemberContent",
	KindLibSessionMessage:                 "libSessionMessage",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown message kind %q", s)
}

// AllKinds lists every kind in declaration order.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, len(kindNames))
	for k := KindVisibleMessage; k <= KindLibSessionMessage; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
