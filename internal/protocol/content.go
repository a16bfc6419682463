package protocol

// Wire-level content structures. Absent fields decode to their zero value;
// unknown fields are skipped so newer clients can extend the schema.

const (
	// DataMessageFlagExpirationTimerUpdate marks a data message as a timer change.
	DataMessageFlagExpirationTimerUpdate uint32 = 2
)

type ReceiptType uint32

const (
	ReceiptDelivery ReceiptType = 0
	ReceiptRead     ReceiptType = 1
)

type TypingAction uint32

const (
	TypingStarted TypingAction = 0
	TypingStopped TypingAction = 1
)

type CallKind uint32

const (
	CallOffer             CallKind = 1
	CallAnswer            CallKind = 2
	CallProvisionalAnswer CallKind = 3
	CallIceCandidates     CallKind = 4
	CallEndCall           CallKind = 5
	CallPreOffer          CallKind = 6
)

func (k CallKind) String() string {
	switch k {
	case CallOffer:
		return "offer"
	case CallAnswer:
		return "answer"
	case CallProvisionalAnswer:
		return "provisionalAnswer"
	case CallIceCandidates:
		return "iceCandidates"
	case CallEndCall:
		return "endCall"
	case CallPreOffer:
		return "preOffer"
	default:
		return "unknown"
	}
}

type ExtractionKind uint32

const (
	ExtractionUnknown    ExtractionKind = 0
	ExtractionScreenshot ExtractionKind = 1
	ExtractionMediaSaved ExtractionKind = 2
)

type ReactionAction uint32

const (
	ReactionReact  ReactionAction = 0
	ReactionRemove ReactionAction = 1
)

type InfoChangeType uint32

const (
	InfoChangeName                 InfoChangeType = 1
	InfoChangeAvatar               InfoChangeType = 2
	InfoChangeDisappearingMessages InfoChangeType = 3
)

type MemberChangeType uint32

const (
	MemberChangeAdded    MemberChangeType = 1
	MemberChangeRemoved  MemberChangeType = 2
	MemberChangePromoted MemberChangeType = 3
)

// Content is the decrypted top-level payload of every non-config message.
type Content struct {
	DataMessage            *DataMessage
	CallMessage            *CallMessageProto
	ReceiptMessage         *ReceiptMessage
	TypingMessage          *TypingMessage
	DataExtraction         *DataExtractionProto
	UnsendRequest          *UnsendProto
	MessageRequestResponse *MessageRequestResponseProto
	ExpirationType         uint32
	ExpirationTimer        uint32
	SigTimestampMs         uint64
}

type DataMessage struct {
	Body        string
	Attachments []AttachmentPointer
	Flags       uint32
	ExpireTimer uint32
	ProfileKey  []byte
	TimestampMs uint64
	Quote       *QuoteProto
	Preview     []PreviewProto
	Reaction    *ReactionProto
	Profile     *ProfileProto
	SyncTarget  string
	GroupUpdate *GroupUpdateMessage
}

type AttachmentPointer struct {
	ID          uint64
	ContentType string
	Key         []byte
	Size        uint32
	Digest      []byte
	FileName    string
	Width       uint32
	Height      uint32
	Caption     string
	URL         string
}

type QuoteProto struct {
	ID     uint64
	Author string
	Text   string
}

type PreviewProto struct {
	URL   string
	Title string
}

type ReactionProto struct {
	ID     uint64
	Author string
	Emoji  string
	Action ReactionAction
}

type ProfileProto struct {
	DisplayName    string
	ProfilePicture string
}

type CallMessageProto struct {
	Type CallKind
	SDPs []string
	UUID string
}

type ReceiptMessage struct {
	Type       ReceiptType
	Timestamps []uint64
}

type TypingMessage struct {
	TimestampMs uint64
	Action      TypingAction
}

type DataExtractionProto struct {
	Type        ExtractionKind
	TimestampMs uint64
}

type UnsendProto struct {
	TimestampMs uint64
	Author      string
}

type MessageRequestResponseProto struct {
	IsApproved bool
	ProfileKey []byte
	Profile    *ProfileProto
}

// GroupUpdateMessage carries exactly one group control sub-message.
type GroupUpdateMessage struct {
	Invite                 *GroupInviteProto
	InfoChange             *GroupInfoChangeProto
	MemberChange           *GroupMemberChangeProto
	Promote                *GroupPromoteProto
	MemberLeft             *struct{}
	InviteResponse         *GroupInviteResponseProto
	DeleteMemberContent    *GroupDeleteMemberContentProto
	MemberLeftNotification *struct{}
}

type GroupInviteProto struct {
	GroupSessionID string
	Name           string
	MemberAuthData []byte
	AdminSignature []byte
}

type GroupInfoChangeProto struct {
	Type              InfoChangeType
	UpdatedName       string
	UpdatedExpiration uint32
	AdminSignature    []byte
}

type GroupMemberChangeProto struct {
	Type             MemberChangeType
	MemberSessionIDs []string
	HistoryShared    bool
	AdminSignature   []byte
}

type GroupPromoteProto struct {
	GroupIdentitySeed []byte
	Name              string
}

type GroupInviteResponseProto struct {
	IsApproved bool
}

type GroupDeleteMemberContentProto struct {
	MemberSessionIDs []string
	MessageHashes    []string
	AdminSignature   []byte
}
