package receive

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"swarmsync/internal/configcache"
	"swarmsync/internal/models"
)

// Store is the transactional storage scope the pipeline mutates. It is
// satisfied by *database.Tx.
type Store interface {
	AfterCommit(key string, fn func(ctx context.Context)) bool

	FetchThread(id string) (*models.Thread, error)
	CreateThreadIfMissing(th models.Thread) (*models.Thread, error)
	MarkThreadVisible(id string) (bool, error)
	UpdateThreadDisappearing(id string, cfg models.DisappearingConfig) error
	UpdateThreadName(id, name string) error

	FetchContact(id string) (*models.Contact, error)
	UpsertContactProfile(id, name, pictureURL string, key []byte, updatedAtMs int64) (bool, error)
	SetContactClientVersion(id string, version models.ClientVersion) (bool, error)
	SetContactDidApproveMe(id string, approved bool) error
	SetContactApproved(id string, approved bool) error

	InsertInteraction(i *models.Interaction) error
	FetchInteractionByKey(threadID string, timestampMs int64, variant models.InteractionVariant, authorID string) (*models.Interaction, error)
	FindInteraction(threadID string, timestampMs int64, authorID string) (*models.Interaction, error)
	UpdateInteractionDelivery(id int64, state models.InteractionState, serverHash string, wasRead bool) error
	MarkInteractionDeleted(id int64, variant models.InteractionVariant) error
	DeleteInteraction(id int64) error
	MarkOutgoingReadByRecipient(threadID string, timestampsMs []int64, readAtMs int64) (int64, error)
	DeleteInteractionsByHashes(threadID string, hashes []string) (int64, error)
	DeleteInteractionsByAuthors(threadID string, authorIDs []string, beforeMs int64) (int64, error)

	InsertAttachment(interactionID int64, albumIndex int, a models.Attachment) error
	InsertQuote(q models.Quote) error
	UpsertLinkPreview(p models.LinkPreview) error

	UpsertReaction(r models.Reaction) error
	RemoveReaction(interactionID int64, authorID, emoji string) (bool, error)

	UpsertGroupMember(m models.GroupMember) error
	RemoveGroupMember(groupID, profileID string) error
	FetchGroupMember(groupID, profileID string) (*models.GroupMember, error)
}

// Crypto is the protocol collaborator. Implementations must be stateless and
// safe for concurrent use.
type Crypto interface {
	Verify(publicKey, message, signature []byte) bool
	DecryptSession(ciphertext []byte) ([]byte, string, error)
	DecryptGroup(ciphertext []byte, groupID string, keys [][]byte) ([]byte, string, error)
	DecryptBlinded(ciphertext []byte, senderBlindedID, recipientBlindedID, serverPublicKeyHex string) ([]byte, string, error)
	BlindedID(serverPublicKeyHex string) (string, error)
	SessionIDMatchesBlindedID(sessionID, blindedID, serverPublicKeyHex string) bool
}

// JobScheduler queues background work. Calls are fire-and-forget.
type JobScheduler interface {
	EnqueueAttachmentDownload(ctx context.Context, threadID string, interactionID int64, attachmentID string)
	UpsertDisappearingMessages(ctx context.Context)
}

// Notification describes a user-facing alert for a stored interaction or reaction.
type Notification struct {
	Thread      *models.Thread
	Interaction *models.Interaction
	Reaction    *models.Reaction
	AppState    models.ApplicationState
}

// Notifier surfaces new content to the user.
type Notifier interface {
	NotifyUser(ctx context.Context, n Notification)
	NotifyReaction(ctx context.Context, n Notification)
}

// ConfigSink is the config-sync subsystem. It receives config-namespace
// messages, which bypass the message pipeline, and owns group key recovery.
type ConfigSink interface {
	MergeConfig(ctx context.Context, msg *ConfigMessage) error
	RequestGroupKeys(ctx context.Context, groupID string)
}

type Dependencies struct {
	UserSessionID string
	Crypto        Crypto
	Config        configcache.Cache
	ConfigMutator configcache.Mutator
	Jobs          JobScheduler
	Notifier      Notifier
	ConfigSink    ConfigSink
	Logger        *logrus.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// AppState defaults to reporting the application as active.
	AppState func() models.ApplicationState
	// VerboseLogging disables identifier masking in logs.
	VerboseLogging bool

	TypingTimeout          time.Duration
	KeyPairRequestInterval time.Duration
}
