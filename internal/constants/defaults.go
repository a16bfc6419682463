package constants

// Storage
const (
	DefaultDatabasePath          = "swarmsync.db"
	DefaultDatabaseRetryAttempts = 3
	DefaultRetryBackoffMs        = 50
	DefaultMaxBackoffMs          = 1000
)

// Feed and polling
const (
	DefaultFeedURL               = "ws://127.0.0.1:8085/feed"
	DefaultPollIntervalSec       = 5
	DefaultBackoffInitialMs      = 500
	DefaultBackoffMaxSec         = 30
	DefaultProcessingConcurrency = 4
	DefaultFeedReadLimitBytes    = 4 << 20
)

// HTTP status server
const (
	DefaultListenAddr            = "127.0.0.1:8086"
	DefaultGracefulShutdownSec   = 30
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultInteractionPageSize   = 50
)

// Receive pipeline
const (
	// DefaultTypingIndicatorTimeoutSec expires a typing indicator that never received a stop.
	DefaultTypingIndicatorTimeoutSec = 20
	// DefaultKeyPairRequestIntervalSec throttles repeated group key requests per group.
	DefaultKeyPairRequestIntervalSec = 30
)

// Notifications
const (
	DefaultNotificationRatePerSec   = 5
	DefaultNotificationBurst        = 10
	DefaultNotificationDedupeWindow = 256
)

// Attachments
const (
	DefaultAttachmentsDir        = "attachments"
	DefaultDownloadTimeoutSec    = 60
	DefaultDownloadMaxAttempts   = 3
	DefaultDownloadRetryDelaySec = 30
	DefaultDownloadBatchSize     = 8
	// A host's circuit opens after this many consecutive retryable failures.
	DefaultDownloadBreakerFailures    = 5
	DefaultDownloadBreakerCooldownSec = 60
	DefaultMaxImageSizeMB             = 10
	DefaultMaxVideoSizeMB             = 100
	DefaultMaxVoiceSizeMB             = 16
	DefaultMaxDocumentSizeMB          = 100
	// DefaultJobIntervalSec is how often the job runner looks for due jobs.
	DefaultJobIntervalSec = 10
)

// Privacy settings
const (
	DefaultSessionIDMaskLength = 8
	DefaultBodyPreviewLength   = 16
)

// Status API input bounds
const (
	MaxInteractionPageSize = 500
	MaxThreadIDLength      = 512
	SessionIDHexLength     = 66
)
