package models

// Config holds the application configuration
type Config struct {
	User          UserConfig          `json:"user" yaml:"user"`
	Database      DatabaseConfig      `json:"database" yaml:"database"`
	Feed          FeedConfig          `json:"feed" yaml:"feed"`
	Server        ServerConfig        `json:"server" yaml:"server"`
	Processing    ProcessingConfig    `json:"processing" yaml:"processing"`
	Notifications NotificationsConfig `json:"notifications" yaml:"notifications"`
	Attachments   AttachmentsConfig   `json:"attachments" yaml:"attachments"`
	Tracing       TracingConfig       `json:"tracing" yaml:"tracing"`
	Privacy       PrivacyConfig       `json:"privacy" yaml:"privacy"`
	Bootstrap     BootstrapConfig     `json:"bootstrap" yaml:"bootstrap"`
	LogLevel      string              `json:"log_level" yaml:"log_level"`
}

// UserConfig identifies the local account. Ed25519Seed is the 32-byte hex
// seed every other key is derived from.
type UserConfig struct {
	Ed25519Seed string `json:"ed25519_seed" yaml:"ed25519_seed"`
}

type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// FeedConfig holds the websocket delivery feed settings
type FeedConfig struct {
	URL              string `json:"url" yaml:"url"`
	PollURL          string `json:"poll_url" yaml:"poll_url"`
	PollIntervalSec  int    `json:"poll_interval_sec" yaml:"poll_interval_sec"`
	BackoffInitialMs int    `json:"backoff_initial_ms" yaml:"backoff_initial_ms"`
	BackoffMaxSec    int    `json:"backoff_max_sec" yaml:"backoff_max_sec"`
	ReadLimitBytes   int64  `json:"read_limit_bytes" yaml:"read_limit_bytes"`
}

type ServerConfig struct {
	ListenAddr      string `json:"listen_addr" yaml:"listen_addr"`
	ReadTimeoutSec  int    `json:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `json:"write_timeout_sec" yaml:"write_timeout_sec"`
	IdleTimeoutSec  int    `json:"idle_timeout_sec" yaml:"idle_timeout_sec"`
}

// ProcessingConfig tunes the receive pipeline and its background runners
type ProcessingConfig struct {
	Concurrency               int `json:"concurrency" yaml:"concurrency"`
	TypingTimeoutSec          int `json:"typing_timeout_sec" yaml:"typing_timeout_sec"`
	KeyPairRequestIntervalSec int `json:"key_pair_request_interval_sec" yaml:"key_pair_request_interval_sec"`
	JobIntervalSec            int `json:"job_interval_sec" yaml:"job_interval_sec"`
}

type NotificationsConfig struct {
	RatePerSec   float64 `json:"rate_per_sec" yaml:"rate_per_sec"`
	Burst        int     `json:"burst" yaml:"burst"`
	DedupeWindow int     `json:"dedupe_window" yaml:"dedupe_window"`
}

// AttachmentsConfig controls background attachment downloads.
type AttachmentsConfig struct {
	Dir                string          `json:"dir" yaml:"dir"`
	DownloadTimeoutSec int             `json:"download_timeout_sec" yaml:"download_timeout_sec"`
	MaxAttempts        int             `json:"max_attempts" yaml:"max_attempts"`
	BreakerFailures    int             `json:"breaker_failures" yaml:"breaker_failures"`
	BreakerCooldownSec int             `json:"breaker_cooldown_sec" yaml:"breaker_cooldown_sec"`
	MaxSizeMB          MediaSizeLimits `json:"max_size_mb" yaml:"max_size_mb"`
}

type MediaSizeLimits struct {
	Image    int `json:"image" yaml:"image"`
	Video    int `json:"video" yaml:"video"`
	Voice    int `json:"voice" yaml:"voice"`
	Document int `json:"document" yaml:"document"`
}

type TracingConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	UseStdout    bool    `json:"use_stdout" yaml:"use_stdout"`
	OTLPEndpoint string  `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	SampleRate   float64 `json:"sample_rate" yaml:"sample_rate"`
	Environment  string  `json:"environment" yaml:"environment"`
}

type PrivacyConfig struct {
	VerboseLogging bool `json:"verbose_logging" yaml:"verbose_logging"`
}

// BootstrapConfig seeds the config cache at startup until the config-sync
// subsystem delivers its own state.
type BootstrapConfig struct {
	BlockedContacts []string          `json:"blocked_contacts" yaml:"blocked_contacts"`
	Groups          []GroupBootstrap  `json:"groups" yaml:"groups"`
	Conversations   []ConversationRef `json:"conversations" yaml:"conversations"`
}

// GroupBootstrap carries the hex encoded symmetric keys of a group, newest first.
type GroupBootstrap struct {
	ID   string   `json:"id" yaml:"id"`
	Keys []string `json:"keys" yaml:"keys"`
}

type ConversationRef struct {
	ThreadID string        `json:"thread_id" yaml:"thread_id"`
	Variant  ThreadVariant `json:"variant" yaml:"variant"`
	Visible  bool          `json:"visible" yaml:"visible"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

// ApplicationState is passed to the notification sink so it can decide how
// loudly to surface a message.
type ApplicationState string

const (
	ApplicationActive     ApplicationState = "active"
	ApplicationBackground ApplicationState = "background"
	ApplicationInactive   ApplicationState = "inactive"
)
