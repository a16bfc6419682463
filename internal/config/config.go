package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"swarmsync/internal/configcache"
	"swarmsync/internal/constants"
	"swarmsync/internal/models"
)

var (
	ErrMissingSeed    = models.ConfigError{Message: "missing user ed25519 seed"}
	ErrMissingDBPath  = models.ConfigError{Message: "missing database path"}
	ErrMissingFeedURL = models.ConfigError{Message: "missing feed url"}
)

const (
	EnvDBPath     = "SWARMSYNC_DB_PATH"
	EnvFeedURL    = "SWARMSYNC_FEED_URL"
	EnvListenAddr = "SWARMSYNC_LISTEN_ADDR"
	EnvLogLevel   = "SWARMSYNC_LOG_LEVEL"
	// EnvSeed keeps the account seed out of the config file.
	EnvSeed = "SWARMSYNC_ED25519_SEED"
	EnvMode = "SWARMSYNC_ENV"
)

// LoadConfig reads a JSON or YAML file, picked by extension, then applies
// environment overrides and defaults.
func LoadConfig(path string) (*models.Config, error) {
	if path == "" || strings.ContainsRune(path, 0) {
		return nil, fmt.Errorf("invalid config path: %q", path)
	}

	file, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - operator supplied path
	if err != nil {
		return nil, err
	}

	var config models.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, &config)
	default:
		err = json.Unmarshal(file, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}
	if err := validateSecurity(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validate(c *models.Config) error {
	if c.User.Ed25519Seed == "" {
		return ErrMissingSeed
	}
	if seed, err := hex.DecodeString(c.User.Ed25519Seed); err != nil || len(seed) != 32 {
		return models.ConfigError{Message: "user ed25519 seed must be 32 bytes of hex"}
	}

	if c.Database.Path == "" {
		c.Database.Path = constants.DefaultDatabasePath
	}
	if c.Feed.URL == "" && c.Feed.PollURL == "" {
		return ErrMissingFeedURL
	}
	if c.Feed.PollIntervalSec <= 0 {
		c.Feed.PollIntervalSec = constants.DefaultPollIntervalSec
	}
	if c.Feed.BackoffInitialMs <= 0 {
		c.Feed.BackoffInitialMs = constants.DefaultBackoffInitialMs
	}
	if c.Feed.BackoffMaxSec <= 0 {
		c.Feed.BackoffMaxSec = constants.DefaultBackoffMaxSec
	}
	if c.Feed.ReadLimitBytes <= 0 {
		c.Feed.ReadLimitBytes = constants.DefaultFeedReadLimitBytes
	}

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = constants.DefaultListenAddr
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.Processing.Concurrency <= 0 {
		c.Processing.Concurrency = constants.DefaultProcessingConcurrency
	}
	if c.Processing.TypingTimeoutSec <= 0 {
		c.Processing.TypingTimeoutSec = constants.DefaultTypingIndicatorTimeoutSec
	}
	if c.Processing.KeyPairRequestIntervalSec <= 0 {
		c.Processing.KeyPairRequestIntervalSec = constants.DefaultKeyPairRequestIntervalSec
	}
	if c.Processing.JobIntervalSec <= 0 {
		c.Processing.JobIntervalSec = constants.DefaultJobIntervalSec
	}

	if c.Notifications.RatePerSec <= 0 {
		c.Notifications.RatePerSec = constants.DefaultNotificationRatePerSec
	}
	if c.Notifications.Burst <= 0 {
		c.Notifications.Burst = constants.DefaultNotificationBurst
	}
	if c.Notifications.DedupeWindow <= 0 {
		c.Notifications.DedupeWindow = constants.DefaultNotificationDedupeWindow
	}

	if c.Attachments.Dir == "" {
		c.Attachments.Dir = constants.DefaultAttachmentsDir
	}
	if c.Attachments.DownloadTimeoutSec <= 0 {
		c.Attachments.DownloadTimeoutSec = constants.DefaultDownloadTimeoutSec
	}
	if c.Attachments.MaxAttempts <= 0 {
		c.Attachments.MaxAttempts = constants.DefaultDownloadMaxAttempts
	}
	if c.Attachments.BreakerFailures <= 0 {
		c.Attachments.BreakerFailures = constants.DefaultDownloadBreakerFailures
	}
	if c.Attachments.BreakerCooldownSec <= 0 {
		c.Attachments.BreakerCooldownSec = constants.DefaultDownloadBreakerCooldownSec
	}
	if c.Attachments.MaxSizeMB.Image == 0 {
		c.Attachments.MaxSizeMB.Image = constants.DefaultMaxImageSizeMB
	}
	if c.Attachments.MaxSizeMB.Video == 0 {
		c.Attachments.MaxSizeMB.Video = constants.DefaultMaxVideoSizeMB
	}
	if c.Attachments.MaxSizeMB.Voice == 0 {
		c.Attachments.MaxSizeMB.Voice = constants.DefaultMaxVoiceSizeMB
	}
	if c.Attachments.MaxSizeMB.Document == 0 {
		c.Attachments.MaxSizeMB.Document = constants.DefaultMaxDocumentSizeMB
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return models.ConfigError{Message: fmt.Sprintf("tracing sample rate must be between 0 and 1, got %v", c.Tracing.SampleRate)}
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("invalid log level %q", c.LogLevel)}
	}

	for i, g := range c.Bootstrap.Groups {
		if g.ID == "" {
			return models.ConfigError{Message: fmt.Sprintf("empty group id in bootstrap group %d", i)}
		}
		if len(g.Keys) == 0 {
			return models.ConfigError{Message: fmt.Sprintf("bootstrap group %s has no keys", g.ID)}
		}
	}
	for i, conv := range c.Bootstrap.Conversations {
		if conv.ThreadID == "" {
			return models.ConfigError{Message: fmt.Sprintf("empty thread id in bootstrap conversation %d", i)}
		}
	}
	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if path := os.Getenv(EnvDBPath); path != "" {
		c.Database.Path = path
	}
	if url := os.Getenv(EnvFeedURL); url != "" {
		c.Feed.URL = url
	}
	if addr := os.Getenv(EnvListenAddr); addr != "" {
		c.Server.ListenAddr = addr
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.LogLevel = level
	}
	if seed := os.Getenv(EnvSeed); seed != "" {
		c.User.Ed25519Seed = seed
	}
}

// validateSecurity rejects settings that leak identifiers into production logs.
func validateSecurity(c *models.Config) error {
	if os.Getenv(EnvMode) != "production" {
		return nil
	}
	if c.LogLevel == "debug" || c.LogLevel == "trace" {
		return models.ConfigError{Message: "debug logging should not be used in production"}
	}
	if c.Privacy.VerboseLogging {
		return models.ConfigError{Message: "verbose logging exposes session ids and must be off in production"}
	}
	return nil
}

// ApplyBootstrap seeds the config cache with the blocked contacts, group keys
// and conversations listed in the config file.
func ApplyBootstrap(cfg models.BootstrapConfig, state *configcache.State) error {
	for _, id := range cfg.BlockedContacts {
		state.SetBlocked(id, true)
	}
	for _, g := range cfg.Groups {
		keys := make([][]byte, 0, len(g.Keys))
		for _, k := range g.Keys {
			key, err := hex.DecodeString(k)
			if err != nil || len(key) != 32 {
				return models.ConfigError{Message: fmt.Sprintf("bootstrap group %s has an invalid key", g.ID)}
			}
			keys = append(keys, key)
		}
		state.SetGroup(g.ID, configcache.Group{Keys: keys})
	}
	for _, conv := range cfg.Conversations {
		state.SetConversation(conv.ThreadID, conv.Variant, configcache.Conversation{Visible: conv.Visible})
	}
	return nil
}
