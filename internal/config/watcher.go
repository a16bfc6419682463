package config

import (
	"context"
	"crypto/sha256"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"swarmsync/internal/models"
)

const defaultWatchInterval = 5 * time.Second

// Change describes a reload. Only the sections flagged here are applied while
// running; anything listed in RestartRequired waits for the next start.
type Change struct {
	Old, New        *models.Config
	LogLevel        bool
	VerboseLogging  bool
	Bootstrap       bool
	RestartRequired []string
}

func (c Change) empty() bool {
	return !c.LogLevel && !c.VerboseLogging && !c.Bootstrap && len(c.RestartRequired) == 0
}

func diffConfig(prev, next *models.Config) Change {
	c := Change{
		Old:            prev,
		New:            next,
		LogLevel:       prev.LogLevel != next.LogLevel,
		VerboseLogging: prev.Privacy.VerboseLogging != next.Privacy.VerboseLogging,
		Bootstrap:      !reflect.DeepEqual(prev.Bootstrap, next.Bootstrap),
	}
	sections := []struct {
		name    string
		changed bool
	}{
		{"user", prev.User != next.User},
		{"database", prev.Database != next.Database},
		{"feed", prev.Feed != next.Feed},
		{"server", prev.Server != next.Server},
		{"processing", prev.Processing != next.Processing},
		{"notifications", prev.Notifications != next.Notifications},
		{"attachments", prev.Attachments != next.Attachments},
		{"tracing", prev.Tracing != next.Tracing},
	}
	for _, s := range sections {
		if s.changed {
			c.RestartRequired = append(c.RestartRequired, s.name)
		}
	}
	return c
}

// ConfigWatcher polls the config file and reports content changes. A file
// that fails to load or validate leaves the current config in place.
type ConfigWatcher struct {
	path     string
	interval time.Duration
	logger   *logrus.Logger

	mu        sync.RWMutex
	current   *models.Config
	digest    [sha256.Size]byte
	modTime   time.Time
	callbacks []func(Change)
}

// NewConfigWatcher starts from initial, the config the process is running
// with.
func NewConfigWatcher(path string, initial *models.Config, logger *logrus.Logger) *ConfigWatcher {
	cw := &ConfigWatcher{
		path:     path,
		interval: defaultWatchInterval,
		logger:   logger,
		current:  initial,
	}
	if data, err := os.ReadFile(path); err == nil {
		cw.digest = sha256.Sum256(data)
	}
	if stat, err := os.Stat(path); err == nil {
		cw.modTime = stat.ModTime()
	}
	return cw
}

func (cw *ConfigWatcher) Current() *models.Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.current
}

// OnChange registers fn to run after every accepted reload. Callbacks run on
// the watcher goroutine in registration order.
func (cw *ConfigWatcher) OnChange(fn func(Change)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, fn)
}

// Run polls until ctx ends.
func (cw *ConfigWatcher) Run(ctx context.Context) {
	cw.logger.WithField("path", cw.path).Info("Configuration watcher started")
	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("Configuration watcher stopped")
			return
		case <-ticker.C:
			cw.Check()
		}
	}
}

// Check reloads the file if its content changed since the last accepted or
// rejected version and reports whether a new config was adopted.
func (cw *ConfigWatcher) Check() bool {
	stat, err := os.Stat(cw.path)
	if err != nil {
		cw.logger.WithError(err).Warn("Failed to stat configuration file")
		return false
	}
	if stat.ModTime().Equal(cw.modTime) {
		return false
	}
	cw.modTime = stat.ModTime()

	data, err := os.ReadFile(cw.path)
	if err != nil {
		cw.logger.WithError(err).Warn("Failed to read configuration file")
		return false
	}
	digest := sha256.Sum256(data)
	if digest == cw.digest {
		return false
	}
	cw.digest = digest

	next, err := LoadConfig(cw.path)
	if err != nil {
		cw.logger.WithError(err).Error("Rejected configuration reload, keeping current configuration")
		return false
	}

	cw.mu.Lock()
	change := diffConfig(cw.current, next)
	cw.current = next
	callbacks := make([]func(Change), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	if change.empty() {
		cw.logger.Debug("Configuration file rewritten without effective changes")
		return true
	}
	cw.logChange(change)
	for _, fn := range callbacks {
		cw.runCallback(fn, change)
	}
	return true
}

func (cw *ConfigWatcher) runCallback(fn func(Change), change Change) {
	defer func() {
		if r := recover(); r != nil {
			cw.logger.WithField("panic", r).Error("Configuration change callback panicked")
		}
	}()
	fn(change)
}

func (cw *ConfigWatcher) logChange(c Change) {
	fields := logrus.Fields{
		"log_level":       c.LogLevel,
		"verbose_logging": c.VerboseLogging,
		"bootstrap":       c.Bootstrap,
	}
	if c.Bootstrap {
		fields["blocked"] = len(c.New.Bootstrap.BlockedContacts)
		fields["groups"] = len(c.New.Bootstrap.Groups)
		fields["conversations"] = len(c.New.Bootstrap.Conversations)
	}
	cw.logger.WithFields(fields).Info("Configuration reloaded")
	if len(c.RestartRequired) > 0 {
		cw.logger.WithField("sections", c.RestartRequired).Warn("Changed settings take effect after a restart")
	}
}
