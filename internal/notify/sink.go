package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"swarmsync/internal/privacy"
)

// LogSink writes alerts to the log. It is the default when no desktop or push
// integration is configured.
type LogSink struct {
	logger  *logrus.Logger
	verbose bool
}

func NewLogSink(logger *logrus.Logger, verbose bool) *LogSink {
	return &LogSink{logger: logger, verbose: verbose}
}

func (s *LogSink) Deliver(_ context.Context, a Alert) error {
	fields := logrus.Fields{
		"notification_kind": a.Kind,
		"thread_id":         a.ThreadID,
		"author_id":         a.AuthorID,
		"app_state":         string(a.AppState),
	}
	if a.Mention {
		fields["mention"] = true
	}
	if a.Emoji != "" {
		fields["emoji"] = a.Emoji
	}
	if a.Body != "" {
		fields["body"] = a.Body
	}
	if !s.verbose {
		fields = privacy.MaskSensitiveFields(fields)
	}
	s.logger.WithFields(fields).Info("New notification")
	return nil
}
