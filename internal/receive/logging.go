package receive

import (
	"github.com/sirupsen/logrus"

	"swarmsync/internal/privacy"
)

// Standard field names for receive pipeline logs
const (
	LogFieldThreadID         = "thread_id"
	LogFieldThreadVariant    = "thread_variant"
	LogFieldMessageKind      = "message_kind"
	LogFieldSender           = "sender"
	LogFieldServerHash       = "server_hash"
	LogFieldUniqueIdentifier = "unique_identifier"
	LogFieldOrigin           = "origin"
	LogFieldNamespace        = "namespace"
	LogFieldInteractionID    = "interaction_id"
	LogFieldOperation        = "operation"
	LogFieldCount            = "count"
)

// fields builds a log entry, masking identifiers unless verbose logging is on.
func (r *Receiver) fields(f logrus.Fields) *logrus.Entry {
	if r.deps.VerboseLogging {
		return r.logger.WithFields(f)
	}
	return r.logger.WithFields(logrus.Fields(privacy.MaskSensitiveFields(f)))
}
