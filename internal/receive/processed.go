package receive

import (
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

// ProcessedMessage is the result of Parse: exactly one of Config or Standard is set.
type ProcessedMessage struct {
	Config   *ConfigMessage
	Standard *StandardMessage
}

// UniqueIdentifier is stable per physical delivery: the server hash for swarm
// messages, the server message id scoped by room or inbox server for
// community and inbox messages.
func (p *ProcessedMessage) UniqueIdentifier() string {
	switch {
	case p.Config != nil:
		return p.Config.UniqueIdentifier
	case p.Standard != nil:
		return p.Standard.UniqueIdentifier
	}
	return ""
}

// ConfigMessage is handed untouched to the config-sync subsystem.
type ConfigMessage struct {
	PublicKey         string
	Namespace         models.Namespace
	ServerHash        string
	ServerTimestampMs int64
	Data              []byte
	UniqueIdentifier  string
}

// StandardMessage feeds the variant dispatcher.
type StandardMessage struct {
	ThreadID         string
	ThreadVariant    models.ThreadVariant
	Namespace        models.Namespace
	Message          protocol.Message
	Content          *protocol.Content
	Info             protocol.MessageInfo
	UniqueIdentifier string
}
