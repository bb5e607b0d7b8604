package levelhandlers

import (
	"github.com/ThreeDotsLabs/watermill/message"
)

// Handlers consumes the level module's inbound topics.
type Handlers interface {
	HandleCalculationRequested(msg *message.Message) ([]*message.Message, error)
	HandleOwnerDisconnected(msg *message.Message) ([]*message.Message, error)
}
