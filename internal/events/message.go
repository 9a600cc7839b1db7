package events

import "github.com/JacobNewton007/tus-demo/internal/media"

type MessageType string

const (
	MessageTypeEvent       MessageType = "event"
	MessageTypeConnected   MessageType = "connected"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeError       MessageType = "error"
)

// SubscribeAll is the subscription key for every media record.
const SubscribeAll = "*"

type IncomingMessage struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`
}

type OutgoingMessage struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error,omitempty"`
}

type EventMessage struct {
	Type  MessageType  `json:"type"`
	Event *media.Event `json:"event"`
}
