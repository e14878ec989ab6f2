package chat

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind classifies entries in the chat log
type MessageKind string

const (
	KindUser   MessageKind = "user"
	KindAgent  MessageKind = "agent"
	KindSystem MessageKind = "system"
	KindError  MessageKind = "error"
	KindAction MessageKind = "action"
)

// AgentState is the per-agent activity indicator
type AgentState string

const (
	AgentIdle     AgentState = "idle"
	AgentThinking AgentState = "thinking"
)

// ConnState is the connection state of the session transport
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// Message is one entry in the append-only chat log. Entries are never
// mutated after insertion; the per-agent thinking indicator lives in the
// controller's status map, not on the message.
type Message struct {
	ID        string      `json:"id"`
	Kind      MessageKind `json:"kind"`
	Sender    string      `json:"sender,omitempty"`
	Content   string      `json:"content"`
	Action    string      `json:"action,omitempty"`  // action_result messages only
	Success   bool        `json:"success,omitempty"` // action_result messages only
	Timestamp string      `json:"timestamp"`         // ISO-8601
}

func newMessage(kind MessageKind, sender, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
