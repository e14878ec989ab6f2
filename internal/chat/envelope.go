package chat

import "encoding/json"

// Envelope type discriminators used on the conversation transport
const (
	// Client -> server
	envTypeStartSession = "start_session"
	envTypeUserMessage  = "user_message"
	envTypeEndSession   = "end_session"

	// Server -> client
	envTypeMessage        = "message"
	envTypeStatus         = "status"
	envTypeError          = "error"
	envTypeSessionStarted = "session_started"
	envTypeActionResult   = "action_result"
)

// outboundEnvelope is the client->server message unit
type outboundEnvelope struct {
	Type    string   `json:"type"`
	Agents  []string `json:"agents,omitempty"`
	Content string   `json:"content,omitempty"`
}

// inboundEnvelope is the server->client message unit. One struct covers all
// variants; the Type discriminator decides which fields are meaningful.
type inboundEnvelope struct {
	Type      string          `json:"type"`
	Sender    string          `json:"sender,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Agent     string          `json:"agent,omitempty"`
	Status    string          `json:"status,omitempty"`
	Message   string          `json:"message,omitempty"`
	Agents    []string        `json:"agents,omitempty"`
	Action    string          `json:"action,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Success   bool            `json:"success,omitempty"`
}

// rawToString renders a raw JSON value for the chat log. Plain strings are
// unquoted; structured values are kept as compact JSON text.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
