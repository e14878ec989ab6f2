package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yegors/agentdeck/pkg/logger"
)

// Controller manages the lifecycle of one conversational session: the single
// transport connection, the append-only message log, the per-agent status
// map, and the agent selection. At most one live session per controller.
//
// All state mutation happens under one mutex, so inbound envelopes are
// applied atomically in arrival order regardless of which goroutine carries
// them in.
type Controller struct {
	baseURL string
	grace   time.Duration
	dialer  Dialer
	logger  *logger.Logger

	mu          sync.Mutex
	state       ConnState
	sessionID   string
	conn        Conn
	messages    []Message
	agentStatus map[string]AgentState
	selected    []string

	updates chan struct{}
}

// NewController creates a chat session controller. The grace duration is the
// window between opening the transport and sending start_session.
func NewController(gatewayBaseURL string, grace time.Duration, dialer Dialer, log *logger.Logger) *Controller {
	return &Controller{
		baseURL:     strings.TrimRight(gatewayBaseURL, "/"),
		grace:       grace,
		dialer:      dialer,
		logger:      log.Named("chat-controller"),
		state:       StateDisconnected,
		agentStatus: make(map[string]AgentState),
		updates:     make(chan struct{}, 1),
	}
}

// Updates signals that controller state changed and the view should re-read
// its snapshot. Coalesced; at most one pending notification.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Connect opens the session transport. Calling it while a connection attempt
// is in flight or a connection is open is a no-op. There is no automatic
// retry; a failed attempt surfaces an error message and returns.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	if c.sessionID == "" {
		c.sessionID = generateSessionID()
	}
	c.state = StateConnecting
	sessionID := c.sessionID
	c.mu.Unlock()
	c.notify()

	url := sessionURL(c.baseURL, sessionID)
	c.logger.Info("Connecting to conversation gateway",
		logger.String("session_id", sessionID),
		logger.String("url", url))

	conn, err := c.dialer.Dial(ctx, url)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.appendLocked(newMessage(KindError, "", fmt.Sprintf("Failed to connect to conversation gateway: %v", err)))
		c.mu.Unlock()
		c.notify()
		c.logger.Error("Connection attempt failed", logger.Error(err))
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.appendLocked(newMessage(KindSystem, "", "Connected to conversation gateway"))
	c.mu.Unlock()
	c.notify()

	go c.readLoop(conn)
	return nil
}

// readLoop pumps inbound envelopes until the transport closes
func (c *Controller) readLoop(conn Conn) {
	for {
		data, err := conn.Read()
		if err != nil {
			c.handleClosed(conn, err)
			return
		}
		c.dispatch(data)
	}
}

// handleClosed reacts to transport closure. If the controller already moved
// on (explicit EndSession swapped the conn out), the stale loop's closure is
// dropped silently.
func (c *Controller) handleClosed(conn Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	c.agentStatus = make(map[string]AgentState)
	c.appendLocked(newMessage(KindSystem, "", "Disconnected from conversation gateway"))
	c.mu.Unlock()
	c.notify()

	c.logger.Info("Session transport closed", logger.Error(err))
}

// StartSession begins a session with the given agents. If no connection
// exists it connects first, waits out the grace window, and sends
// start_session only if the connection is still up; otherwise the start
// request is dropped. If already connected it sends immediately.
func (c *Controller) StartSession(ctx context.Context, selectedAgents []string) error {
	agents := normalizeAgents(selectedAgents)
	if len(agents) == 0 {
		return fmt.Errorf("at least one agent must be selected")
	}

	c.mu.Lock()
	state := c.state
	c.selected = agents
	conn := c.conn
	c.mu.Unlock()
	c.notify()

	if state == StateConnected && conn != nil {
		return c.sendEnvelope(conn, outboundEnvelope{Type: envTypeStartSession, Agents: agents})
	}
	if state == StateConnecting {
		return nil
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(c.grace)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	conn = c.conn
	connected := c.state == StateConnected && conn != nil
	c.mu.Unlock()

	if !connected {
		c.logger.Warn("Dropping start_session; connection not ready after grace window")
		return nil
	}
	return c.sendEnvelope(conn, outboundEnvelope{Type: envTypeStartSession, Agents: agents})
}

// SendUserMessage forwards user input. A no-op unless connected and the
// trimmed text is non-empty. The message is appended optimistically and every
// selected agent is marked thinking.
func (c *Controller) SendUserMessage(text string) error {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if text == "" || c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return nil
	}
	c.appendLocked(newMessage(KindUser, "", text))
	for _, agent := range c.selected {
		c.agentStatus[agent] = AgentThinking
	}
	conn := c.conn
	c.mu.Unlock()
	c.notify()

	return c.sendEnvelope(conn, outboundEnvelope{Type: envTypeUserMessage, Content: text})
}

// EndSession tears the session down. When connected, an end_session envelope
// is sent before closing the transport. Session identifier, connection state
// and the agent status map are cleared regardless of how the close goes.
func (c *Controller) EndSession() {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected && conn != nil
	c.conn = nil
	c.sessionID = ""
	c.state = StateDisconnected
	c.agentStatus = make(map[string]AgentState)
	c.mu.Unlock()
	c.notify()

	if conn == nil {
		return
	}
	if connected {
		if err := c.sendEnvelope(conn, outboundEnvelope{Type: envTypeEndSession}); err != nil {
			c.logger.Warn("Failed to send end_session before close", logger.Error(err))
		}
	}
	if err := conn.Close(); err != nil {
		c.logger.Debug("Transport close returned error", logger.Error(err))
	}
	c.logger.Info("Session ended")
}

// ToggleAgentSelection adds or removes an agent from the selected set.
// Selection is frozen once a connection exists; returns whether the toggle
// was applied.
func (c *Controller) ToggleAgentSelection(agentID string) bool {
	id := strings.ToLower(strings.TrimSpace(agentID))
	if id == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDisconnected {
		return false
	}
	for i, existing := range c.selected {
		if existing == id {
			c.selected = append(c.selected[:i], c.selected[i+1:]...)
			return true
		}
	}
	c.selected = append(c.selected, id)
	return true
}

// dispatch applies one inbound envelope to controller state. Malformed
// payloads and unknown types are logged and dropped, never fatal.
func (c *Controller) dispatch(data []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("Dropping malformed inbound envelope", logger.Error(err))
		return
	}

	c.mu.Lock()
	switch env.Type {
	case envTypeMessage:
		msg := newMessage(KindAgent, env.Sender, rawToString(env.Content))
		if env.Timestamp != "" {
			msg.Timestamp = env.Timestamp
		}
		c.appendLocked(msg)
		// A message from an agent means it finished thinking.
		if env.Sender != "" {
			c.agentStatus[strings.ToLower(env.Sender)] = AgentIdle
		}

	case envTypeStatus:
		if env.Agent != "" {
			c.agentStatus[strings.ToLower(env.Agent)] = AgentState(env.Status)
		}

	case envTypeError:
		text := env.Message
		if text == "" {
			text = "The conversation gateway reported an error"
		}
		c.appendLocked(newMessage(KindError, "", text))

	case envTypeSessionStarted:
		c.appendLocked(newMessage(KindSystem, "",
			fmt.Sprintf("Session started with agents: %s", strings.Join(env.Agents, ", "))))

	case envTypeActionResult:
		msg := newMessage(KindAction, "", rawToString(env.Result))
		msg.Action = env.Action
		msg.Success = env.Success
		c.appendLocked(msg)

	default:
		c.mu.Unlock()
		c.logger.Debug("Dropping envelope with unrecognized type", logger.String("type", env.Type))
		return
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) sendEnvelope(conn Conn, env outboundEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", env.Type, err)
	}
	if err := conn.Send(data); err != nil {
		c.logger.Error("Failed to send envelope",
			logger.String("type", env.Type),
			logger.Error(err))
		return fmt.Errorf("failed to send %s envelope: %w", env.Type, err)
	}
	return nil
}

// appendLocked appends to the message log. Caller holds the mutex.
func (c *Controller) appendLocked(msg Message) {
	c.messages = append(c.messages, msg)
}

// State returns the current connection state
func (c *Controller) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the current session identifier, empty when no session
// exists
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns a copy of the message log
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// AgentStatuses returns a copy of the per-agent status map
func (c *Controller) AgentStatuses() map[string]AgentState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]AgentState, len(c.agentStatus))
	for k, v := range c.agentStatus {
		out[k] = v
	}
	return out
}

// Selected returns a copy of the selected agent list in selection order
func (c *Controller) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.selected))
	copy(out, c.selected)
	return out
}

func normalizeAgents(agents []string) []string {
	out := make([]string, 0, len(agents))
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		id := strings.ToLower(strings.TrimSpace(a))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return fmt.Sprintf("chat_%d", time.Now().UnixNano())
}
