package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/agentdeck/pkg/logger"
)

// fakeConn is an in-memory transport double
type fakeConn struct {
	mu        sync.Mutex
	sent      [][]byte
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) Send(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return nil
}

func (c *fakeConn) Read() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(raw string) {
	c.inbound <- []byte(raw)
}

func (c *fakeConn) sentEnvelopes(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.sent))
	for _, data := range c.sent {
		var env map[string]any
		require.NoError(t, json.Unmarshal(data, &env))
		out = append(out, env)
	}
	return out
}

type fakeDialer struct {
	mu     sync.Mutex
	conn   *fakeConn
	err    error
	dials  int
	onDial func(*fakeConn)
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.onDial != nil {
		d.onDial(d.conn)
	}
	return d.conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func newTestController(t *testing.T) (*Controller, *fakeConn, *fakeDialer) {
	t.Helper()
	conn := newFakeConn()
	dialer := &fakeDialer{conn: conn}
	c := NewController("http://localhost:8000", 10*time.Millisecond, dialer, logger.NewNop())
	return c, conn, dialer
}

func countKind(messages []Message, kind MessageKind) int {
	n := 0
	for _, m := range messages {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

func TestStartSessionConnectsAndSendsStart(t *testing.T) {
	c, conn, dialer := newTestController(t)

	require.NoError(t, c.StartSession(context.Background(), []string{"gemini", "claude"}))

	assert.Equal(t, 1, dialer.dialCount())
	assert.Equal(t, StateConnected, c.State())
	assert.NotEmpty(t, c.SessionID())

	envs := conn.sentEnvelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, "start_session", envs[0]["type"])
	assert.Equal(t, []any{"gemini", "claude"}, envs[0]["agents"])
}

func TestStartSessionRequiresAgents(t *testing.T) {
	c, _, dialer := newTestController(t)

	require.Error(t, c.StartSession(context.Background(), nil))
	require.Error(t, c.StartSession(context.Background(), []string{"  "}))
	assert.Equal(t, 0, dialer.dialCount())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestStartSessionDroppedWhenConnectionLostInGraceWindow(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conn: conn}
	// The connection drops right after the dial, inside the grace window.
	dialer.onDial = func(fc *fakeConn) {
		go func() {
			time.Sleep(2 * time.Millisecond)
			fc.Close()
		}()
	}
	c := NewController("http://localhost:8000", 50*time.Millisecond, dialer, logger.NewNop())

	require.NoError(t, c.StartSession(context.Background(), []string{"gemini"}))

	assert.Empty(t, conn.sentEnvelopes(t))
	assert.Equal(t, StateDisconnected, c.State())
}

func TestConnectIsNoOpWhileConnected(t *testing.T) {
	c, _, dialer := newTestController(t)

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Connect(context.Background()))

	assert.Equal(t, 1, dialer.dialCount())
}

func TestConnectFailureSurfacesError(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conn: conn, err: errors.New("connection refused")}
	c := NewController("http://localhost:8000", time.Millisecond, dialer, logger.NewNop())

	require.Error(t, c.Connect(context.Background()))

	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 1, countKind(c.Messages(), KindError))
}

func TestSendUserMessage(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.StartSession(context.Background(), []string{"gemini", "claude"}))

	require.NoError(t, c.SendUserMessage("  hello there  "))

	messages := c.Messages()
	require.Equal(t, 1, countKind(messages, KindUser))
	assert.Equal(t, "hello there", messages[len(messages)-1].Content)

	statuses := c.AgentStatuses()
	assert.Equal(t, AgentThinking, statuses["gemini"])
	assert.Equal(t, AgentThinking, statuses["claude"])

	envs := conn.sentEnvelopes(t)
	require.Len(t, envs, 2) // start_session + user_message
	assert.Equal(t, "user_message", envs[1]["type"])
	assert.Equal(t, "hello there", envs[1]["content"])
}

func TestSendUserMessageNoOpWhenNotConnected(t *testing.T) {
	c, conn, _ := newTestController(t)

	require.NoError(t, c.SendUserMessage("hello"))

	assert.Empty(t, c.Messages())
	assert.Empty(t, conn.sentEnvelopes(t))
}

func TestSendUserMessageNoOpOnWhitespace(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.StartSession(context.Background(), []string{"gemini"}))
	before := len(c.Messages())

	require.NoError(t, c.SendUserMessage("   "))

	assert.Len(t, c.Messages(), before)
	assert.Len(t, conn.sentEnvelopes(t), 1) // start_session only
}

func TestInboundMessageResetsAgentStatus(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.StartSession(context.Background(), []string{"gemini"}))

	conn.push(`{"type":"status","agent":"Gemini","status":"thinking"}`)
	require.Eventually(t, func() bool {
		return c.AgentStatuses()["gemini"] == AgentThinking
	}, time.Second, time.Millisecond)

	conn.push(`{"type":"message","sender":"Gemini","content":"hi","timestamp":"2026-08-30T12:00:00Z"}`)
	require.Eventually(t, func() bool {
		return c.AgentStatuses()["gemini"] == AgentIdle
	}, time.Second, time.Millisecond)

	messages := c.Messages()
	require.Equal(t, 1, countKind(messages, KindAgent))
	last := messages[len(messages)-1]
	assert.Equal(t, "Gemini", last.Sender)
	assert.Equal(t, "hi", last.Content)
	assert.Equal(t, "2026-08-30T12:00:00Z", last.Timestamp)
}

func TestInboundMessageDefaultsTimestamp(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.Connect(context.Background()))

	conn.push(`{"type":"message","sender":"claude","content":"hi"}`)
	require.Eventually(t, func() bool {
		return countKind(c.Messages(), KindAgent) == 1
	}, time.Second, time.Millisecond)

	messages := c.Messages()
	assert.NotEmpty(t, messages[len(messages)-1].Timestamp)
}

func TestDispatchAppendsOnlyKnownTypes(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.Connect(context.Background()))
	baseline := len(c.Messages())

	conn.push(`{"type":"message","sender":"gemini","content":"a"}`)
	conn.push(`{"type":"error","message":"boom"}`)
	conn.push(`{"type":"session_started","agents":["gemini"]}`)
	conn.push(`{"type":"action_result","action":"search","result":"ok","success":true}`)
	conn.push(`{"type":"telemetry","payload":"ignored"}`)
	conn.push(`{"type":"status","agent":"gemini","status":"thinking"}`)

	require.Eventually(t, func() bool {
		return c.AgentStatuses()["gemini"] == AgentThinking
	}, time.Second, time.Millisecond)

	// Four log-bearing envelopes; unknown and status contribute zero.
	assert.Len(t, c.Messages(), baseline+4)
}

func TestMalformedEnvelopeIsDropped(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.Connect(context.Background()))
	baseline := len(c.Messages())

	conn.push(`{not json`)
	conn.push(`{"type":"message","sender":"gemini","content":"still alive"}`)

	require.Eventually(t, func() bool {
		return len(c.Messages()) == baseline+1
	}, time.Second, time.Millisecond)
	assert.Equal(t, StateConnected, c.State())
}

func TestErrorEnvelopeFallbackText(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.Connect(context.Background()))

	conn.push(`{"type":"error"}`)

	require.Eventually(t, func() bool {
		return countKind(c.Messages(), KindError) == 1
	}, time.Second, time.Millisecond)

	messages := c.Messages()
	assert.NotEmpty(t, messages[len(messages)-1].Content)
}

func TestActionResultPreservesFields(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.Connect(context.Background()))

	conn.push(`{"type":"action_result","action":"search","result":"42 hits","success":true}`)

	require.Eventually(t, func() bool {
		return countKind(c.Messages(), KindAction) == 1
	}, time.Second, time.Millisecond)

	messages := c.Messages()
	last := messages[len(messages)-1]
	assert.Equal(t, "search", last.Action)
	assert.Equal(t, "42 hits", last.Content)
	assert.True(t, last.Success)
}

func TestActionResultStructuredPayload(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.Connect(context.Background()))

	conn.push(`{"type":"action_result","action":"lookup","result":{"hits":42},"success":false}`)

	require.Eventually(t, func() bool {
		return countKind(c.Messages(), KindAction) == 1
	}, time.Second, time.Millisecond)

	messages := c.Messages()
	last := messages[len(messages)-1]
	assert.JSONEq(t, `{"hits":42}`, last.Content)
	assert.False(t, last.Success)
}

func TestToggleAgentSelection(t *testing.T) {
	c, _, _ := newTestController(t)

	assert.True(t, c.ToggleAgentSelection("Gemini"))
	assert.Equal(t, []string{"gemini"}, c.Selected())

	assert.True(t, c.ToggleAgentSelection("claude"))
	assert.Equal(t, []string{"gemini", "claude"}, c.Selected())

	assert.True(t, c.ToggleAgentSelection("gemini"))
	assert.Equal(t, []string{"claude"}, c.Selected())
}

func TestToggleAgentSelectionFrozenWhileConnected(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.StartSession(context.Background(), []string{"gemini"}))

	assert.False(t, c.ToggleAgentSelection("claude"))
	assert.Equal(t, []string{"gemini"}, c.Selected())
}

func TestEndSession(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.StartSession(context.Background(), []string{"gemini"}))
	require.NoError(t, c.SendUserMessage("hello"))

	c.EndSession()

	envs := conn.sentEnvelopes(t)
	require.NotEmpty(t, envs)
	assert.Equal(t, "end_session", envs[len(envs)-1]["type"])

	assert.Equal(t, StateDisconnected, c.State())
	assert.Empty(t, c.SessionID())
	assert.Empty(t, c.AgentStatuses())

	select {
	case <-conn.closed:
	default:
		t.Fatal("transport not closed after EndSession")
	}
}

func TestEndSessionWhileDisconnectedIsSafe(t *testing.T) {
	c, conn, _ := newTestController(t)

	c.EndSession()

	assert.Equal(t, StateDisconnected, c.State())
	assert.Empty(t, conn.sentEnvelopes(t))
}

func TestTransportClosureClearsAgentStatus(t *testing.T) {
	c, conn, _ := newTestController(t)
	require.NoError(t, c.StartSession(context.Background(), []string{"gemini"}))
	require.NoError(t, c.SendUserMessage("hello"))
	require.NotEmpty(t, c.AgentStatuses())

	conn.Close()

	require.Eventually(t, func() bool {
		return c.State() == StateDisconnected
	}, time.Second, time.Millisecond)
	assert.Empty(t, c.AgentStatuses())
}
