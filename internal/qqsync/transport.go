package qqsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qqsync/webui-bridge/internal/biz/domain"
)

const handshakeTimeout = 10 * time.Second

// groupEvent is the subset of an OneBot group message event the bridge
// cares about.
type groupEvent struct {
	PostType    string `json:"post_type"`
	MessageType string `json:"message_type"`
	RawMessage  string `json:"raw_message"`
	Sender      struct {
		Nickname string `json:"nickname"`
		Card     string `json:"card"`
	} `json:"sender"`
}

// sendGroupAction is the OneBot send_group_msg API frame.
type sendGroupAction struct {
	Action string `json:"action"`
	Params struct {
		GroupID string `json:"group_id"`
		Message string `json:"message"`
	} `json:"params"`
}

// Transport maintains the WebSocket link to the OneBot endpoint (napcat).
// Inbound group messages are handed to the event callback; outbound sends
// go through a write lock so frames never interleave.
type Transport struct {
	url   string
	token string

	onGroupMessage func(sender, content string)

	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	lastPing   time.Time
	reconnects int
}

// NewTransport creates a transport for the given endpoint. The connection
// is not established until Connect.
func NewTransport(url, token string) *Transport {
	return &Transport{url: url, token: token}
}

// OnGroupMessage registers the inbound message callback. Must be set
// before Connect.
func (t *Transport) OnGroupMessage(fn func(sender, content string)) {
	t.onGroupMessage = fn
}

// Connect dials the endpoint and starts the read loop.
func (t *Transport) Connect(ctx context.Context) error {
	if t.url == "" {
		return fmt.Errorf("transport endpoint not configured")
	}

	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, t.url, header)
	if err != nil {
		return fmt.Errorf("dial transport: %w", err)
	}

	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
	}
	t.conn = conn
	t.connected = true
	t.lastPing = time.Now()
	t.mu.Unlock()

	go t.readLoop(conn)
	return nil
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if t.conn == conn {
				t.connected = false
			}
			t.mu.Unlock()
			log.Printf("[Transport] read loop ended: %v", err)
			return
		}

		t.mu.Lock()
		t.lastPing = time.Now()
		t.mu.Unlock()

		var event groupEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}
		if event.PostType != "message" || event.MessageType != "group" {
			continue
		}
		if t.onGroupMessage != nil {
			sender := event.Sender.Card
			if sender == "" {
				sender = event.Sender.Nickname
			}
			t.onGroupMessage(sender, event.RawMessage)
		}
	}
}

// SendGroupMessage pushes one text message to the target group.
func (t *Transport) SendGroupMessage(ctx context.Context, groupID, text string) error {
	t.mu.Lock()
	conn := t.conn
	connected := t.connected
	t.mu.Unlock()

	if conn == nil || !connected {
		return fmt.Errorf("send group message: %w", domain.ErrUnavailable)
	}

	action := sendGroupAction{Action: "send_group_msg"}
	action.Params.GroupID = groupID
	action.Params.Message = text

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := conn.WriteJSON(action); err != nil {
		return fmt.Errorf("send group message: %w", err)
	}
	return nil
}

// Restart tears the connection down and dials again, bounded by ctx.
func (t *Transport) Restart(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connected = false
	t.reconnects++
	t.mu.Unlock()

	return t.Connect(ctx)
}

// Status reports the current link state.
func (t *Transport) Status() domain.ConnectionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := domain.ConnectionStatus{
		WebSocketConnected: t.connected,
		BotOnline:          t.connected,
		ReconnectAttempts:  t.reconnects,
	}
	if !t.lastPing.IsZero() {
		status.LastPing = t.lastPing.Unix()
	}
	return status
}

// Close shuts the connection down.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connected = false
	if t.conn != nil {
		err := t.conn.Close()
		t.conn = nil
		return err
	}
	return nil
}
