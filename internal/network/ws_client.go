// Package network provides the WebSocket client used to follow a running
// recorder from another process.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"actionrecorder/internal/protocol"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Ping while no connection is open
var ErrNotConnected = errors.New("not connected")

// WSClient follows the log, progress and state stream of a running instance
type WSClient struct {
	hostAddr string
	token    string

	// RetryDelay is the pause between reconnection attempts
	RetryDelay time.Duration

	// Callbacks
	OnLog      func(protocol.LogPayload)
	OnProgress func(protocol.ProgressPayload)
	OnState    func(protocol.StatePayload)

	mu          sync.Mutex
	conn        *websocket.Conn
	isConnected bool
}

// NewWSClient creates a new WebSocket client for host:port
func NewWSClient(hostAddr, token string) *WSClient {
	return &WSClient{
		hostAddr:   hostAddr,
		token:      token,
		RetryDelay: 5 * time.Second,
	}
}

// Run connects and dispatches messages until ctx is done, reconnecting after
// every disconnect.
func (c *WSClient) Run(ctx context.Context) error {
	for {
		c.connect(ctx)

		// If connect returns, it means we disconnected. Wait a bit and retry.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.RetryDelay):
			log.Println("WS Client: Attempting reconnection...")
		}
	}
}

func (c *WSClient) connect(ctx context.Context) {
	u := url.URL{Scheme: "ws", Host: c.hostAddr, Path: "/ws"}
	log.Printf("WS Client: Connecting to %s", u.String())

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		log.Printf("WS Client: Connection failed: %v", err)
		return
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.isConnected = true
	c.mu.Unlock()

	log.Println("WS Client: Connected")

	// Closing the connection unblocks the read pump on shutdown.
	connDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-connDone:
		}
	}()

	c.readPump(conn)
	close(connDone)

	// Cleanup
	c.mu.Lock()
	c.isConnected = false
	c.conn = nil
	c.mu.Unlock()
}

func (c *WSClient) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(64 * 1024)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WS Client: Read error: %v", err)
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("WS Client: Invalid message: %v", err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *WSClient) handleMessage(msg protocol.Message) {
	bytes, _ := json.Marshal(msg.Payload)

	switch msg.Type {
	case protocol.TypeLog:
		var payload protocol.LogPayload
		if err := json.Unmarshal(bytes, &payload); err == nil && c.OnLog != nil {
			c.OnLog(payload)
		}

	case protocol.TypeProgress:
		var payload protocol.ProgressPayload
		if err := json.Unmarshal(bytes, &payload); err == nil && c.OnProgress != nil {
			c.OnProgress(payload)
		}

	case protocol.TypeState:
		var payload protocol.StatePayload
		if err := json.Unmarshal(bytes, &payload); err == nil && c.OnState != nil {
			c.OnState(payload)
		}
	}
}

// Ping asks the server for a fresh state message
func (c *WSClient) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(protocol.Message{Type: protocol.TypePing})
}

// IsConnected returns true if client is connected
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}
