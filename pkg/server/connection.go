package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tecu23/gameclock/pkg/events"
	"github.com/tecu23/gameclock/pkg/messages"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

type Connection struct {
	ID   uuid.UUID
	ws   *websocket.Conn // The underlying Websocket connection
	hub  *Hub
	send chan []byte // Buffered channel of outbound messages.

	mu     sync.Mutex // Guards closed and the send channel.
	closed bool

	publisher *events.Publisher
	logger    *zap.Logger
}

func NewConnection(
	ws *websocket.Conn,
	hub *Hub,
	publisher *events.Publisher,
	logger *zap.Logger,
) *Connection {
	id := uuid.New()
	return &Connection{
		ID:        id,
		ws:        ws,
		hub:       hub,
		send:      make(chan []byte, 256), // buffered for outgoing messages
		publisher: publisher,
		logger:    logger.With(zap.String("connection_id", id.String())),
	}
}

// ReadPump handles inbound messages from the client
func (c *Connection) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.ws.Close()

		// Publish connection closed event
		c.publisher.Publish(events.Event{
			Type: events.EventConnectionClosed,
			Payload: map[string]string{
				"connection_id": c.ID.String(),
			},
		})
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("read error", zap.Error(err))
			}
			break
		}

		// We only handle text
		if msgType != websocket.TextMessage {
			continue
		}

		var inbound messages.InboundMessage
		if err := json.Unmarshal(msg, &inbound); err != nil {
			c.logger.Warn("failed to parse inbound JSON", zap.Error(err))
			c.SendJSON(messages.OutboundMessage{
				Event:   messages.EventError,
				Payload: messages.ErrorPayload{Message: "invalid JSON message"},
			})
			continue
		}

		if !c.hub.Inbound(InboundHubMessage{Conn: c, Message: inbound}) {
			break
		}
	}
}

// WritePump handles outbound messages to the client and keeps the
// connection alive with pings
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				c.logger.Info("send channel closed for connection")
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON is a helper for sending JSON to this connection. Messages to a
// closed or backed-up connection are dropped.
func (c *Connection) SendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("error marshaling JSON", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping message")
	}
}

// close stops the write pump
func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
