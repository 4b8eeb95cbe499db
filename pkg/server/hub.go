package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/gameclock/pkg/events"
	"github.com/tecu23/gameclock/pkg/game"
	"github.com/tecu23/gameclock/pkg/manager"
	"github.com/tecu23/gameclock/pkg/messages"
)

// InboundHubMessage are the messages that the hub receives
type InboundHubMessage struct {
	Conn    *Connection             // who sent it
	Message messages.InboundMessage // raw JSON or texthub
}

// Hub keeps track of all active connections and of the games each one
// follows. Messages come from the inbound channel and are routed to the
// game manager; game events are forwarded to the connections following
// the game.
type Hub struct {
	mu            sync.RWMutex                        // Protects the maps below.
	connections   map[*Connection]bool                // Registered connections
	subscriptions map[uuid.UUID]map[*Connection]bool // Followers per game

	register   chan *Connection       // Incoming registration
	unregister chan *Connection       // Incoming unregistration
	inbound    chan InboundHubMessage // Messages from clients
	outbound   chan events.Event      // Game events to forward

	done     chan struct{}
	shutdown sync.Once

	gameManager *manager.Manager
	logger      *zap.Logger
}

// NewHub creates a new hub and subscribes it to game events
func NewHub(gm *manager.Manager, publisher *events.Publisher, logger *zap.Logger) *Hub {
	h := &Hub{
		connections:   make(map[*Connection]bool),
		subscriptions: make(map[uuid.UUID]map[*Connection]bool),
		register:      make(chan *Connection),
		unregister:    make(chan *Connection),
		inbound:       make(chan InboundHubMessage),
		outbound:      make(chan events.Event, 256),
		done:          make(chan struct{}),
		gameManager:   gm,
		logger:        logger,
	}

	publisher.SubscribeAll(h.enqueueEvent)

	return h
}

// Run is the main execution of the hub
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case msg := <-h.inbound:
			h.handleInbound(msg)

		case event := <-h.outbound:
			h.handleEvent(event)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.close()
	}
}

func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Inbound hands a client message to the hub. It reports false once the hub
// has shut down.
func (h *Hub) Inbound(msg InboundHubMessage) bool {
	select {
	case h.inbound <- msg:
		return true
	case <-h.done:
		return false
	}
}

// Shutdown stops the hub and closes every connection
func (h *Hub) Shutdown() {
	h.shutdown.Do(func() {
		close(h.done)
	})
}

// ConnectionCount returns the number of registered connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.connections)
}

func (h *Hub) enqueueEvent(event events.Event) {
	select {
	case h.outbound <- event:
	case <-h.done:
	}
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn] = true
	count := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("new connection registered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("connections", count),
	)

	h.sendMessage(conn, messages.EventConnected, messages.ConnectedPayload{
		ConnectionID: conn.ID.String(),
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[conn]; !ok {
		return
	}

	delete(h.connections, conn)
	for id, followers := range h.subscriptions {
		delete(followers, conn)
		if len(followers) == 0 {
			delete(h.subscriptions, id)
		}
	}
	conn.close()

	h.logger.Info("connection unregistered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("connections", len(h.connections)),
	)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.connections {
		conn.close()
	}
	h.connections = make(map[*Connection]bool)
	h.subscriptions = make(map[uuid.UUID]map[*Connection]bool)
}

func (h *Hub) subscribe(conn *Connection, gameID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	followers, ok := h.subscriptions[gameID]
	if !ok {
		followers = make(map[*Connection]bool)
		h.subscriptions[gameID] = followers
	}
	followers[conn] = true
}

// handleInbound decodes a client message and routes it to the game manager
func (h *Hub) handleInbound(msg InboundHubMessage) {
	switch msg.Message.Event {
	case messages.EventCreateGame:
		var payload messages.CreateGamePayload
		if !h.decode(msg, &payload) {
			return
		}

		g, err := h.gameManager.CreateGame(payload)
		if err != nil {
			h.sendError(msg.Conn, err.Error())
			return
		}

		h.subscribe(msg.Conn, g.ID)
		h.sendMessage(msg.Conn, messages.EventGameCreated, messages.NewGameState(g))

	case messages.EventJoinGame:
		h.handleGameAction(msg, func(id uuid.UUID, _ game.Role) (*game.Game, error) {
			return h.gameManager.GetGame(id)
		}, true)

	case messages.EventStartGame:
		h.handleGameAction(msg, func(id uuid.UUID, _ game.Role) (*game.Game, error) {
			return h.gameManager.StartGame(id)
		}, false)

	case messages.EventTap:
		h.handleGameAction(msg, h.gameManager.Tap, false)

	case messages.EventPauseGame:
		h.handleGameAction(msg, func(id uuid.UUID, _ game.Role) (*game.Game, error) {
			return h.gameManager.PauseGame(id)
		}, false)

	case messages.EventResumeGame:
		h.handleGameAction(msg, func(id uuid.UUID, _ game.Role) (*game.Game, error) {
			return h.gameManager.ResumeGame(id)
		}, false)

	case messages.EventStopGame:
		h.handleGameAction(msg, h.gameManager.StopGame, false)

	case messages.EventGetSnapshot:
		var payload messages.GameActionPayload
		if !h.decode(msg, &payload) {
			return
		}
		id, ok := h.parseGameID(msg.Conn, payload.GameID)
		if !ok {
			return
		}

		snapshot, err := h.gameManager.Snapshot(id)
		if err != nil {
			h.sendError(msg.Conn, err.Error())
			return
		}
		h.sendMessage(msg.Conn, messages.EventSnapshot, messages.SnapshotPayload{Snapshot: snapshot})

	case messages.EventRestoreGame:
		var payload messages.RestoreGamePayload
		if !h.decode(msg, &payload) {
			return
		}

		g, err := h.gameManager.RestoreGame(payload.Snapshot)
		if err != nil {
			h.sendError(msg.Conn, err.Error())
			return
		}

		h.subscribe(msg.Conn, g.ID)
		h.sendMessage(msg.Conn, messages.EventGameCreated, messages.NewGameState(g))

	default:
		h.sendError(msg.Conn, "Unknown message type")
	}
}

// handleGameAction runs an action addressed by a GameActionPayload. The
// sender follows the game from then on; reply sends the resulting state
// straight back, otherwise the game's event reaches every follower.
func (h *Hub) handleGameAction(
	msg InboundHubMessage,
	action func(id uuid.UUID, role game.Role) (*game.Game, error),
	reply bool,
) {
	var payload messages.GameActionPayload
	if !h.decode(msg, &payload) {
		return
	}

	id, ok := h.parseGameID(msg.Conn, payload.GameID)
	if !ok {
		return
	}

	g, err := action(id, game.Role(payload.Role))
	if err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	h.subscribe(msg.Conn, g.ID)
	if reply {
		h.sendMessage(msg.Conn, messages.EventGameState, messages.NewGameState(g))
	}
}

// handleEvent forwards a game event to the game's followers
func (h *Hub) handleEvent(event events.Event) {
	var name string
	switch event.Type {
	case events.EventGameStarted, events.EventGamePaused, events.EventGameResumed, events.EventClockTapped:
		name = messages.EventGameState
	case events.EventClockUpdated:
		name = messages.EventClockUpdate
	case events.EventTimeUp:
		name = messages.EventTimeUp
	case events.EventGameStopped:
		name = messages.EventGameStopped
	case events.EventGameRemoved:
		if id, err := uuid.Parse(event.GameID); err == nil {
			h.mu.Lock()
			delete(h.subscriptions, id)
			h.mu.Unlock()
		}
		return
	default:
		return
	}

	id, err := uuid.Parse(event.GameID)
	if err != nil {
		h.logger.Error("invalid game id in event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	followers := make([]*Connection, 0, len(h.subscriptions[id]))
	for conn := range h.subscriptions[id] {
		followers = append(followers, conn)
	}
	h.mu.RUnlock()

	for _, conn := range followers {
		h.sendMessage(conn, name, event.Payload)
	}
}

func (h *Hub) decode(msg InboundHubMessage, v any) bool {
	if len(msg.Message.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Message.Payload, v); err != nil {
		h.sendError(msg.Conn, "Invalid "+msg.Message.Event+" payload")
		return false
	}
	return true
}

func (h *Hub) parseGameID(conn *Connection, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		h.sendError(conn, "invalid game id: "+err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func (h *Hub) sendError(conn *Connection, msg string) {
	h.sendMessage(conn, messages.EventError, messages.ErrorPayload{
		Message: msg,
	})
}

func (h *Hub) sendMessage(conn *Connection, event string, payload any) {
	conn.SendJSON(messages.OutboundMessage{
		Event:   event,
		Payload: payload,
	})
}
