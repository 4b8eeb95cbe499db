package events

import (
	"sync"

	"go.uber.org/zap"
)

// EventType represents the type of event
type EventType string

// Define event types
const (
	EventGameCreated      EventType = "GAME_CREATED"
	EventGameStarted      EventType = "GAME_STARTED"
	EventGamePaused       EventType = "GAME_PAUSED"
	EventGameResumed      EventType = "GAME_RESUMED"
	EventClockTapped      EventType = "CLOCK_TAPPED"
	EventClockUpdated     EventType = "CLOCK_UPDATED"
	EventTimeUp           EventType = "TIME_UP"
	EventGameStopped      EventType = "GAME_STOPPED"
	EventGameRemoved      EventType = "GAME_REMOVED"
	EventConnectionClosed EventType = "CONNECTION_CLOSED"
)

// allEvents is the subscription key of handlers registered for every type
const allEvents EventType = "*"

// Event represents an event in the system
type Event struct {
	Type    EventType
	GameID  string // Optional, can be empty for non-game events
	Payload any
}

// Handler is a function that processes events
type Handler func(event Event)

// Publisher is the central event publisher. Handlers run on their own
// goroutine, so a slow subscriber never blocks a clock.
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
	logger      *zap.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		subscribers: make(map[EventType][]Handler),
		logger:      logger,
	}
}

// Subscribe registers a handler for a specific event type
func (p *Publisher) Subscribe(eventType EventType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers[eventType] = append(p.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (p *Publisher) SubscribeAll(handler Handler) {
	p.Subscribe(allEvents, handler)
}

// Publish broadcasts an event to its subscribers and to the "all events"
// handlers
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	handlers := append([]Handler(nil), p.subscribers[event.Type]...)
	handlers = append(handlers, p.subscribers[allEvents]...)
	p.mu.RUnlock()

	if event.Type != EventClockUpdated {
		p.logger.Debug("publishing event",
			zap.String("type", string(event.Type)),
			zap.String("game_id", event.GameID),
			zap.Int("handlers", len(handlers)),
		)
	}

	for _, handler := range handlers {
		go handler(event)
	}
}
