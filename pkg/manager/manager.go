package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/tecu23/gameclock/pkg/clock"
	"github.com/tecu23/gameclock/pkg/events"
	"github.com/tecu23/gameclock/pkg/game"
	"github.com/tecu23/gameclock/pkg/messages"
	"github.com/tecu23/gameclock/pkg/repository"
	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// ErrGameNotFound is returned for an id no hosted game has
var ErrGameNotFound = errors.New("game not found")

// DefaultTickInterval is how often running games publish clock updates
const DefaultTickInterval = 100 * time.Millisecond

// Config holds the manager's tunables
type Config struct {
	// TickInterval is the period of CLOCK_UPDATE events; zero uses
	// DefaultTickInterval.
	TickInterval time.Duration

	// Presets are the named time controls CREATE_GAME may refer to
	Presets timecontrol.Presets

	// Clock drives both the game clocks and the update ticks; nil uses the
	// real clock.
	Clock clockwork.Clock
}

// Manager hosts games: it creates them from client requests, drives their
// lifecycle and publishes what happens to them.
type Manager struct {
	repo      *repository.InMemoryGameRepository
	publisher *events.Publisher
	logger    *zap.Logger

	clock        clockwork.Clock
	tickInterval time.Duration
	presets      timecontrol.Presets

	mu      sync.Mutex
	tickers map[uuid.UUID]context.CancelFunc
}

// NewManager creates a new manager
func NewManager(
	cfg Config,
	repo *repository.InMemoryGameRepository,
	publisher *events.Publisher,
	logger *zap.Logger,
) *Manager {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Presets == nil {
		cfg.Presets = timecontrol.DefaultPresets()
	}

	manager := &Manager{
		repo:         repo,
		publisher:    publisher,
		logger:       logger,
		clock:        cfg.Clock,
		tickInterval: cfg.TickInterval,
		presets:      cfg.Presets,
		tickers:      make(map[uuid.UUID]context.CancelFunc),
	}

	return manager
}

// CreateGame creates a pending game from a client request
func (m *Manager) CreateGame(p messages.CreateGamePayload) (*game.Game, error) {
	settings, err := m.resolveSettings(p)
	if err != nil {
		return nil, err
	}

	roles := game.DefaultRoles()
	if len(p.Roles) > 0 {
		roles = make([]game.Role, 0, len(p.Roles))
		for _, r := range p.Roles {
			roles = append(roles, game.Role(r))
		}
	}

	id := uuid.New()
	g, err := game.New(roles, settings, m.gameOptions(id)...)
	if err != nil {
		return nil, err
	}

	for role, s := range p.PlayerTimeControls {
		player, err := g.Player(game.Role(role))
		if err != nil {
			return nil, err
		}
		if err := player.SetTimeControl(s); err != nil {
			return nil, fmt.Errorf("time control of %q: %w", role, err)
		}
	}

	if err := m.repo.SaveGame(g); err != nil {
		return nil, err
	}

	m.logger.Info("created new game",
		zap.String("game_id", id.String()),
		zap.String("time_control", settings.Kind.String()),
		zap.Int("players", len(roles)),
	)

	m.publishState(events.EventGameCreated, g)
	return g, nil
}

func (m *Manager) resolveSettings(p messages.CreateGamePayload) (timecontrol.Settings, error) {
	switch {
	case p.TimeControl != nil:
		return *p.TimeControl, p.TimeControl.Validate()
	case p.Preset != "":
		s, ok := m.presets.Lookup(p.Preset)
		if !ok {
			return timecontrol.Settings{}, fmt.Errorf("%w: unknown preset %q", timecontrol.ErrInvalidSettings, p.Preset)
		}
		return s, nil
	default:
		return timecontrol.Default(timecontrol.Increment), nil
	}
}

func (m *Manager) gameOptions(id uuid.UUID) []game.Option {
	return []game.Option{
		game.WithID(id),
		game.WithLogger(m.logger),
		game.WithClockOptions(clock.WithTimeSource(m.clock)),
		game.WithStopCallback(func(stopper, timeUp game.Role) {
			m.onGameStopped(id, stopper, timeUp)
		}),
	}
}

// GetGame returns a hosted game
func (m *Manager) GetGame(id uuid.UUID) (*game.Game, error) {
	g, err := m.repo.GetGame(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return g, err
}

// StartGame starts a pending game and its clock updates
func (m *Manager) StartGame(id uuid.UUID) (*game.Game, error) {
	g, err := m.GetGame(id)
	if err != nil {
		return nil, err
	}

	if err := g.Start(); err != nil {
		return nil, err
	}

	m.startTicker(g)
	m.publishState(events.EventGameStarted, g)
	return g, nil
}

// Tap hands the clock over from role to the next player
func (m *Manager) Tap(id uuid.UUID, role game.Role) (*game.Game, error) {
	g, err := m.GetGame(id)
	if err != nil {
		return nil, err
	}

	player, err := g.Player(role)
	if err != nil {
		return nil, err
	}

	if err := player.Tap(); err != nil {
		return nil, err
	}

	m.publishState(events.EventClockTapped, g)
	return g, nil
}

// PauseGame pauses every running clock of a game
func (m *Manager) PauseGame(id uuid.UUID) (*game.Game, error) {
	g, err := m.GetGame(id)
	if err != nil {
		return nil, err
	}

	if err := g.Pause(); err != nil {
		return nil, err
	}

	m.publishState(events.EventGamePaused, g)
	return g, nil
}

// ResumeGame resumes the clocks a pause stopped
func (m *Manager) ResumeGame(id uuid.UUID) (*game.Game, error) {
	g, err := m.GetGame(id)
	if err != nil {
		return nil, err
	}

	if err := g.Resume(); err != nil {
		return nil, err
	}

	m.publishState(events.EventGameResumed, g)
	return g, nil
}

// StopGame stops a game on behalf of stopper. The stop is published by the
// game's stop callback.
func (m *Manager) StopGame(id uuid.UUID, stopper game.Role) (*game.Game, error) {
	g, err := m.GetGame(id)
	if err != nil {
		return nil, err
	}

	if err := g.Stop(stopper); err != nil {
		return nil, err
	}
	return g, nil
}

// Snapshot captures a hosted game
func (m *Manager) Snapshot(id uuid.UUID) (game.Snapshot, error) {
	g, err := m.GetGame(id)
	if err != nil {
		return game.Snapshot{}, err
	}
	return g.Snapshot(), nil
}

// RestoreGame hosts a game rebuilt from a snapshot. A game with the same id
// must not be hosted already.
func (m *Manager) RestoreGame(s game.Snapshot) (*game.Game, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	if _, err := m.repo.GetGame(s.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", repository.ErrExists, s.ID)
	}

	g, err := game.Restore(s, m.gameOptions(s.ID)...)
	if err != nil {
		return nil, err
	}

	if err := m.repo.SaveGame(g); err != nil {
		return nil, err
	}

	switch g.Status() {
	case game.StatusStarted, game.StatusPaused:
		m.startTicker(g)
	}

	m.logger.Info("restored game",
		zap.String("game_id", g.ID.String()),
		zap.String("status", string(g.Status())),
	)

	m.publishState(events.EventGameCreated, g)
	return g, nil
}

// RemoveGame stops hosting a game. A game still in progress is stopped
// first.
func (m *Manager) RemoveGame(id uuid.UUID) {
	if g, err := m.repo.GetGame(id); err == nil && g.Status() != game.StatusStopped {
		if err := g.Stop(""); err != nil {
			m.logger.Debug("game stopped concurrently", zap.String("game_id", id.String()))
		}
	}

	m.stopTicker(id)
	m.repo.DeleteGame(id)

	m.logger.Info("removed game", zap.String("game_id", id.String()))

	m.publisher.Publish(events.Event{
		Type:   events.EventGameRemoved,
		GameID: id.String(),
	})
}

// Close stops every clock update loop
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, cancel := range m.tickers {
		cancel()
		delete(m.tickers, id)
	}
}

func (m *Manager) onGameStopped(id uuid.UUID, stopper, timeUp game.Role) {
	m.stopTicker(id)

	if timeUp != "" {
		m.logger.Info("player time expired",
			zap.String("game_id", id.String()),
			zap.String("role", string(timeUp)),
		)
		m.publisher.Publish(events.Event{
			Type:   events.EventTimeUp,
			GameID: id.String(),
			Payload: messages.TimeUpPayload{
				GameID: id.String(),
				Role:   string(timeUp),
			},
		})
	}

	m.publisher.Publish(events.Event{
		Type:   events.EventGameStopped,
		GameID: id.String(),
		Payload: messages.GameStoppedPayload{
			GameID:      id.String(),
			StopperRole: string(stopper),
			TimeUpRole:  string(timeUp),
		},
	})
}

func (m *Manager) publishState(eventType events.EventType, g *game.Game) {
	m.publisher.Publish(events.Event{
		Type:    eventType,
		GameID:  g.ID.String(),
		Payload: messages.NewGameState(g),
	})
}

// startTicker publishes clock updates for g until it stops or is removed
func (m *Manager) startTicker(g *game.Game) {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if prev, ok := m.tickers[g.ID]; ok {
		prev()
	}
	m.tickers[g.ID] = cancel
	m.mu.Unlock()

	// The game may have stopped before the ticker was registered, in which
	// case the stop callback found nothing to cancel.
	if g.Status() == game.StatusStopped {
		m.stopTicker(g.ID)
		return
	}

	ticker := m.clock.NewTicker(m.tickInterval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				switch g.Status() {
				case game.StatusStopped:
					return
				case game.StatusStarted:
					m.publisher.Publish(events.Event{
						Type:    events.EventClockUpdated,
						GameID:  g.ID.String(),
						Payload: messages.NewClockUpdate(g),
					})
				}
			}
		}
	}()
}

func (m *Manager) stopTicker(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cancel, ok := m.tickers[id]; ok {
		cancel()
		delete(m.tickers, id)
	}
}

// activeTickers returns the number of running update loops
func (m *Manager) activeTickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.tickers)
}
