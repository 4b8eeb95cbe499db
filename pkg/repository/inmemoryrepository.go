package repository

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/gameclock/pkg/game"
)

// ErrNotFound is returned when no game is stored under an id
var ErrNotFound = errors.New("game not found")

// ErrExists is returned when saving a new game under a taken id
var ErrExists = errors.New("game already exists")

// InMemoryGameRepository in an in-memory implementation of GameRepository
type InMemoryGameRepository struct {
	games  map[uuid.UUID]*game.Game
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository(logger *zap.Logger) *InMemoryGameRepository {
	return &InMemoryGameRepository{
		games:  make(map[uuid.UUID]*game.Game),
		logger: logger,
	}
}

// SaveGame saves a game to the repository
func (r *InMemoryGameRepository) SaveGame(g *game.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.games[g.ID]; ok && existing != g {
		return ErrExists
	}

	r.games[g.ID] = g
	r.logger.Debug("game saved", zap.String("game_id", g.ID.String()))
	return nil
}

// GetGame retrieves a game by ID
func (r *InMemoryGameRepository) GetGame(id uuid.UUID) (*game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[id]
	if !ok {
		return nil, ErrNotFound
	}

	return g, nil
}

// DeleteGame removes a game. Deleting an unknown id is not an error.
func (r *InMemoryGameRepository) DeleteGame(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.games, id)
}

// ListActiveGames returns all started and paused games
func (r *InMemoryGameRepository) ListActiveGames() []*game.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*game.Game
	for _, g := range r.games {
		switch g.Status() {
		case game.StatusStarted, game.StatusPaused:
			active = append(active, g)
		}
	}

	return active
}

// Count returns the number of stored games
func (r *InMemoryGameRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.games)
}
