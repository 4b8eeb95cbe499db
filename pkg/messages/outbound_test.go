package messages

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/gameclock/pkg/clock"
	"github.com/tecu23/gameclock/pkg/game"
	"github.com/tecu23/gameclock/pkg/timecontrol"
)

func TestNewGameState(t *testing.T) {
	fc := clockwork.NewFakeClock()
	g, err := game.New(game.DefaultRoles(), timecontrol.Default(timecontrol.Byoyomi),
		game.WithClockOptions(clock.WithTimeSource(fc)),
	)
	require.NoError(t, err)

	state := NewGameState(g)
	assert.Equal(t, g.ID.String(), state.GameID)
	assert.Equal(t, game.StatusPending, state.Status)
	require.Len(t, state.Players, 2)
	assert.Equal(t, "10:00", state.Players[0].Display)
	assert.Equal(t, int64(600000), state.Players[0].RemainingMs)
	assert.Empty(t, state.Players[0].Attributes)

	require.NoError(t, g.Start())
	b, err := g.Player("B")
	require.NoError(t, err)
	require.NoError(t, b.Tap())

	fc.Advance(90 * time.Second)

	state = NewGameState(g)
	assert.Equal(t, game.StatusStarted, state.Status)
	assert.Equal(t, "8:30", state.Players[0].Display)
	assert.True(t, state.Players[0].IsRunning)
	assert.False(t, state.Players[1].IsRunning)
	assert.Equal(t, timecontrol.Byoyomi, state.Players[1].TimeControl)
	assert.NotEmpty(t, state.Players[1].Attributes)

	update := NewClockUpdate(g)
	require.Len(t, update.Players, 2)
	assert.Equal(t, int64(510000), update.Players[0].RemainingMs)
	assert.Equal(t, "10:00", update.Players[1].Display)
}

func TestNewClockUpdateBeforeStart(t *testing.T) {
	g, err := game.New(game.DefaultRoles(), timecontrol.Default(timecontrol.Fixed))
	require.NoError(t, err)

	update := NewClockUpdate(g)
	assert.Equal(t, g.ID.String(), update.GameID)
	assert.Empty(t, update.Players)
}
