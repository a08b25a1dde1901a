package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func game(id int64, start time.Time) RemainingGame {
	return RemainingGame{GameID: id, StartTime: start, Opponent: "Opponent", Home: id%2 == 0}
}

func TestNewSchedule_OrdersByStartTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	input := []RemainingGame{
		game(3, base.Add(48*time.Hour)),
		game(1, base),
		game(2, base.Add(24*time.Hour)),
	}

	s := NewSchedule(input)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, int64(1), s.At(0).GameID)
	assert.Equal(t, int64(2), s.At(1).GameID)
	assert.Equal(t, int64(3), s.At(2).GameID)

	// input slice is not reordered
	assert.Equal(t, int64(3), input[0].GameID)
}

func TestSchedule_AllIsRestartable(t *testing.T) {
	base := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	s := NewSchedule([]RemainingGame{game(1, base), game(2, base.Add(time.Hour))})

	collect := func() []int64 {
		var ids []int64
		for _, g := range s.All() {
			ids = append(ids, g.GameID)
		}
		return ids
	}

	assert.Equal(t, []int64{1, 2}, collect())
	assert.Equal(t, []int64{1, 2}, collect())
}

func TestSchedule_HeadCopies(t *testing.T) {
	base := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	s := NewSchedule([]RemainingGame{game(1, base), game(2, base.Add(time.Hour)), game(3, base.Add(2*time.Hour))})

	head := s.Head(2)
	require.Len(t, head, 2)
	head[0].Opponent = "Changed"
	assert.Equal(t, "Opponent", s.At(0).Opponent)

	assert.Len(t, s.Head(10), 3)
	assert.Nil(t, s.Head(0))
	assert.Nil(t, Schedule{}.Head(5))
}

func TestSchedule_StartingAfter(t *testing.T) {
	base := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	s := NewSchedule([]RemainingGame{game(1, base), game(2, base.Add(time.Hour)), game(3, base.Add(2*time.Hour))})

	later := s.StartingAfter(base.Add(30 * time.Minute))
	require.Equal(t, 2, later.Len())
	assert.Equal(t, int64(2), later.At(0).GameID)
	assert.Equal(t, 3, s.Len())
}

func TestRemainingGame_Location(t *testing.T) {
	assert.Equal(t, "Home", RemainingGame{Home: true}.Location())
	assert.Equal(t, "Away", RemainingGame{Home: false}.Location())
}
