package models

import (
	"iter"
	"sort"
	"time"
)

// RemainingGame is an upcoming game on the team's schedule.
// StartTime is already in the configured display location.
type RemainingGame struct {
	GameID         int64     `json:"game_id"`
	StartTime      time.Time `json:"start_time"`
	Opponent       string    `json:"opponent"`
	OpponentAbbrev string    `json:"opponent_abbrev"`
	Home           bool      `json:"home"`
	Venue          string    `json:"venue,omitempty"`
}

// Location returns "Home" or "Away"
func (g RemainingGame) Location() string {
	if g.Home {
		return "Home"
	}
	return "Away"
}

// Schedule is an ordered, read-only list of upcoming games
type Schedule struct {
	games []RemainingGame
}

// NewSchedule copies games and orders them by start time
func NewSchedule(games []RemainingGame) Schedule {
	sorted := make([]RemainingGame, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})
	return Schedule{games: sorted}
}

// Len returns the number of games
func (s Schedule) Len() int {
	return len(s.games)
}

// At returns the game at zero-based index i. Callers must check Len first.
func (s Schedule) At(i int) RemainingGame {
	return s.games[i]
}

// All iterates the games in order. Each call starts from the first game.
func (s Schedule) All() iter.Seq2[int, RemainingGame] {
	return func(yield func(int, RemainingGame) bool) {
		for i, g := range s.games {
			if !yield(i, g) {
				return
			}
		}
	}
}

// Head returns a copy of at most n leading games
func (s Schedule) Head(n int) []RemainingGame {
	if n > len(s.games) {
		n = len(s.games)
	}
	if n <= 0 {
		return nil
	}
	out := make([]RemainingGame, n)
	copy(out, s.games[:n])
	return out
}

// Games returns a copy of every game
func (s Schedule) Games() []RemainingGame {
	return s.Head(len(s.games))
}

// StartingAfter drops games that start before t
func (s Schedule) StartingAfter(t time.Time) Schedule {
	kept := make([]RemainingGame, 0, len(s.games))
	for _, g := range s.games {
		if !g.StartTime.Before(t) {
			kept = append(kept, g)
		}
	}
	return Schedule{games: kept}
}
