package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jstittsworth/milestone-tracker/internal/models"
)

func TestCalculatePace(t *testing.T) {
	tests := []struct {
		name            string
		stats           models.PlayerSeasonStats
		target          int
		wantGoalsNeeded int
		wantPaceDefined bool
		wantPace        float64
		wantState       models.GamesNeededState
		wantGamesNeeded int
	}{
		{
			name:            "mid season chase",
			stats:           models.PlayerSeasonStats{CareerGoals: 887, SeasonGoals: 41, SeasonGamesPlayed: 62},
			target:          894,
			wantGoalsNeeded: 7,
			wantPaceDefined: true,
			wantPace:        41.0 / 62.0,
			wantState:       models.GamesNeededProjected,
			wantGamesNeeded: 11,
		},
		{
			name:            "exact division does not round up",
			stats:           models.PlayerSeasonStats{CareerGoals: 880, SeasonGoals: 30, SeasonGamesPlayed: 60},
			target:          890,
			wantGoalsNeeded: 10,
			wantPaceDefined: true,
			wantPace:        0.5,
			wantState:       models.GamesNeededProjected,
			wantGamesNeeded: 20,
		},
		{
			name:            "record tied counts as reached",
			stats:           models.PlayerSeasonStats{CareerGoals: 894, SeasonGoals: 48, SeasonGamesPlayed: 70},
			target:          894,
			wantGoalsNeeded: 0,
			wantPaceDefined: true,
			wantPace:        48.0 / 70.0,
			wantState:       models.GamesNeededReached,
		},
		{
			name:            "beyond target clamps to zero",
			stats:           models.PlayerSeasonStats{CareerGoals: 900, SeasonGoals: 50, SeasonGamesPlayed: 75},
			target:          895,
			wantGoalsNeeded: 0,
			wantPaceDefined: true,
			wantPace:        50.0 / 75.0,
			wantState:       models.GamesNeededReached,
		},
		{
			name:            "no games played leaves pace undefined",
			stats:           models.PlayerSeasonStats{CareerGoals: 853, SeasonGoals: 0, SeasonGamesPlayed: 0},
			target:          895,
			wantGoalsNeeded: 42,
			wantPaceDefined: false,
			wantState:       models.GamesNeededInsufficientData,
		},
		{
			name:            "goals without games is still undefined",
			stats:           models.PlayerSeasonStats{CareerGoals: 853, SeasonGoals: 3, SeasonGamesPlayed: 0},
			target:          895,
			wantGoalsNeeded: 42,
			wantPaceDefined: false,
			wantState:       models.GamesNeededInsufficientData,
		},
		{
			name:            "scoring drought is unreachable",
			stats:           models.PlayerSeasonStats{CareerGoals: 853, SeasonGoals: 0, SeasonGamesPlayed: 8},
			target:          895,
			wantGoalsNeeded: 42,
			wantPaceDefined: true,
			wantPace:        0,
			wantState:       models.GamesNeededUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePace(tt.stats, models.Milestone{Target: tt.target})

			assert.Equal(t, tt.wantGoalsNeeded, got.GoalsNeeded)
			assert.Equal(t, tt.wantPaceDefined, got.PaceDefined)
			assert.InDelta(t, tt.wantPace, got.Pace, 1e-9)
			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.wantGamesNeeded, got.GamesNeeded)
		})
	}
}

func TestCalculatePace_InsufficientRegardlessOfGoals(t *testing.T) {
	for goals := 0; goals <= 20; goals += 5 {
		got := CalculatePace(models.PlayerSeasonStats{CareerGoals: 800, SeasonGoals: goals}, models.Milestone{Target: 895})
		assert.False(t, got.PaceDefined)
		assert.Equal(t, models.GamesNeededInsufficientData, got.State, "season goals %d", goals)
	}
}

func TestCalculatePace_GoalsNeverNegative(t *testing.T) {
	for current := 880; current <= 910; current++ {
		got := CalculatePace(models.PlayerSeasonStats{CareerGoals: current, SeasonGoals: 40, SeasonGamesPlayed: 60}, models.Milestone{Target: 895})
		assert.GreaterOrEqual(t, got.GoalsNeeded, 0)
		if current >= 895 {
			assert.Equal(t, models.GamesNeededReached, got.State)
		}
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.849, Confidence(62, 11))
	assert.Equal(t, 1.0, Confidence(62, 0))
	assert.Equal(t, 0.0, Confidence(0, 5))
}

func TestProjectRemainingGoals(t *testing.T) {
	assert.Equal(t, 13, ProjectRemainingGoals(41.0/62.0, 20))
	assert.Equal(t, 0, ProjectRemainingGoals(0, 20))
	assert.Equal(t, 0, ProjectRemainingGoals(0.5, 0))
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 99.2, ProgressPercent(887, 894))
	assert.Equal(t, 0.0, ProgressPercent(10, 0))
}
