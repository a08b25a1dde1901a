package projection

import (
	"math"

	"github.com/jstittsworth/milestone-tracker/internal/models"
)

// PaceResult is the output of the pace calculator.
// Pace is only meaningful when PaceDefined is true; GamesNeeded only when
// State is GamesNeededProjected.
type PaceResult struct {
	GoalsNeeded int
	Pace        float64
	PaceDefined bool
	GamesNeeded int
	State       models.GamesNeededState
}

// CalculatePace derives goals needed, goals-per-game pace and the number of games
// needed at that pace. It has no failure modes: undefined figures are reported
// through PaceDefined and State.
func CalculatePace(stats models.PlayerSeasonStats, milestone models.Milestone) PaceResult {
	result := PaceResult{
		GoalsNeeded: GoalsNeeded(stats.CareerGoals, milestone.Target),
	}

	if stats.SeasonGamesPlayed > 0 {
		result.PaceDefined = true
		result.Pace = float64(stats.SeasonGoals) / float64(stats.SeasonGamesPlayed)
	}

	switch {
	case result.GoalsNeeded == 0:
		result.State = models.GamesNeededReached
	case !result.PaceDefined:
		result.State = models.GamesNeededInsufficientData
	case stats.SeasonGoals <= 0:
		result.State = models.GamesNeededUnreachable
	default:
		result.State = models.GamesNeededProjected
		// ceil(goalsNeeded / (goals/games)) in integers so 7/(41/62) is exactly 11
		numerator := result.GoalsNeeded * stats.SeasonGamesPlayed
		result.GamesNeeded = (numerator + stats.SeasonGoals - 1) / stats.SeasonGoals
	}

	return result
}

// GoalsNeeded is max(0, target-current)
func GoalsNeeded(current, target int) int {
	if current >= target {
		return 0
	}
	return target - current
}

// Confidence weighs the sample the pace was built on against how far ahead the
// projection reaches: gamesPlayed / (gamesPlayed + gamesNeeded), 3 decimals.
func Confidence(gamesPlayed, gamesNeeded int) float64 {
	if gamesPlayed <= 0 {
		return 0
	}
	if gamesNeeded < 0 {
		gamesNeeded = 0
	}
	c := float64(gamesPlayed) / float64(gamesPlayed+gamesNeeded)
	return math.Round(c*1000) / 1000
}

// ProjectRemainingGoals estimates goals over the remaining games at the current pace
func ProjectRemainingGoals(pace float64, remainingGames int) int {
	if pace <= 0 || remainingGames <= 0 {
		return 0
	}
	return int(math.Round(pace * float64(remainingGames)))
}

// ProgressPercent is current/target as a percentage with one decimal
func ProgressPercent(current, target int) float64 {
	if target <= 0 {
		return 0
	}
	return math.Round(float64(current)/float64(target)*1000) / 10
}
