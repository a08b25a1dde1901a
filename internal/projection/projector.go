package projection

import (
	"github.com/jstittsworth/milestone-tracker/internal/models"
)

// Outcome tells the assembler which branch the projector took
type Outcome string

const (
	OutcomeProjected    Outcome = "projected"
	OutcomeImminent     Outcome = "imminent"
	OutcomeUndetermined Outcome = "undetermined"
)

// Projection is the projector's answer. Game and Number are set only for
// OutcomeProjected.
type Projection struct {
	Outcome Outcome
	Game    models.RemainingGame
	Number  int
}

// ProjectRecordGame picks the N-th upcoming game where N is the games needed at
// current pace. The schedule must be ordered ascending, which makes this an index
// lookup rather than a search.
func ProjectRecordGame(gamesNeeded int, schedule models.Schedule) Projection {
	if gamesNeeded <= 0 {
		return Projection{Outcome: OutcomeImminent}
	}
	if gamesNeeded > schedule.Len() {
		return Projection{Outcome: OutcomeUndetermined}
	}
	return Projection{
		Outcome: OutcomeProjected,
		Game:    schedule.At(gamesNeeded - 1),
		Number:  gamesNeeded,
	}
}

// Describe resolves a projected game into its display form. It returns nil for
// any outcome other than OutcomeProjected.
func Describe(p Projection, zoneLabel string) *models.ProjectedGame {
	if p.Outcome != OutcomeProjected {
		return nil
	}
	return &models.ProjectedGame{
		Game:        p.Game,
		Number:      p.Number,
		Date:        p.Game.StartTime.Format(dateLayout),
		Time:        FormatTime(p.Game.StartTime, zoneLabel),
		Description: FormatGame(p.Game, zoneLabel),
	}
}
