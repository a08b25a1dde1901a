package projection

import (
	"fmt"
	"time"

	"github.com/jstittsworth/milestone-tracker/internal/models"
)

const (
	dateLayout    = "2006-01-02"
	longLayout    = "Monday, January 02, 2006, 03:04 PM"
	clockLayout   = "03:04 PM"
	zoneAbbrevFmt = "MST"
)

// FormatGame renders a game the way the website and notifier print it, e.g.
// "Thursday, April 10, 2025, 07:30 PM ET vs Carolina Hurricanes (Home)".
// The game time is printed in its own location; zoneLabel replaces the zone
// abbreviation when set.
func FormatGame(game models.RemainingGame, zoneLabel string) string {
	return fmt.Sprintf("%s %s vs %s (%s)",
		game.StartTime.Format(longLayout),
		zoneName(game.StartTime, zoneLabel),
		game.Opponent,
		game.Location(),
	)
}

// FormatTime renders the kickoff time alone, e.g. "07:30 PM ET"
func FormatTime(t time.Time, zoneLabel string) string {
	return t.Format(clockLayout) + " " + zoneName(t, zoneLabel)
}

func zoneName(t time.Time, zoneLabel string) string {
	if zoneLabel != "" {
		return zoneLabel
	}
	return t.Format(zoneAbbrevFmt)
}
