package models

// Status discriminates every snapshot the engine can return
type Status string

const (
	StatusOK                         Status = "ok"
	StatusRecordReached              Status = "record_reached"
	StatusInsufficientPaceData       Status = "insufficient_pace_data"
	StatusUndeterminedWithinSchedule Status = "undetermined_within_schedule"
	StatusUpstreamError              Status = "upstream_error"
)

// GamesNeededState explains why GamesNeeded is or isn't set
type GamesNeededState string

const (
	GamesNeededProjected        GamesNeededState = "projected"
	GamesNeededReached          GamesNeededState = "reached"
	GamesNeededUnreachable      GamesNeededState = "unreachable"
	GamesNeededInsufficientData GamesNeededState = "insufficient_data"
)

// ProjectedGame is the scheduled game expected to produce the milestone
type ProjectedGame struct {
	Game        RemainingGame `json:"game"`
	Number      int           `json:"number"` // 1-based position in the remaining schedule
	Date        string        `json:"date"`   // YYYY-MM-DD in the display location
	Time        string        `json:"time"`   // "07:30 PM ET"
	Description string        `json:"description"`
}

// ProjectionResult is the immutable snapshot handed to every consumer.
// For StatusUpstreamError only Status and Detail are set.
type ProjectionResult struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`

	PlayerName        string `json:"player_name,omitempty"`
	MilestoneLabel    string `json:"milestone_label,omitempty"`
	Milestone         int    `json:"milestone,omitempty"`
	CurrentTotal      int    `json:"current_total,omitempty"`
	GoalsNeeded       int    `json:"goals_needed"`
	SeasonGoals       int    `json:"season_goals,omitempty"`
	SeasonGamesPlayed int    `json:"season_games_played,omitempty"`
	TeamGamesPlayed   int    `json:"team_games_played,omitempty"`
	GamesMissed       int    `json:"games_missed,omitempty"`

	Pace             *float64         `json:"pace"`
	GamesNeeded      *int             `json:"games_needed"`
	GamesNeededState GamesNeededState `json:"games_needed_state,omitempty"`

	ProjectedGame           *ProjectedGame  `json:"projected_game,omitempty"`
	Confidence              *float64        `json:"confidence,omitempty"`
	ProgressPercent         float64         `json:"progress_percent,omitempty"`
	ProjectedRemainingGoals *int            `json:"projected_remaining_goals,omitempty"`
	UpcomingGames           []RemainingGame `json:"upcoming_games,omitempty"`
}

// IsError reports whether the snapshot failed to reach the stats service
func (r ProjectionResult) IsError() bool {
	return r.Status == StatusUpstreamError
}
