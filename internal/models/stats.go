package models

// PlayerSeasonStats is one fetch of the tracked player's totals
type PlayerSeasonStats struct {
	PlayerID          string `json:"player_id"`
	Name              string `json:"name"`
	TeamAbbrev        string `json:"team_abbrev"`
	CareerGoals       int    `json:"career_goals"`
	SeasonGoals       int    `json:"season_goals"`
	SeasonGamesPlayed int    `json:"season_games_played"`
}

// Milestone is the configured target the player is chasing
type Milestone struct {
	PlayerID   string `json:"player_id"`
	TeamAbbrev string `json:"team_abbrev"`
	Target     int    `json:"target"`
	Label      string `json:"label,omitempty"` // e.g. "Gretzky's 894"
}
