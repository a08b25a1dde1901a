package providers

// NHL web API response structures. Only the fields the tracker reads are mapped.

type nhlLocalized struct {
	Default string `json:"default"`
}

type nhlLandingResponse struct {
	PlayerID          int          `json:"playerId"`
	FirstName         nhlLocalized `json:"firstName"`
	LastName          nhlLocalized `json:"lastName"`
	CurrentTeamAbbrev string       `json:"currentTeamAbbrev"`
	FeaturedStats     *struct {
		Season        int `json:"season"`
		RegularSeason *struct {
			SubSeason *nhlSkaterLine `json:"subSeason"`
		} `json:"regularSeason"`
	} `json:"featuredStats"`
	CareerTotals *struct {
		RegularSeason *nhlSkaterLine `json:"regularSeason"`
	} `json:"careerTotals"`
}

type nhlSkaterLine struct {
	Goals       *int `json:"goals"`
	GamesPlayed *int `json:"gamesPlayed"`
}

type nhlScheduleResponse struct {
	Games []nhlScheduleGame `json:"games"`
}

type nhlScheduleGame struct {
	ID                int64        `json:"id"`
	GameDate          string       `json:"gameDate"`
	StartTimeUTC      string       `json:"startTimeUTC"`
	GameType          int          `json:"gameType"`
	GameState         string       `json:"gameState"`
	GameScheduleState string       `json:"gameScheduleState"`
	Venue             nhlLocalized `json:"venue"`
	HomeTeam          nhlClub      `json:"homeTeam"`
	AwayTeam          nhlClub      `json:"awayTeam"`
}

type nhlClub struct {
	Abbrev     string       `json:"abbrev"`
	PlaceName  nhlLocalized `json:"placeName"`
	CommonName nhlLocalized `json:"commonName"`
}

type nhlStandingsResponse struct {
	Standings []struct {
		TeamAbbrev  nhlLocalized `json:"teamAbbrev"`
		GamesPlayed int          `json:"gamesPlayed"`
	} `json:"standings"`
}
