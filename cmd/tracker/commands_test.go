package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/milestone-tracker/internal/models"
)

func chase() models.ProjectionResult {
	pace := 41.0 / 62.0
	games := 11
	confidence := 0.849
	edt := time.FixedZone("EDT", -4*60*60)
	return models.ProjectionResult{
		Status:            models.StatusOK,
		PlayerName:        "Alex Ovechkin",
		MilestoneLabel:    "Gretzky's 894",
		Milestone:         895,
		CurrentTotal:      887,
		GoalsNeeded:       8,
		SeasonGoals:       41,
		SeasonGamesPlayed: 62,
		TeamGamesPlayed:   65,
		GamesMissed:       3,
		Pace:              &pace,
		GamesNeeded:       &games,
		GamesNeededState:  models.GamesNeededProjected,
		ProgressPercent:   99.1,
		Confidence:        &confidence,
		ProjectedGame:     &models.ProjectedGame{Description: "Thursday, April 10, 2025, 07:30 PM ET vs Carolina Hurricanes (Home)"},
		UpcomingGames: []models.RemainingGame{
			{StartTime: time.Date(2025, 3, 22, 19, 0, 0, 0, edt), Opponent: "Boston Bruins", Home: false},
		},
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	writeStats(&buf, chase(), "ET")
	out := buf.String()

	assert.Contains(t, out, "Alex Ovechkin: chasing Gretzky's 894")
	assert.Contains(t, out, "Career goals:   887 (99.1% of 895)")
	assert.Contains(t, out, "Goals needed:   8")
	assert.Contains(t, out, "Games missed:   3 of 65")
	assert.Contains(t, out, "Pace:           0.661 goals per game")
	assert.Contains(t, out, "Games needed:   11")
	assert.Contains(t, out, "Confidence:     0.849")
	assert.Contains(t, out, "Saturday, March 22, 2025, 07:00 PM ET vs Boston Bruins (Away)")
	assert.Contains(t, out, "8 goals needed to pass Gretzky's 894. Projected record game: Thursday, April 10, 2025")
}

func TestWriteStats_UpstreamError(t *testing.T) {
	var buf bytes.Buffer
	writeStats(&buf, models.ProjectionResult{Status: models.StatusUpstreamError, Detail: "stats service timed out"}, "ET")

	assert.Equal(t, "Stats service unavailable, try again later\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, chase(), false))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ok", decoded["status"])
	assert.Equal(t, float64(8), decoded["goals_needed"])
	assert.Equal(t, float64(11), decoded["games_needed"])
}
