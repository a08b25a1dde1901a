package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/milestone-tracker/internal/models"
	"github.com/jstittsworth/milestone-tracker/internal/providers"
)

const (
	nhlLanding = `{"firstName":{"default":"Alex"},"lastName":{"default":"Ovechkin"},"currentTeamAbbrev":"WSH",
 "featuredStats":{"regularSeason":{"subSeason":{"goals":41,"gamesPlayed":62}}},
 "careerTotals":{"regularSeason":{"goals":887}}}`
	nhlSchedule = `{"games":[
 {"id":3,"gameType":2,"gameState":"FUT","gameScheduleState":"OK","startTimeUTC":"2025-04-10T23:30:00Z",
  "homeTeam":{"abbrev":"WSH"},"awayTeam":{"abbrev":"CAR","placeName":{"default":"Carolina"},"commonName":{"default":"Hurricanes"}}},
 {"id":5,"gameType":2,"gameState":"FUT","gameScheduleState":"OK","startTimeUTC":"2025-04-12T17:00:00Z",
  "homeTeam":{"abbrev":"WSH"},"awayTeam":{"abbrev":"NYI","placeName":{"default":"New York"},"commonName":{"default":"Islanders"}}}
]}`
)

func TestTracker_Snapshot_StandingsOutageIsNeverFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/player/8471214/landing":
			_, _ = w.Write([]byte(nhlLanding))
		case "/club-schedule-season/WSH/now":
			_, _ = w.Write([]byte(nhlSchedule))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	now := time.Date(2025, 4, 8, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	client := providers.NewNHLClient(providers.NHLClientOptions{
		BaseURL:          server.URL,
		Location:         eastern,
		MaxRetries:       2,
		RetryBackoff:     time.Millisecond,
		RateLimit:        1000,
		BreakerThreshold: 2,
		BreakerTimeout:   time.Minute,
		Now:              clock,
		Logger:           quietLogger(),
	})
	source := providers.NewCachedSource(client, providers.NewMemoryCache(clock), providers.CachedSourceOptions{
		TTL:      time.Hour,
		Location: eastern,
		Now:      clock,
		Logger:   quietLogger(),
	})
	tracker := NewTracker(source, TrackerOptions{FetchTimeout: 5 * time.Second, ZoneLabel: "ET", UpcomingGames: 3}, quietLogger())

	for i := 0; i < 3; i++ {
		result := tracker.Snapshot(context.Background(), milestone)
		require.NotEqual(t, models.StatusUpstreamError, result.Status, "snapshot %d", i+1)
	}
	assert.Equal(t, gobreaker.StateClosed, client.BreakerState())

	require.NoError(t, source.Invalidate(context.Background()))
	result := tracker.Snapshot(context.Background(), milestone)

	assert.Equal(t, models.StatusUndeterminedWithinSchedule, result.Status)
	assert.Equal(t, 887, result.CurrentTotal)
	assert.Zero(t, result.TeamGamesPlayed)
	assert.Len(t, result.UpcomingGames, 2)
}
