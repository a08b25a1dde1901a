package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/jstittsworth/milestone-tracker/internal/models"
)

const (
	DefaultNHLBaseURL = "https://api-web.nhle.com/v1"

	// GameTypeRegularSeason is the NHL gameType for regular season games
	GameTypeRegularSeason = 2
)

// StatsSource is what the tracker needs from the stats service
type StatsSource interface {
	FetchCurrentStats(ctx context.Context, playerID string) (models.PlayerSeasonStats, error)
	FetchRemainingSchedule(ctx context.Context, teamAbbrev string) (models.Schedule, error)
	FetchTeamGamesPlayed(ctx context.Context, teamAbbrev string) (int, error)
}

// NHLClientOptions configures NHLClient. Zero values fall back to defaults.
type NHLClientOptions struct {
	BaseURL          string
	Location         *time.Location
	GameTypes        []int
	RequestTimeout   time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RateLimit        float64 // requests per second
	BreakerThreshold int
	BreakerTimeout   time.Duration
	Now              func() time.Time
	HTTPClient       *http.Client
	Logger           *logrus.Logger
}

// NHLClient reads player totals and the team schedule from the NHL web API
type NHLClient struct {
	baseURL    string
	location   *time.Location
	gameTypes  map[int]bool
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	standings  *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewNHLClient creates a new NHL API client
func NewNHLClient(opts NHLClientOptions) *NHLClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultNHLBaseURL
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if len(opts.GameTypes) == 0 {
		opts.GameTypes = []int{GameTypeRegularSeason}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 3 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	gameTypes := make(map[int]bool, len(opts.GameTypes))
	for _, gt := range opts.GameTypes {
		gameTypes[gt] = true
	}

	httpClient := *opts.HTTPClient
	httpClient.Timeout = opts.RequestTimeout

	threshold := uint32(opts.BreakerThreshold)
	breaker := newBreaker("nhl-api", threshold, opts.BreakerTimeout, opts.Logger)
	// standings only enrich the snapshot; their outages must not open the main breaker
	standingsBreaker := newBreaker("nhl-api-standings", threshold, opts.BreakerTimeout, opts.Logger)

	return &NHLClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		location:   opts.Location,
		gameTypes:  gameTypes,
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		now:        opts.Now,
		httpClient: &httpClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		breaker:    breaker,
		standings:  standingsBreaker,
		logger:     opts.Logger,
	}
}

func newBreaker(name string, threshold uint32, timeout time.Duration, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// only outages count against the breaker
			return err == nil || !isRetryable(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// BreakerState exposes the circuit breaker state for health checks
func (c *NHLClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// FetchCurrentStats fetches career and current-season totals for a player
func (c *NHLClient) FetchCurrentStats(ctx context.Context, playerID string) (models.PlayerSeasonStats, error) {
	const op = "fetch player stats"
	url := fmt.Sprintf("%s/player/%s/landing", c.baseURL, playerID)

	var resp nhlLandingResponse
	if err := c.getJSON(ctx, c.breaker, c.maxRetries, op, url, &resp); err != nil {
		return models.PlayerSeasonStats{}, err
	}

	if resp.CareerTotals == nil || resp.CareerTotals.RegularSeason == nil || resp.CareerTotals.RegularSeason.Goals == nil {
		return models.PlayerSeasonStats{}, dataShape(op, url, errors.New("missing careerTotals.regularSeason.goals"))
	}

	stats := models.PlayerSeasonStats{
		PlayerID:    playerID,
		Name:        strings.TrimSpace(resp.FirstName.Default + " " + resp.LastName.Default),
		TeamAbbrev:  resp.CurrentTeamAbbrev,
		CareerGoals: *resp.CareerTotals.RegularSeason.Goals,
	}

	// A player who has not dressed yet this season has no featured line
	if fs := resp.FeaturedStats; fs != nil && fs.RegularSeason != nil && fs.RegularSeason.SubSeason != nil {
		sub := fs.RegularSeason.SubSeason
		if sub.Goals != nil {
			stats.SeasonGoals = *sub.Goals
		}
		if sub.GamesPlayed != nil {
			stats.SeasonGamesPlayed = *sub.GamesPlayed
		}
	}

	if stats.CareerGoals < 0 || stats.SeasonGoals < 0 || stats.SeasonGamesPlayed < 0 {
		return models.PlayerSeasonStats{}, dataShape(op, url, errors.New("negative totals"))
	}

	c.logger.WithFields(logrus.Fields{
		"component":    "nhl_client",
		"player_id":    playerID,
		"career_goals": stats.CareerGoals,
		"season_goals": stats.SeasonGoals,
		"games_played": stats.SeasonGamesPlayed,
	}).Debug("Fetched player stats")

	return stats, nil
}

// FetchRemainingSchedule fetches the team's games that have not started yet,
// ordered by start time and expressed in the configured location
func (c *NHLClient) FetchRemainingSchedule(ctx context.Context, teamAbbrev string) (models.Schedule, error) {
	const op = "fetch schedule"
	url := fmt.Sprintf("%s/club-schedule-season/%s/now", c.baseURL, teamAbbrev)

	var resp nhlScheduleResponse
	if err := c.getJSON(ctx, c.breaker, c.maxRetries, op, url, &resp); err != nil {
		return models.Schedule{}, err
	}

	now := c.now()
	games := make([]models.RemainingGame, 0, len(resp.Games))
	for _, g := range resp.Games {
		if !c.gameTypes[g.GameType] || !isPlayable(g) {
			continue
		}

		start, err := time.Parse(time.RFC3339, g.StartTimeUTC)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"component":  "nhl_client",
				"game_id":    g.ID,
				"start_time": g.StartTimeUTC,
			}).WithError(err).Warn("Skipping game with unreadable start time")
			continue
		}
		if start.Before(now) {
			continue
		}

		games = append(games, c.remainingGame(g, teamAbbrev, start))
	}

	c.logger.WithFields(logrus.Fields{
		"component": "nhl_client",
		"team":      teamAbbrev,
		"listed":    len(resp.Games),
		"remaining": len(games),
	}).Debug("Fetched schedule")

	return models.NewSchedule(games), nil
}

// FetchTeamGamesPlayed returns how many games the team has played this season.
// It is a single attempt behind its own breaker, so a standings outage never
// affects the stats and schedule requests.
func (c *NHLClient) FetchTeamGamesPlayed(ctx context.Context, teamAbbrev string) (int, error) {
	const op = "fetch standings"
	url := c.baseURL + "/standings/now"

	var resp nhlStandingsResponse
	if err := c.getJSON(ctx, c.standings, 0, op, url, &resp); err != nil {
		return 0, err
	}

	for _, s := range resp.Standings {
		if strings.EqualFold(s.TeamAbbrev.Default, teamAbbrev) {
			return s.GamesPlayed, nil
		}
	}
	return 0, dataShape(op, url, fmt.Errorf("team %s not in standings", teamAbbrev))
}

func (c *NHLClient) remainingGame(g nhlScheduleGame, teamAbbrev string, start time.Time) models.RemainingGame {
	home := strings.EqualFold(g.HomeTeam.Abbrev, teamAbbrev)
	opponent := g.HomeTeam
	if home {
		opponent = g.AwayTeam
	}

	return models.RemainingGame{
		GameID:         g.ID,
		StartTime:      start.In(c.location),
		Opponent:       clubName(opponent),
		OpponentAbbrev: opponent.Abbrev,
		Home:           home,
		Venue:          g.Venue.Default,
	}
}

func clubName(club nhlClub) string {
	name := strings.TrimSpace(club.PlaceName.Default + " " + club.CommonName.Default)
	if name == "" {
		name = club.Abbrev
	}
	if name == "" {
		return "Unknown"
	}
	return name
}

// isPlayable drops postponed, cancelled, suspended and finished games
func isPlayable(g nhlScheduleGame) bool {
	switch strings.ToUpper(g.GameScheduleState) {
	case "PPD", "CNCL", "SUSP":
		return false
	}
	switch strings.ToUpper(g.GameState) {
	case "FINAL", "OFF":
		return false
	}
	return true
}

// getJSON runs a GET through the limiter, breaker and retry loop and decodes the body into v
func (c *NHLClient) getJSON(ctx context.Context, breaker *gobreaker.CircuitBreaker, maxRetries int, op, url string, v interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<uint(attempt-1))
			c.logger.WithFields(logrus.Fields{
				"component": "nhl_client",
				"url":       url,
				"attempt":   attempt + 1,
				"backoff":   wait.String(),
			}).Warnf("Retrying after error: %v", lastErr)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return unavailable(op, url, 0, ctx.Err())
			case <-timer.C:
			}
		}

		body, err := c.fetch(ctx, breaker, op, url)
		if err == nil {
			if err := json.Unmarshal(body, v); err != nil {
				return dataShape(op, url, fmt.Errorf("decode: %v", err))
			}
			return nil
		}

		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return err
		}
	}

	return lastErr
}

// fetch performs one attempt
func (c *NHLClient) fetch(ctx context.Context, breaker *gobreaker.CircuitBreaker, op, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, unavailable(op, url, 0, err)
	}

	result, err := breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, dataShape(op, url, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, unavailable(op, url, 0, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, statusError(op, url, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, unavailable(op, url, resp.StatusCode, err)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, unavailable(op, url, 0, err)
		}
		return nil, err
	}

	return result.([]byte), nil
}

// clientError is a 4xx other than 429. It is not retried and does not count
// against the breaker.
type clientError struct {
	status int
}

func (e clientError) Error() string {
	return "unexpected status " + strconv.Itoa(e.status)
}

func statusError(op, url string, status int) *UpstreamError {
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return &UpstreamError{Op: op, URL: url, StatusCode: status, Err: fmt.Errorf("%w: %w", ErrUpstreamUnavailable, clientError{status: status})}
	}
	return unavailable(op, url, status, fmt.Errorf("status %d", status))
}

func isRetryable(err error) bool {
	var ce clientError
	if errors.As(err, &ce) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable)
}
