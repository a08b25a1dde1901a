package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/milestone-tracker/internal/models"
	"github.com/jstittsworth/milestone-tracker/internal/projection"
	"github.com/jstittsworth/milestone-tracker/internal/providers"
)

// TrackerOptions configures Tracker. Zero values fall back to defaults.
type TrackerOptions struct {
	FetchTimeout  time.Duration
	ZoneLabel     string
	UpcomingGames int
}

// Tracker assembles milestone snapshots from a StatsSource
type Tracker struct {
	source providers.StatsSource
	opts   TrackerOptions
	logger *logrus.Logger
}

// NewTracker creates a new tracker
func NewTracker(source providers.StatsSource, opts TrackerOptions, logger *logrus.Logger) *Tracker {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 20 * time.Second
	}
	if opts.UpcomingGames < 0 {
		opts.UpcomingGames = 0
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Tracker{source: source, opts: opts, logger: logger}
}

// Snapshot fetches current stats and projects the record game. It never returns
// an error: upstream failures become a StatusUpstreamError result.
func (t *Tracker) Snapshot(ctx context.Context, milestone models.Milestone) models.ProjectionResult {
	ctx, cancel := context.WithTimeout(ctx, t.opts.FetchTimeout)
	defer cancel()

	log := t.logger.WithFields(logrus.Fields{
		"component": "tracker",
		"player_id": milestone.PlayerID,
		"team":      milestone.TeamAbbrev,
		"target":    milestone.Target,
	})

	stats, err := t.source.FetchCurrentStats(ctx, milestone.PlayerID)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch player stats")
		return upstreamFailure(err)
	}

	pace := projection.CalculatePace(stats, milestone)
	result := baseResult(stats, milestone, pace)

	switch pace.State {
	case models.GamesNeededReached:
		result.Status = models.StatusRecordReached
		log.WithField("career_goals", stats.CareerGoals).Info("Milestone reached")
		return result
	case models.GamesNeededInsufficientData:
		result.Status = models.StatusInsufficientPaceData
		result.Detail = "no games played this season"
		return result
	case models.GamesNeededUnreachable:
		result.Status = models.StatusUndeterminedWithinSchedule
		result.Detail = "no goals scored this season"
		return result
	}

	schedule, teamGP, err := t.fetchSchedule(ctx, milestone.TeamAbbrev, log)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch schedule")
		return upstreamFailure(err)
	}

	gamesNeeded := pace.GamesNeeded
	result.GamesNeeded = &gamesNeeded
	remaining := projection.ProjectRemainingGoals(pace.Pace, schedule.Len())
	result.ProjectedRemainingGoals = &remaining
	result.UpcomingGames = schedule.Head(t.opts.UpcomingGames)
	if teamGP > 0 {
		result.TeamGamesPlayed = teamGP
		if missed := teamGP - stats.SeasonGamesPlayed; missed > 0 {
			result.GamesMissed = missed
		}
	}

	p := projection.ProjectRecordGame(gamesNeeded, schedule)
	switch p.Outcome {
	case projection.OutcomeProjected:
		result.Status = models.StatusOK
		result.ProjectedGame = projection.Describe(p, t.opts.ZoneLabel)
		confidence := projection.Confidence(stats.SeasonGamesPlayed, gamesNeeded)
		result.Confidence = &confidence
	case projection.OutcomeUndetermined:
		result.Status = models.StatusUndeterminedWithinSchedule
		result.Detail = fmt.Sprintf("needs %d games at current pace, %d remain on the schedule", gamesNeeded, schedule.Len())
	default:
		// CalculatePace only reports a projected count when goals are still needed
		result.Status = models.StatusRecordReached
	}

	log.WithFields(logrus.Fields{
		"status":       result.Status,
		"goals_needed": result.GoalsNeeded,
		"games_needed": gamesNeeded,
		"remaining":    schedule.Len(),
	}).Debug("Snapshot assembled")

	return result
}

// fetchSchedule loads the remaining schedule and, alongside it, the team's games
// played. Only the schedule is required.
func (t *Tracker) fetchSchedule(ctx context.Context, team string, log *logrus.Entry) (models.Schedule, int, error) {
	var (
		wg       sync.WaitGroup
		teamGP   int
		gpErr    error
		schedule models.Schedule
		err      error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		schedule, err = t.source.FetchRemainingSchedule(ctx, team)
	}()
	go func() {
		defer wg.Done()
		teamGP, gpErr = t.source.FetchTeamGamesPlayed(ctx, team)
	}()
	wg.Wait()

	if gpErr != nil {
		log.WithError(gpErr).Debug("Team games played unavailable")
		teamGP = 0
	}
	return schedule, teamGP, err
}

func baseResult(stats models.PlayerSeasonStats, milestone models.Milestone, pace projection.PaceResult) models.ProjectionResult {
	result := models.ProjectionResult{
		PlayerName:        stats.Name,
		MilestoneLabel:    milestone.Label,
		Milestone:         milestone.Target,
		CurrentTotal:      stats.CareerGoals,
		GoalsNeeded:       pace.GoalsNeeded,
		SeasonGoals:       stats.SeasonGoals,
		SeasonGamesPlayed: stats.SeasonGamesPlayed,
		GamesNeededState:  pace.State,
		ProgressPercent:   projection.ProgressPercent(stats.CareerGoals, milestone.Target),
	}
	if pace.PaceDefined {
		p := pace.Pace
		result.Pace = &p
	}
	return result
}

func upstreamFailure(err error) models.ProjectionResult {
	detail := "stats service unavailable"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		detail = "stats service timed out"
	case errors.Is(err, providers.ErrUpstreamDataShape):
		detail = "stats service returned unexpected data"
	}
	return models.ProjectionResult{
		Status: models.StatusUpstreamError,
		Detail: detail,
	}
}

// StatusMessage is the plain-language line consumers print for a snapshot
func StatusMessage(result models.ProjectionResult) string {
	label := result.MilestoneLabel
	if label == "" {
		label = fmt.Sprintf("%d goals", result.Milestone)
	}

	switch result.Status {
	case models.StatusOK:
		if result.ProjectedGame == nil {
			return fmt.Sprintf("%d goals needed to pass %s", result.GoalsNeeded, label)
		}
		return fmt.Sprintf("%d goals needed to pass %s. Projected record game: %s",
			result.GoalsNeeded, label, result.ProjectedGame.Description)
	case models.StatusRecordReached:
		return fmt.Sprintf("%s has reached %s with %d career goals", playerOrDefault(result), label, result.CurrentTotal)
	case models.StatusInsufficientPaceData:
		return fmt.Sprintf("%d goals needed to pass %s. No games played this season, so there is no pace to project from yet",
			result.GoalsNeeded, label)
	case models.StatusUndeterminedWithinSchedule:
		if result.GamesNeededState == models.GamesNeededUnreachable {
			return fmt.Sprintf("%d goals needed to pass %s. No goals this season, so the record game cannot be projected",
				result.GoalsNeeded, label)
		}
		return fmt.Sprintf("%d goals needed to pass %s. At the current pace the record will not fall this season",
			result.GoalsNeeded, label)
	case models.StatusUpstreamError:
		return "Stats service unavailable, try again later"
	}
	return string(result.Status)
}

func playerOrDefault(result models.ProjectionResult) string {
	if result.PlayerName != "" {
		return result.PlayerName
	}
	return "The player"
}
