package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/milestone-tracker/internal/models"
)

// Snapshotter produces a snapshot for a milestone
type Snapshotter interface {
	Snapshot(ctx context.Context, milestone models.Milestone) models.ProjectionResult
}

// SnapshotRepository persists snapshots
type SnapshotRepository interface {
	Save(ctx context.Context, playerID string, result models.ProjectionResult, generatedAt time.Time) (*models.SnapshotRecord, error)
	Latest(ctx context.Context, playerID string) (*models.SnapshotRecord, error)
	History(ctx context.Context, playerID string, limit int) ([]models.SnapshotRecord, error)
}

// Broadcaster pushes updates to live clients
type Broadcaster interface {
	Broadcast(messageType string, data interface{}) error
}

// StatusUpdate is what the API, websocket and CLI surfaces show
type StatusUpdate struct {
	Snapshot    models.ProjectionResult `json:"snapshot"`
	Message     string                  `json:"message"`
	GeneratedAt time.Time               `json:"generated_at"`
	Stale       bool                    `json:"stale"`
	Changed     bool                    `json:"-"`
}

// RefresherOptions wires the optional collaborators. Store, Hub and Notifier may be nil.
type RefresherOptions struct {
	Store    SnapshotRepository
	Hub      Broadcaster
	Notifier *Notifier
	Now      func() time.Time
}

// Refresher takes snapshots on a schedule, stores the ones that changed,
// pushes them to live clients and notifies recipients
type Refresher struct {
	tracker   Snapshotter
	milestone models.Milestone
	store     SnapshotRepository
	hub       Broadcaster
	notifier  *Notifier
	now       func() time.Time
	logger    *logrus.Logger

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
	refreshMu sync.Mutex
}

func NewRefresher(tracker Snapshotter, milestone models.Milestone, opts RefresherOptions, logger *logrus.Logger) *Refresher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Refresher{
		tracker:   tracker,
		milestone: milestone,
		store:     opts.Store,
		hub:       opts.Hub,
		notifier:  opts.Notifier,
		now:       opts.Now,
		logger:    logger,
		cron:      cron.New(cron.WithLogger(cron.VerbosePrintfLogger(logger))),
	}
}

// Refresh takes a snapshot. A successful snapshot that differs from the last
// stored one is saved and broadcast, and sent to recipients when notify is set.
// An upstream failure falls back to the last stored snapshot marked stale.
func (r *Refresher) Refresh(ctx context.Context, notify bool) (StatusUpdate, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	log := r.logger.WithFields(logrus.Fields{
		"component": "refresher",
		"player_id": r.milestone.PlayerID,
	})

	result := r.tracker.Snapshot(ctx, r.milestone)
	generatedAt := r.now().UTC()

	if result.IsError() {
		log.WithField("detail", result.Detail).Warn("Snapshot failed, serving last known good")
		update, err := r.lastKnownGood(ctx)
		if err != nil {
			return StatusUpdate{Snapshot: result, Message: StatusMessage(result), GeneratedAt: generatedAt}, err
		}
		return update, nil
	}

	update := StatusUpdate{
		Snapshot:    result,
		Message:     StatusMessage(result),
		GeneratedAt: generatedAt,
		Changed:     true,
	}

	if r.store != nil {
		previous, err := r.store.Latest(ctx, r.milestone.PlayerID)
		switch {
		case errors.Is(err, ErrNoSnapshot):
		case err != nil:
			log.WithError(err).Warn("Failed to load previous snapshot")
		default:
			r.checkMonotonic(log, previous, result)
			update.Changed = !sameSnapshot(previous, result)
			if !update.Changed {
				update.GeneratedAt = previous.GeneratedAt
			}
		}

		if update.Changed {
			if _, err := r.store.Save(ctx, r.milestone.PlayerID, result, generatedAt); err != nil {
				log.WithError(err).Error("Failed to store snapshot")
			}
		}
	}

	if !update.Changed {
		return update, nil
	}

	log.WithFields(logrus.Fields{
		"status":        result.Status,
		"current_total": result.CurrentTotal,
		"goals_needed":  result.GoalsNeeded,
	}).Info("Snapshot changed")

	if r.hub != nil {
		if err := r.hub.Broadcast(MessageTypeSnapshot, update); err != nil {
			log.WithError(err).Warn("Failed to broadcast snapshot")
		}
	}

	if notify && r.notifier != nil {
		sent, err := r.notifier.Notify(ctx, result, false)
		if err != nil {
			log.WithError(err).Warn("Some notifications failed")
		}
		log.WithField("sent", sent).Info("Notifications sent")
	}

	return update, nil
}

// Latest returns the last stored snapshot without contacting the stats service
func (r *Refresher) Latest(ctx context.Context) (StatusUpdate, error) {
	return r.lastKnownGood(ctx)
}

// History returns stored snapshots, newest first
func (r *Refresher) History(ctx context.Context, limit int) ([]StatusUpdate, error) {
	if r.store == nil {
		return nil, nil
	}
	records, err := r.store.History(ctx, r.milestone.PlayerID, limit)
	if err != nil {
		return nil, err
	}

	updates := make([]StatusUpdate, 0, len(records))
	for i := range records {
		result, err := records[i].Result()
		if err != nil {
			return nil, err
		}
		updates = append(updates, StatusUpdate{
			Snapshot:    result,
			Message:     StatusMessage(result),
			GeneratedAt: records[i].GeneratedAt,
		})
	}
	return updates, nil
}

func (r *Refresher) lastKnownGood(ctx context.Context) (StatusUpdate, error) {
	if r.store == nil {
		return StatusUpdate{}, ErrNoSnapshot
	}
	record, err := r.store.Latest(ctx, r.milestone.PlayerID)
	if err != nil {
		return StatusUpdate{}, err
	}
	result, err := record.Result()
	if err != nil {
		return StatusUpdate{}, err
	}
	return StatusUpdate{
		Snapshot:    result,
		Message:     StatusMessage(result),
		GeneratedAt: record.GeneratedAt,
		Stale:       true,
	}, nil
}

// checkMonotonic warns when the career total went down, which means the
// stats service corrected a goal or returned bad data
func (r *Refresher) checkMonotonic(log *logrus.Entry, previous *models.SnapshotRecord, result models.ProjectionResult) {
	if result.CurrentTotal < previous.CurrentTotal {
		log.WithFields(logrus.Fields{
			"previous_total": previous.CurrentTotal,
			"current_total":  result.CurrentTotal,
		}).Warn("Career total decreased since the last snapshot")
	}
}

func sameSnapshot(previous *models.SnapshotRecord, result models.ProjectionResult) bool {
	stored, err := previous.Result()
	if err != nil {
		return false
	}
	a, err := json.Marshal(stored)
	if err != nil {
		return false
	}
	b, err := json.Marshal(result)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Start schedules Refresh with notifications on the cron spec and runs one
// refresh immediately
func (r *Refresher) Start(ctx context.Context, schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("refresher is already running")
	}

	_, err := r.cron.AddFunc(schedule, func() { r.runScheduled(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule refresher: %w", err)
	}

	r.cron.Start()
	r.isRunning = true

	go r.runScheduled(ctx)

	r.logger.WithFields(logrus.Fields{
		"component": "refresher",
		"schedule":  schedule,
	}).Info("Refresher started")
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning {
		return
	}

	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		r.logger.WithField("component", "refresher").Warn("Cron scheduler stop timed out")
	}

	r.isRunning = false
	r.logger.WithField("component", "refresher").Info("Refresher stopped")
}

func (r *Refresher) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.Refresh(ctx, true); err != nil && !errors.Is(err, ErrNoSnapshot) {
		r.logger.WithField("component", "refresher").WithError(err).Error("Scheduled refresh failed")
	}
}
