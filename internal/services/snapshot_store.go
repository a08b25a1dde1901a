package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jstittsworth/milestone-tracker/internal/models"
	"github.com/jstittsworth/milestone-tracker/pkg/database"
)

// ErrNoSnapshot means nothing has been stored for the player yet
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore keeps the history of successful snapshots
type SnapshotStore struct {
	db *database.DB
}

func NewSnapshotStore(db *database.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save stores a snapshot. Upstream errors are never stored, so Latest always
// returns the last known good snapshot.
func (s *SnapshotStore) Save(ctx context.Context, playerID string, result models.ProjectionResult, generatedAt time.Time) (*models.SnapshotRecord, error) {
	if result.IsError() {
		return nil, fmt.Errorf("refusing to store %s snapshot", result.Status)
	}

	record, err := models.NewSnapshotRecord(playerID, result, generatedAt)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return record, nil
}

// Latest returns the most recent stored snapshot for the player
func (s *SnapshotStore) Latest(ctx context.Context, playerID string) (*models.SnapshotRecord, error) {
	var record models.SnapshotRecord
	err := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("generated_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return &record, nil
}

// History returns up to limit snapshots, newest first
func (s *SnapshotStore) History(ctx context.Context, playerID string, limit int) ([]models.SnapshotRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []models.SnapshotRecord
	err := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("generated_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot history: %w", err)
	}
	return records, nil
}
