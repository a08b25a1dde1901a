package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SnapshotRecord is a stored snapshot. Only non-error snapshots are kept so the
// latest row is always the last known good one.
type SnapshotRecord struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PlayerID     string         `gorm:"index;not null" json:"player_id"`
	Status       Status         `gorm:"not null" json:"status"`
	CurrentTotal int            `json:"current_total"`
	GoalsNeeded  int            `json:"goals_needed"`
	ProjectedFor *time.Time     `json:"projected_for,omitempty"` // projected game start
	Payload      datatypes.JSON `json:"payload"`
	GeneratedAt  time.Time      `gorm:"index;not null" json:"generated_at"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName specifies the table name for GORM
func (SnapshotRecord) TableName() string {
	return "snapshots"
}

// BeforeCreate assigns a UUID when none was set
func (r *SnapshotRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NewSnapshotRecord serializes a result for storage
func NewSnapshotRecord(playerID string, result ProjectionResult, generatedAt time.Time) (*SnapshotRecord, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	record := &SnapshotRecord{
		PlayerID:     playerID,
		Status:       result.Status,
		CurrentTotal: result.CurrentTotal,
		GoalsNeeded:  result.GoalsNeeded,
		Payload:      datatypes.JSON(payload),
		GeneratedAt:  generatedAt.UTC(),
	}
	if result.ProjectedGame != nil {
		start := result.ProjectedGame.Game.StartTime.UTC()
		record.ProjectedFor = &start
	}
	return record, nil
}

// Result decodes the stored snapshot
func (r *SnapshotRecord) Result() (ProjectionResult, error) {
	var result ProjectionResult
	if err := json.Unmarshal(r.Payload, &result); err != nil {
		return ProjectionResult{}, fmt.Errorf("failed to unmarshal snapshot %s: %w", r.ID, err)
	}
	return result, nil
}
