package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jstittsworth/milestone-tracker/internal/models"
	"github.com/jstittsworth/milestone-tracker/pkg/database"
)

type SnapshotStoreTestSuite struct {
	suite.Suite
	db    *database.DB
	store *SnapshotStore
	ctx   context.Context
}

func (s *SnapshotStoreTestSuite) SetupSuite() {
	db, err := database.NewConnection(":memory:", false, quietLogger())
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate())

	s.db = db
	s.store = NewSnapshotStore(db)
	s.ctx = context.Background()
}

func (s *SnapshotStoreTestSuite) TearDownSuite() {
	s.db.Close()
}

func (s *SnapshotStoreTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM snapshots")
}

func (s *SnapshotStoreTestSuite) TestLatestWithoutSnapshots() {
	_, err := s.store.Latest(s.ctx, "8471214")
	s.ErrorIs(err, ErrNoSnapshot)
}

func (s *SnapshotStoreTestSuite) TestSaveAndLatest() {
	base := time.Date(2025, 4, 8, 12, 0, 0, 0, time.UTC)

	first := okResult()
	first.CurrentTotal = 886
	_, err := s.store.Save(s.ctx, "8471214", first, base)
	s.Require().NoError(err)

	second := okResult()
	second.ProjectedGame.Game = models.RemainingGame{GameID: 42, StartTime: base.Add(48 * time.Hour), Opponent: "Carolina Hurricanes"}
	saved, err := s.store.Save(s.ctx, "8471214", second, base.Add(time.Hour))
	s.Require().NoError(err)
	s.NotEqual(saved.ID.String(), "00000000-0000-0000-0000-000000000000")

	latest, err := s.store.Latest(s.ctx, "8471214")
	s.Require().NoError(err)
	s.Equal(887, latest.CurrentTotal)
	s.Require().NotNil(latest.ProjectedFor)
	s.True(base.Add(48 * time.Hour).Equal(*latest.ProjectedFor))

	result, err := latest.Result()
	s.Require().NoError(err)
	s.Equal(models.StatusOK, result.Status)
	s.Equal(int64(42), result.ProjectedGame.Game.GameID)
	s.Equal(7, result.GoalsNeeded)
}

func (s *SnapshotStoreTestSuite) TestRefusesUpstreamErrors() {
	_, err := s.store.Save(s.ctx, "8471214", models.ProjectionResult{Status: models.StatusUpstreamError}, time.Now())
	s.Error(err)

	_, err = s.store.Latest(s.ctx, "8471214")
	s.ErrorIs(err, ErrNoSnapshot)
}

func (s *SnapshotStoreTestSuite) TestHistory() {
	base := time.Date(2025, 4, 8, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := okResult()
		r.CurrentTotal = 880 + i
		_, err := s.store.Save(s.ctx, "8471214", r, base.Add(time.Duration(i)*time.Hour))
		s.Require().NoError(err)
	}
	_, err := s.store.Save(s.ctx, "8478402", okResult(), base)
	s.Require().NoError(err)

	history, err := s.store.History(s.ctx, "8471214", 3)
	s.Require().NoError(err)
	s.Require().Len(history, 3)
	s.Equal(884, history[0].CurrentTotal)
	s.Equal(882, history[2].CurrentTotal)

	all, err := s.store.History(s.ctx, "8471214", 0)
	s.Require().NoError(err)
	s.Len(all, 5)
}

func TestSnapshotStoreTestSuite(t *testing.T) {
	suite.Run(t, new(SnapshotStoreTestSuite))
}
