package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/jstittsworth/milestone-tracker/internal/models"
	"github.com/jstittsworth/milestone-tracker/pkg/database"
)

type mockSnapshotter struct {
	mock.Mock
}

func (m *mockSnapshotter) Snapshot(ctx context.Context, milestone models.Milestone) models.ProjectionResult {
	args := m.Called(ctx, milestone)
	return args.Get(0).(models.ProjectionResult)
}

type recordingHub struct {
	mu       sync.Mutex
	messages []StatusUpdate
}

func (h *recordingHub) Broadcast(messageType string, data interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, data.(StatusUpdate))
	return nil
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

type RefresherTestSuite struct {
	suite.Suite
	db      *database.DB
	store   *SnapshotStore
	tracker *mockSnapshotter
	hub     *recordingHub
	sender  *MockSender
	now     time.Time
	r       *Refresher
}

func (s *RefresherTestSuite) SetupSuite() {
	db, err := database.NewConnection(":memory:", false, quietLogger())
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate())
	s.db = db
	s.store = NewSnapshotStore(db)
}

func (s *RefresherTestSuite) TearDownSuite() {
	s.db.Close()
}

func (s *RefresherTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM snapshots")
	s.tracker = new(mockSnapshotter)
	s.hub = &recordingHub{}
	s.sender = NewMockSender(quietLogger())
	s.now = time.Date(2025, 4, 8, 12, 0, 0, 0, time.UTC)

	notifier := NewNotifier(s.sender, nil, []string{"+15550001111"}, quietLogger())
	s.r = NewRefresher(s.tracker, milestone, RefresherOptions{
		Store:    s.store,
		Hub:      s.hub,
		Notifier: notifier,
		Now:      func() time.Time { return s.now },
	}, quietLogger())
}

func (s *RefresherTestSuite) TestFirstSnapshotIsStoredBroadcastAndSent() {
	s.tracker.On("Snapshot", mock.Anything, milestone).Return(okResult())

	update, err := s.r.Refresh(context.Background(), true)

	s.Require().NoError(err)
	s.True(update.Changed)
	s.False(update.Stale)
	s.Equal(s.now, update.GeneratedAt)
	s.Equal(1, s.hub.count())
	s.Len(s.sender.Sent(), 1)

	history, err := s.store.History(context.Background(), milestone.PlayerID, 10)
	s.Require().NoError(err)
	s.Len(history, 1)
}

func (s *RefresherTestSuite) TestUnchangedSnapshotIsNotRepeated() {
	s.tracker.On("Snapshot", mock.Anything, milestone).Return(okResult())

	first, err := s.r.Refresh(context.Background(), true)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	second, err := s.r.Refresh(context.Background(), true)
	s.Require().NoError(err)

	s.False(second.Changed)
	s.True(first.GeneratedAt.Equal(second.GeneratedAt))
	s.Equal(1, s.hub.count())
	s.Len(s.sender.Sent(), 1)

	history, err := s.r.History(context.Background(), 10)
	s.Require().NoError(err)
	s.Len(history, 1)
}

func (s *RefresherTestSuite) TestChangedSnapshotWithoutNotify() {
	first := okResult()
	second := okResult()
	second.CurrentTotal = 888
	second.GoalsNeeded = 6
	s.tracker.On("Snapshot", mock.Anything, milestone).Return(first).Once()
	s.tracker.On("Snapshot", mock.Anything, milestone).Return(second).Once()

	_, err := s.r.Refresh(context.Background(), false)
	s.Require().NoError(err)
	s.now = s.now.Add(time.Hour)
	update, err := s.r.Refresh(context.Background(), false)
	s.Require().NoError(err)

	s.True(update.Changed)
	s.Equal(888, update.Snapshot.CurrentTotal)
	s.Equal(2, s.hub.count())
	s.Empty(s.sender.Sent())

	history, err := s.r.History(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(888, history[0].Snapshot.CurrentTotal)
}

func (s *RefresherTestSuite) TestUpstreamErrorFallsBackToLastKnownGood() {
	s.tracker.On("Snapshot", mock.Anything, milestone).Return(okResult()).Once()
	s.tracker.On("Snapshot", mock.Anything, milestone).
		Return(models.ProjectionResult{Status: models.StatusUpstreamError, Detail: "stats service unavailable"}).Once()

	_, err := s.r.Refresh(context.Background(), true)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	update, err := s.r.Refresh(context.Background(), true)

	s.Require().NoError(err)
	s.True(update.Stale)
	s.Equal(models.StatusOK, update.Snapshot.Status)
	s.Equal(1, s.hub.count())
	s.Len(s.sender.Sent(), 1)
}

func (s *RefresherTestSuite) TestUpstreamErrorWithoutHistory() {
	s.tracker.On("Snapshot", mock.Anything, milestone).
		Return(models.ProjectionResult{Status: models.StatusUpstreamError, Detail: "stats service unavailable"})

	update, err := s.r.Refresh(context.Background(), true)

	s.ErrorIs(err, ErrNoSnapshot)
	s.True(update.Snapshot.IsError())
	s.Equal("Stats service unavailable, try again later", update.Message)
	s.Zero(s.hub.count())
}

func (s *RefresherTestSuite) TestStartRunsImmediately() {
	s.tracker.On("Snapshot", mock.Anything, milestone).Return(okResult())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Require().NoError(s.r.Start(ctx, "@every 1h"))
	defer s.r.Stop()
	s.Error(s.r.Start(ctx, "@every 1h"), "second start is rejected")

	s.Eventually(func() bool { return s.hub.count() == 1 }, time.Second, 10*time.Millisecond)
}

func (s *RefresherTestSuite) TestStartRejectsBadSchedule() {
	s.Error(s.r.Start(context.Background(), "every so often"))
}

func TestRefresherTestSuite(t *testing.T) {
	suite.Run(t, new(RefresherTestSuite))
}
