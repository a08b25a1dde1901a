package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/milestone-tracker/internal/models"
	"github.com/jstittsworth/milestone-tracker/internal/services"
	"github.com/jstittsworth/milestone-tracker/pkg/utils"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// StatusService is the part of services.Refresher the status endpoints use
type StatusService interface {
	Refresh(ctx context.Context, notify bool) (services.StatusUpdate, error)
	History(ctx context.Context, limit int) ([]services.StatusUpdate, error)
}

// CacheInvalidator drops cached upstream responses before a forced refresh
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type StatusHandler struct {
	status StatusService
	cache  CacheInvalidator
	logger *logrus.Logger
}

// NewStatusHandler creates the status handler. cache may be nil.
func NewStatusHandler(status StatusService, cache CacheInvalidator, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		status: status,
		cache:  cache,
		logger: logger,
	}
}

// GetStatus returns the current snapshot, or the last stored one marked stale
// when the stats service cannot be reached
func (h *StatusHandler) GetStatus(c *gin.Context) {
	update, ok := h.refresh(c, false)
	if !ok {
		return
	}
	utils.SendSuccessWithMeta(c, update, &utils.Meta{Stale: update.Stale})
}

// GetSchedule returns the next few games from the current snapshot
func (h *StatusHandler) GetSchedule(c *gin.Context) {
	update, ok := h.refresh(c, false)
	if !ok {
		return
	}

	games := update.Snapshot.UpcomingGames
	if games == nil {
		games = []models.RemainingGame{}
	}
	utils.SendSuccessWithMeta(c, games, &utils.Meta{Total: len(games), Stale: update.Stale})
}

// GetHistory returns stored snapshots, newest first
func (h *StatusHandler) GetHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.SendValidationError(c, "Invalid limit", "limit must be a positive integer")
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	history, err := h.status.History(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load snapshot history")
		utils.SendInternalError(c, "Failed to load snapshot history")
		return
	}
	if history == nil {
		history = []services.StatusUpdate{}
	}
	utils.SendSuccessWithMeta(c, history, &utils.Meta{Total: len(history), Limit: limit})
}

// ForceRefresh drops cached upstream data, takes a fresh snapshot and notifies
// recipients when it changed
func (h *StatusHandler) ForceRefresh(c *gin.Context) {
	if h.cache != nil {
		if err := h.cache.Invalidate(c.Request.Context()); err != nil {
			h.logger.WithError(err).Warn("Failed to invalidate stats cache")
		}
	}

	update, ok := h.refresh(c, true)
	if !ok {
		return
	}
	utils.SendSuccessWithMeta(c, update, &utils.Meta{Stale: update.Stale})
}

func (h *StatusHandler) refresh(c *gin.Context, notify bool) (services.StatusUpdate, bool) {
	update, err := h.status.Refresh(c.Request.Context(), notify)
	switch {
	case errors.Is(err, services.ErrNoSnapshot):
		utils.SendUpstreamUnavailable(c, update.Message, update.Snapshot.Detail)
		return update, false
	case err != nil:
		h.logger.WithError(err).Error("Failed to refresh snapshot")
		utils.SendInternalError(c, "Failed to load milestone status")
		return update, false
	}
	return update, true
}
