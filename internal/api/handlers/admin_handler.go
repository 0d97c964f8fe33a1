package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"auction-settlement/internal/domain"
	"auction-settlement/pkg/clock"
	"auction-settlement/pkg/logger"

	"github.com/labstack/echo/v4"
)

type settlementController interface {
	Pending() []domain.PendingSettlement
	Cancel(ctx context.Context, auctionID string) bool
	Reschedule(ctx context.Context, auction *domain.Auction) error
}

type jobLister interface {
	GetPendingJobs(ctx context.Context, before time.Time) ([]*domain.ScheduledJob, error)
}

type AdminHandler struct {
	auctions  domain.AuctionRepository
	scheduler settlementController
	jobs      jobLister
	clock     clock.Clock
	log       logger.Logger
}

type jobResponse struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	JobType   string    `json:"job_type"`
	RunAt     time.Time `json:"run_at"`
	Status    string    `json:"status"`
}

func NewAdminHandler(auctions domain.AuctionRepository, scheduler settlementController, jobs jobLister,
	clk clock.Clock, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		auctions:  auctions,
		scheduler: scheduler,
		jobs:      jobs,
		clock:     clk,
		log:       log,
	}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api/v1")
	api.GET("/auctions", h.ListAuctions)
	api.GET("/settlements", h.ListSettlements)
	api.GET("/settlements/overdue", h.ListOverdueSettlements)
	api.DELETE("/settlements/:id", h.CancelSettlement)
	api.POST("/settlements/:id/reschedule", h.RescheduleSettlement)
}

func (h *AdminHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "settlement-service",
		"timestamp": h.clock.Now().Format(time.RFC3339),
		"armed":     len(h.scheduler.Pending()),
	})
}

// ListAuctions returns every auction grouped as open, closed, future and past.
func (h *AdminHandler) ListAuctions(c echo.Context) error {
	auctions, err := h.auctions.GetAuctionsPartitionedByTime(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to list auctions", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list auctions"})
	}
	return c.JSON(http.StatusOK, auctions)
}

func (h *AdminHandler) ListSettlements(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.Pending())
}

// ListOverdueSettlements returns recorded jobs that should have fired but
// never did, typically because the process restarted after their true end.
func (h *AdminHandler) ListOverdueSettlements(c echo.Context) error {
	jobs, err := h.jobs.GetPendingJobs(c.Request().Context(), h.clock.Now())
	if err != nil {
		h.log.Error("Failed to list overdue settlements", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list overdue settlements"})
	}

	resp := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, jobResponse{
			ID:        job.ID,
			AuctionID: job.AuctionID,
			JobType:   string(job.JobType),
			RunAt:     job.RunAt,
			Status:    string(job.Status),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) CancelSettlement(c echo.Context) error {
	auctionID := c.Param("id")
	if !h.scheduler.Cancel(c.Request().Context(), auctionID) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No pending settlement for auction"})
	}

	h.log.Info("Settlement cancelled by operator", "auction_id", auctionID)
	return c.JSON(http.StatusOK, map[string]string{
		"auction_id": auctionID,
		"message":    "Settlement cancelled",
	})
}

// RescheduleSettlement reloads the auction and re-arms it at its current
// true end.
func (h *AdminHandler) RescheduleSettlement(c echo.Context) error {
	ctx := c.Request().Context()
	auctionID := c.Param("id")

	auction, err := h.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
		}
		h.log.Error("Failed to load auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load auction"})
	}

	if err := h.scheduler.Reschedule(ctx, auction); err != nil {
		if errors.Is(err, domain.ErrAuctionEnded) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "Auction true end has already passed"})
		}
		h.log.Error("Failed to reschedule settlement", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to reschedule settlement"})
	}

	h.log.Info("Settlement rescheduled by operator", "auction_id", auctionID, "true_end", auction.TrueEnd)
	return c.JSON(http.StatusOK, domain.PendingSettlement{AuctionID: auction.ID, FireAt: auction.TrueEnd})
}
