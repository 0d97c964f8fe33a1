package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-settlement/internal/domain"
	"auction-settlement/pkg/clock"
	"auction-settlement/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAuctions struct {
	auctions []*domain.Auction
	err      error
}

func (f *fakeAuctions) LoadAllAuctionsWithTrueEnd(context.Context) ([]*domain.Auction, error) {
	return f.auctions, f.err
}

func (f *fakeAuctions) GetAuction(_ context.Context, id string) (*domain.Auction, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.auctions {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domain.ErrAuctionNotFound
}

func (f *fakeAuctions) GetAuctionWithResolvedSlotWinners(_ context.Context, a *domain.Auction) (*domain.AuctionWithWinners, error) {
	return &domain.AuctionWithWinners{Auction: a}, nil
}

func (f *fakeAuctions) GetAuctionsPartitionedByTime(context.Context) (*domain.TimeRelativeAuctions, error) {
	if f.err != nil {
		return nil, f.err
	}
	return domain.PartitionByTime(f.auctions, now), nil
}

type fakeScheduler struct {
	pending     []domain.PendingSettlement
	cancelled   []string
	rescheduled []string
	err         error
}

func (f *fakeScheduler) Pending() []domain.PendingSettlement { return f.pending }

func (f *fakeScheduler) Cancel(_ context.Context, id string) bool {
	for _, p := range f.pending {
		if p.AuctionID == id {
			f.cancelled = append(f.cancelled, id)
			return true
		}
	}
	return false
}

func (f *fakeScheduler) Reschedule(_ context.Context, a *domain.Auction) error {
	if !a.TrueEnd.After(now) {
		return domain.ErrAuctionEnded
	}
	if f.err != nil {
		return f.err
	}
	f.rescheduled = append(f.rescheduled, a.ID)
	return nil
}

type fakeJobs struct {
	before time.Time
	jobs   []*domain.ScheduledJob
}

func (f *fakeJobs) GetPendingJobs(_ context.Context, before time.Time) ([]*domain.ScheduledJob, error) {
	f.before = before
	return f.jobs, nil
}

func auction(id string, start, end time.Duration) *domain.Auction {
	return &domain.Auction{ID: id, StartTime: now.Add(start), EndTime: now.Add(end), TrueEnd: now.Add(end)}
}

func newTestServer(auctions *fakeAuctions, scheduler *fakeScheduler, jobs *fakeJobs) *echo.Echo {
	e := echo.New()
	NewAdminHandler(auctions, scheduler, jobs, clock.NewManual(now), logger.NewNop()).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	e := newTestServer(&fakeAuctions{}, &fakeScheduler{pending: []domain.PendingSettlement{{AuctionID: "a1"}}}, &fakeJobs{})

	rec := do(e, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["armed"])
}

func TestListAuctions(t *testing.T) {
	auctions := &fakeAuctions{auctions: []*domain.Auction{
		auction("past", -48*time.Hour, -47*time.Hour),
		auction("open", -time.Hour, time.Hour),
		auction("future", 24*time.Hour, 25*time.Hour),
	}}
	e := newTestServer(auctions, &fakeScheduler{}, &fakeJobs{})

	rec := do(e, http.MethodGet, "/api/v1/auctions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.TimeRelativeAuctions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Open, 1)
	assert.Equal(t, "open", body.Open[0].ID)
	require.Len(t, body.Future, 1)
	require.Len(t, body.Past, 1)
	assert.Empty(t, body.Closed)
}

func TestListAuctionsError(t *testing.T) {
	e := newTestServer(&fakeAuctions{err: errors.New("db down")}, &fakeScheduler{}, &fakeJobs{})

	rec := do(e, http.MethodGet, "/api/v1/auctions")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListSettlements(t *testing.T) {
	scheduler := &fakeScheduler{pending: []domain.PendingSettlement{
		{AuctionID: "a1", FireAt: now.Add(time.Hour)},
		{AuctionID: "a2", FireAt: now.Add(48 * time.Hour)},
	}}
	e := newTestServer(&fakeAuctions{}, scheduler, &fakeJobs{})

	rec := do(e, http.MethodGet, "/api/v1/settlements")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []domain.PendingSettlement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "a1", body[0].AuctionID)
	assert.True(t, body[1].FireAt.Equal(now.Add(48*time.Hour)))
}

func TestListOverdueSettlements(t *testing.T) {
	jobs := &fakeJobs{jobs: []*domain.ScheduledJob{{
		ID: "job-1", AuctionID: "a1", JobType: domain.JobSettleAuction, RunAt: now.Add(-time.Hour), Status: domain.JobPending,
	}}}
	e := newTestServer(&fakeAuctions{}, &fakeScheduler{}, jobs)

	rec := do(e, http.MethodGet, "/api/v1/settlements/overdue")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, jobs.before.Equal(now))

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "a1", body[0]["auction_id"])
	assert.Equal(t, "settle_auction", body[0]["job_type"])
}

func TestCancelSettlement(t *testing.T) {
	scheduler := &fakeScheduler{pending: []domain.PendingSettlement{{AuctionID: "a1"}}}
	e := newTestServer(&fakeAuctions{}, scheduler, &fakeJobs{})

	rec := do(e, http.MethodDelete, "/api/v1/settlements/a1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a1"}, scheduler.cancelled)

	rec = do(e, http.MethodDelete, "/api/v1/settlements/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleSettlement(t *testing.T) {
	auctions := &fakeAuctions{auctions: []*domain.Auction{
		auction("live", -time.Hour, 3*time.Hour),
		auction("ended", -3*time.Hour, -time.Hour),
	}}
	scheduler := &fakeScheduler{}
	e := newTestServer(auctions, scheduler, &fakeJobs{})

	rec := do(e, http.MethodPost, "/api/v1/settlements/live/reschedule")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"live"}, scheduler.rescheduled)

	var body domain.PendingSettlement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.FireAt.Equal(now.Add(3*time.Hour)))

	rec = do(e, http.MethodPost, "/api/v1/settlements/ended/reschedule")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/settlements/missing/reschedule")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleSettlementFailure(t *testing.T) {
	auctions := &fakeAuctions{auctions: []*domain.Auction{auction("live", -time.Hour, 3*time.Hour)}}
	e := newTestServer(auctions, &fakeScheduler{err: domain.ErrSchedulerStopped}, &fakeJobs{})

	rec := do(e, http.MethodPost, "/api/v1/settlements/live/reschedule")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
