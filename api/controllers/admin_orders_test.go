package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/resale-backend/internal/cron"
	"github.com/angelmondragon/resale-backend/pkg/logger"
)

type stubSweeper struct {
	summary *cron.SweepSummary
	err     error
	calls   int
}

func (s *stubSweeper) Sweep(ctx context.Context) (*cron.SweepSummary, error) {
	s.calls++
	return s.summary, s.err
}

func TestAdminSweepReturnsSummary(t *testing.T) {
	sweeper := &stubSweeper{summary: &cron.SweepSummary{Examined: 3, Cancelled: 2, Failed: 1}, err: errors.New("order x: boom")}
	rec := httptest.NewRecorder()

	AdminSweep(sweeper, logger.New(logger.Options{ServiceName: "admin-test"})).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/sweep", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data cron.SweepSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.Examined)
	assert.Equal(t, 2, envelope.Data.Cancelled)
	assert.Equal(t, 1, envelope.Data.Failed)
	assert.Equal(t, 1, sweeper.calls)
}

func TestAdminSweepCandidateQueryFailure(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("db down")}
	rec := httptest.NewRecorder()

	AdminSweep(sweeper, logger.New(logger.Options{ServiceName: "admin-test"})).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/sweep", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
