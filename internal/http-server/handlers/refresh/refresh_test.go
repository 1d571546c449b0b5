package refreshPrices

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"kream_tracker/internal/storage"
	"kream_tracker/internal/sweep"

	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	summary sweep.Summary
	err     error
	runs    int
}

func (f *fakeSweeper) Run(ctx context.Context) (sweep.Summary, error) {
	f.runs++
	return f.summary, f.err
}

func newRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/cron/refresh-prices", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefreshSuccess(t *testing.T) {
	sweeper := &fakeSweeper{summary: sweep.Summary{Processed: 5, AlertsTriggered: 2}}
	handler := New(discardLogger(), sweeper, "s3cret")

	rec := httptest.NewRecorder()
	handler(rec, newRequest("s3cret"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, sweeper.runs)

	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 5, got.Processed)
	require.Equal(t, 2, got.AlertsTriggered)
}

func TestRefreshWrongSecret(t *testing.T) {
	sweeper := &fakeSweeper{}
	handler := New(discardLogger(), sweeper, "s3cret")

	rec := httptest.NewRecorder()
	handler(rec, newRequest("wrong"))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, sweeper.runs)
}

func TestRefreshMissingHeader(t *testing.T) {
	sweeper := &fakeSweeper{}
	handler := New(discardLogger(), sweeper, "s3cret")

	rec := httptest.NewRecorder()
	handler(rec, newRequest(""))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, sweeper.runs)
}

func TestRefreshSweepInProgress(t *testing.T) {
	sweeper := &fakeSweeper{err: storage.ErrSweepInProgress}
	handler := New(discardLogger(), sweeper, "s3cret")

	rec := httptest.NewRecorder()
	handler(rec, newRequest("s3cret"))

	require.Equal(t, http.StatusConflict, rec.Code)
}
