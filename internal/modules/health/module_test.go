package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin_bot/internal/accounting"
	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
	"coin_bot/internal/modules/health/service"
)

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadiness(t *testing.T) {
	state := service.NewState()
	mux := NewMux(Config{}, state, accounting.NewTotals())

	assert.Equal(t, http.StatusOK, get(t, mux, "/livez").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, mux, "/readyz").Code)

	state.SetReady(true)
	assert.Equal(t, http.StatusOK, get(t, mux, "/readyz").Code)
}

func TestStatusPage(t *testing.T) {
	state := service.NewState()
	totals := accounting.NewTotals()
	totals.AddFee(0.30)

	inst := instrument.New("Bitcoin", "BTC-USD", "btc", 10)
	inst.History.Push(models.PricePoint{Sequence: 7, Bid: 100, Ask: 100.5})
	state.Publish(inst.Status(time.Unix(1700000000, 0), "none"))

	mux := NewMux(Config{Mode: "paper", Strategy: "moving", ShortPeriods: 30, LongPeriods: 120}, state, totals)
	rec := get(t, mux, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var page StatusPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 120, page.LongPeriods)
	assert.Equal(t, 0.30, page.TotalFees)
	require.Len(t, page.Instruments, 1)
	assert.Equal(t, "BTC-USD", page.Instruments[0].Ticker)
	assert.Equal(t, 1, page.Instruments[0].DataLength)
	assert.True(t, page.Instruments[0].InitialRound)

	health := get(t, mux, "/healthz")
	assert.Contains(t, health.Body.String(), `"lastTickUnix":1700000000`)

	assert.Equal(t, http.StatusNotFound, get(t, mux, "/unknown").Code)
}

func TestDebugDownload(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "debug.log")
	require.NoError(t, os.WriteFile(logFile, []byte("line one\n"), 0o600))

	mux := NewMux(Config{LogFile: logFile}, service.NewState(), accounting.NewTotals())
	rec := get(t, mux, "/debug")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "line one\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "debug.log")

	mux = NewMux(Config{}, service.NewState(), accounting.NewTotals())
	assert.Equal(t, http.StatusNotFound, get(t, mux, "/debug").Code)
}
