package ui

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowmon/internal/domain"
)

func testHandler() *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(nil, nil, 60, logger)
}

func TestFilterFromRequestDefaults(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest("GET", "/", nil)

	f := h.filterFromRequest(r)
	assert.Equal(t, "7d", f.Preset)
	assert.Equal(t, []string{domain.AllWarehouses}, f.Warehouses)
	assert.Equal(t, 60, f.FallbackMinutes)
}

func TestFilterFromRequestParsesParams(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest("GET", "/?preset=24h&wh=A_WH&wh=B_WH&user=alice&tag=nightly&fb=15", nil)

	f := h.filterFromRequest(r)
	assert.Equal(t, "24h", f.Preset)
	assert.Equal(t, []string{"A_WH", "B_WH"}, f.Warehouses)
	assert.Equal(t, "alice", f.User)
	assert.Equal(t, "nightly", f.QueryTag)
	assert.Equal(t, 15, f.FallbackMinutes)
}

func TestFilterFromRequestRejectsBadValues(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest("GET", "/?preset=14d&fb=45", nil)

	f := h.filterFromRequest(r)
	assert.Equal(t, "7d", f.Preset)
	assert.Equal(t, 60, f.FallbackMinutes)
}

func TestWindowPresets(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	endOfToday := time.Date(2026, 8, 25, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		preset    string
		wantStart time.Time
	}{
		{"24h", time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)},
		{"7d", time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)},
		{"30d", time.Date(2026, 7, 26, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			start, end := filterState{Preset: tt.preset}.Window(now)
			assert.True(t, start.Equal(tt.wantStart), "start=%v", start)
			assert.True(t, end.Equal(endOfToday), "end=%v", end)
		})
	}
}

func TestWindowCustomDates(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	f := filterState{Preset: "custom", StartDate: "2026-08-01", EndDate: "2026-08-10"}

	start, end := f.Window(now)
	assert.True(t, start.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
	// End covers the whole final day.
	assert.True(t, end.Equal(time.Date(2026, 8, 10, 23, 59, 59, 0, time.UTC)))
}

func TestWindowCustomFallsBackOnBadDates(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	f := filterState{Preset: "custom", StartDate: "not-a-date", EndDate: "2026-08-10"}

	start, end := f.Window(now)
	assert.True(t, start.Equal(time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)))
	assert.True(t, end.Equal(time.Date(2026, 8, 25, 23, 59, 59, 0, time.UTC)))
}

func TestEncodeRoundTrip(t *testing.T) {
	h := testHandler()
	f := filterState{
		Preset:          "custom",
		StartDate:       "2026-08-01",
		EndDate:         "2026-08-10",
		Warehouses:      []string{"A_WH", "B_WH"},
		User:            "alice",
		QueryTag:        "nightly",
		FallbackMinutes: 30,
	}

	r := httptest.NewRequest("GET", "/?"+f.Encode(), nil)
	assert.Equal(t, f, h.filterFromRequest(r))
}

func TestEncodeDropsDatesForPresetWindows(t *testing.T) {
	f := filterState{Preset: "7d", StartDate: "2026-08-01", EndDate: "2026-08-10", Warehouses: []string{domain.AllWarehouses}, FallbackMinutes: 60}

	v, err := url.ParseQuery(f.Encode())
	require.NoError(t, err)
	assert.Empty(t, v.Get("start"))
	assert.Empty(t, v.Get("end"))
	assert.Equal(t, "7d", v.Get("preset"))
}
