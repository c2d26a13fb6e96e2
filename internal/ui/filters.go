package ui

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"snowmon/internal/config"
	"snowmon/internal/domain"
)

// presets are the sidebar time-window choices. "custom" enables the date
// inputs.
var presets = []string{"24h", "7d", "30d", "custom"}

const defaultPreset = "7d"

// filterState is the decoded sidebar form. Rebuilt from query parameters on
// every interaction; the domain filter is derived from it.
type filterState struct {
	Preset          string
	StartDate       string // yyyy-mm-dd, custom preset only
	EndDate         string
	Warehouses      []string
	User            string
	QueryTag        string
	FallbackMinutes int
}

func (h *Handler) filterFromRequest(r *http.Request) filterState {
	q := r.URL.Query()

	f := filterState{
		Preset:          q.Get("preset"),
		StartDate:       q.Get("start"),
		EndDate:         q.Get("end"),
		Warehouses:      q["wh"],
		User:            q.Get("user"),
		QueryTag:        q.Get("tag"),
		FallbackMinutes: h.FallbackMinutes,
	}
	if !contains(presets, f.Preset) {
		f.Preset = defaultPreset
	}
	if len(f.Warehouses) == 0 {
		f.Warehouses = []string{domain.AllWarehouses}
	}
	if v := q.Get("fb"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && config.ValidFallbackMinutes(n) {
			f.FallbackMinutes = n
		}
	}
	return f
}

// Window resolves the preset (or custom dates) into a concrete time window.
// Custom dates cover whole days: start-of-day through end-of-day.
func (f filterState) Window(now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfToday := today.Add(24*time.Hour - time.Second)

	switch f.Preset {
	case "24h":
		return today.AddDate(0, 0, -1), endOfToday
	case "30d":
		return today.AddDate(0, 0, -30), endOfToday
	case "custom":
		start, serr := time.ParseInLocation("2006-01-02", f.StartDate, now.Location())
		end, eerr := time.ParseInLocation("2006-01-02", f.EndDate, now.Location())
		if serr == nil && eerr == nil {
			return start, end.Add(24*time.Hour - time.Second)
		}
		fallthrough
	default: // 7d
		return today.AddDate(0, 0, -7), endOfToday
	}
}

// QueryFilter derives the domain filter from the sidebar state.
func (f filterState) QueryFilter(now time.Time) domain.QueryFilter {
	start, end := f.Window(now)
	return domain.QueryFilter{
		Start:      start,
		End:        end,
		Warehouses: f.Warehouses,
		User:       f.User,
		QueryTag:   f.QueryTag,
	}
}

// Encode serializes the state back into a query string so filter settings
// survive navigation between views.
func (f filterState) Encode() string {
	v := url.Values{}
	v.Set("preset", f.Preset)
	if f.Preset == "custom" {
		if f.StartDate != "" {
			v.Set("start", f.StartDate)
		}
		if f.EndDate != "" {
			v.Set("end", f.EndDate)
		}
	}
	for _, wh := range f.Warehouses {
		v.Add("wh", wh)
	}
	if f.User != "" {
		v.Set("user", f.User)
	}
	if f.QueryTag != "" {
		v.Set("tag", f.QueryTag)
	}
	v.Set("fb", strconv.Itoa(f.FallbackMinutes))
	return v.Encode()
}
