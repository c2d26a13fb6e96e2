package ui

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"

	"snowmon/internal/domain"
	"snowmon/internal/live"
	"snowmon/internal/usage"
)

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	f := h.filterFromRequest(r)
	qf := f.QueryFilter(time.Now())
	options := h.warehouseOptions(r, f)

	counts, err := h.Monitor.StatusOverview(r.Context(), qf)
	if err != nil {
		h.renderServiceError(w, r, f, options, "Overview", "overview", err)
		return
	}
	top, err := h.Monitor.TopQueries(r.Context(), qf)
	if err != nil {
		h.renderServiceError(w, r, f, options, "Overview", "overview", err)
		return
	}
	long, err := h.Monitor.LongRunning(r.Context(), qf)
	if err != nil {
		h.renderServiceError(w, r, f, options, "Overview", "overview", err)
		return
	}

	renderHTML(w, http.StatusOK, appPage(
		"Overview", "overview", f, options,
		statusCard(counts),
		topQueriesCard("Top 10 by total runtime", top.ByElapsed, usage.ByElapsed),
		topQueriesCard("Top 10 by bytes scanned", top.ByBytesScanned, usage.ByBytesScanned),
		topQueriesCard("Top 10 by cloud services credits", top.ByCredits, usage.ByCredits),
		longRunningCard(long),
	))
}

func statusCard(counts map[domain.QueryStatus]int) gomponents.Node {
	statuses := make([]domain.QueryStatus, 0, len(counts))
	total := 0
	for s, n := range counts {
		statuses = append(statuses, s)
		total += n
	}
	sort.Slice(statuses, func(i, j int) bool {
		if counts[statuses[i]] != counts[statuses[j]] {
			return counts[statuses[i]] > counts[statuses[j]]
		}
		return statuses[i] < statuses[j]
	})

	if total == 0 {
		return card("Status Overview", html.Div(html.Class("blankslate"), html.P(gomponents.Text("No queries in the selected window."))))
	}

	rows := make([]gomponents.Node, 0, len(statuses))
	entries := make([]barEntry, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, html.Tr(
			html.Td(statusLabel(s)),
			html.Td(html.Class("num"), gomponents.Text(strconv.Itoa(counts[s]))),
		))
		entries = append(entries, barEntry{
			Label:   string(s),
			Value:   float64(counts[s]),
			Display: strconv.Itoa(counts[s]),
		})
	}

	return card("Status Overview",
		html.Div(html.Class("table-wrap"),
			html.Table(
				html.THead(html.Tr(html.Th(gomponents.Text("Status")), html.Th(gomponents.Text("Queries")))),
				html.TBody(gomponents.Group(rows)),
			),
		),
		html.H3(gomponents.Text("Distribution")),
		barChart(entries),
		html.P(html.Class("muted"), gomponents.Text(fmt.Sprintf("%d queries total.", total))),
	)
}

func topQueriesCard(title string, records []domain.QueryRecord, m usage.Metric) gomponents.Node {
	rows := make([]gomponents.Node, 0, len(records))
	for _, rec := range records {
		metric := ""
		switch m {
		case usage.ByBytesScanned:
			metric = formatBytes(rec.BytesScanned)
		case usage.ByCredits:
			metric = formatCreditsPtr(rec.CreditsUsed)
		default:
			metric = formatMS(rec.ElapsedMS)
		}
		rows = append(rows, html.Tr(
			html.Td(gomponents.Text(rec.QueryID)),
			html.Td(gomponents.Text(rec.User)),
			html.Td(gomponents.Text(rec.Warehouse)),
			html.Td(gomponents.Text(formatTime(rec.StartTime))),
			html.Td(html.Class("num"), gomponents.Text(metric)),
			html.Td(html.Class("sql"), html.Title(rec.QueryText), gomponents.Text(truncate(rec.QueryText, 120))),
		))
	}
	return tableCard(title,
		[]string{"Query ID", "User", "Warehouse", "Started", m.Label(), "SQL"},
		rows, "No queries in the selected window.")
}

func longRunningCard(records []domain.QueryRecord) gomponents.Node {
	rows := make([]gomponents.Node, 0, len(records))
	for _, rec := range records {
		rows = append(rows, html.Tr(
			html.Td(gomponents.Text(rec.QueryID)),
			html.Td(gomponents.Text(rec.User)),
			html.Td(gomponents.Text(rec.Warehouse)),
			html.Td(statusLabel(rec.Status)),
			html.Td(gomponents.Text(formatTime(rec.StartTime))),
			html.Td(html.Class("num"), gomponents.Text(formatMS(rec.ElapsedMS))),
			html.Td(html.Class("sql"), html.Title(rec.QueryText), gomponents.Text(truncate(rec.QueryText, 120))),
		))
	}
	return tableCard("Long-Running Queries (>10 minutes)",
		[]string{"Query ID", "User", "Warehouse", "Status", "Started", "Runtime", "SQL"},
		rows, "No long-running queries in the selected window.")
}

func (h *Handler) LiveQueries(w http.ResponseWriter, r *http.Request) {
	f := h.filterFromRequest(r)
	qf := f.QueryFilter(time.Now())
	options := h.warehouseOptions(r, f)

	snapshot, err := h.Live.Running(r.Context(), qf, f.FallbackMinutes)
	if err != nil {
		var selection *domain.InvalidSelectionError
		if errors.As(err, &selection) {
			renderHTML(w, http.StatusOK, appPage(
				"Live Queries", "live", f, options,
				noticeCard("warn", selection.Error()),
			))
			return
		}
		h.renderServiceError(w, r, f, options, "Live Queries", "live", err)
		return
	}

	freshness := noticeCard("", fmt.Sprintf("Live data from SHOW QUERIES on %s.", snapshot.Warehouse))
	if snapshot.Mode == live.ModeFallback {
		freshness = noticeCard("warn", fmt.Sprintf(
			"SHOW QUERIES unavailable or empty on %s; showing the last %d minutes from the history view instead (may lag).",
			snapshot.Warehouse, f.FallbackMinutes))
	}

	rows := make([]gomponents.Node, 0, len(snapshot.Records))
	for _, rec := range snapshot.Records {
		rows = append(rows, html.Tr(
			rowShow(rec.QueryID+" "+rec.User+" "+rec.QueryText),
			html.Td(gomponents.Text(rec.QueryID)),
			html.Td(gomponents.Text(rec.User)),
			html.Td(statusLabel(rec.Status)),
			html.Td(gomponents.Text(formatTime(rec.StartTime))),
			html.Td(html.Class("num"), gomponents.Text(formatMS(rec.ElapsedMS))),
			html.Td(html.Class("sql"), html.Title(rec.QueryText), gomponents.Text(truncate(rec.QueryText, 120))),
		))
	}

	renderHTML(w, http.StatusOK, appPage(
		"Live Queries", "live", f, options,
		freshness,
		quickFilterCard("Filter by query ID, user, or SQL"),
		tableCard(fmt.Sprintf("Currently Running (%s)", snapshot.Mode),
			[]string{"Query ID", "User", "Status", "Started", "Elapsed", "SQL"},
			rows, "No running queries."),
	))
}

func (h *Handler) CostMonitor(w http.ResponseWriter, r *http.Request) {
	f := h.filterFromRequest(r)
	qf := f.QueryFilter(time.Now())
	options := h.warehouseOptions(r, f)

	credits, err := h.Monitor.Credits(r.Context(), qf)
	if err != nil {
		h.renderServiceError(w, r, f, options, "Cost Monitor", "cost", err)
		return
	}
	allocations, err := h.Monitor.EstimatedQueryCost(r.Context(), qf)
	if err != nil {
		h.renderServiceError(w, r, f, options, "Cost Monitor", "cost", err)
		return
	}

	renderHTML(w, http.StatusOK, appPage(
		"Cost Monitor", "cost", f, options,
		creditSeriesCard("Warehouse Credits (Hourly)", credits.Hourly, "2006-01-02 15:04"),
		creditSeriesCard("Warehouse Credits (Daily)", credits.Daily, "2006-01-02"),
		allocationCard(allocations),
	))
}

func creditSeriesCard(title string, rows []domain.CreditRow, timeFormat string) gomponents.Node {
	entries := make([]barEntry, 0, len(rows))
	trs := make([]gomponents.Node, 0, len(rows))
	for _, cr := range rows {
		label := cr.PeriodStart.Format(timeFormat) + " " + cr.Warehouse
		entries = append(entries, barEntry{Label: label, Value: cr.Credits, Display: formatCredits(cr.Credits)})
		trs = append(trs, html.Tr(
			html.Td(gomponents.Text(cr.PeriodStart.Format(timeFormat))),
			html.Td(gomponents.Text(cr.Warehouse)),
			html.Td(html.Class("num"), gomponents.Text(formatCredits(cr.Credits))),
		))
	}
	if len(rows) == 0 {
		return card(title, html.Div(html.Class("blankslate"), html.P(gomponents.Text("No metered credits in the selected window."))))
	}
	return card(title,
		barChart(entries),
		html.Div(html.Class("table-wrap"),
			html.Table(
				html.THead(html.Tr(html.Th(gomponents.Text("Period")), html.Th(gomponents.Text("Warehouse")), html.Th(gomponents.Text("Credits")))),
				html.TBody(gomponents.Group(trs)),
			),
		),
	)
}

func allocationCard(allocations []domain.AllocatedCost) gomponents.Node {
	rows := make([]gomponents.Node, 0, len(allocations))
	for _, a := range allocations {
		rows = append(rows, html.Tr(
			html.Td(gomponents.Text(a.QueryID)),
			html.Td(gomponents.Text(a.User)),
			html.Td(gomponents.Text(a.Warehouse)),
			html.Td(gomponents.Text(a.HourStart.Format("2006-01-02 15:04"))),
			html.Td(html.Class("num"), gomponents.Text(formatMS(a.ElapsedMS))),
			html.Td(html.Class("num"), gomponents.Text(formatCredits(a.EstimatedCredits))),
			html.Td(html.Class("sql"), html.Title(a.QueryText), gomponents.Text(truncate(a.QueryText, 120))),
		))
	}
	return gomponents.Group([]gomponents.Node{
		card("Estimated Query Cost (Credits)",
			html.P(html.Class("muted"), gomponents.Text(
				"Estimated by allocating each warehouse-hour's metered credits across its queries by elapsed-time share.")),
		),
		tableCard("Most Expensive Queries",
			[]string{"Query ID", "User", "Warehouse", "Hour", "Runtime", "Est. credits", "SQL"},
			rows, "No allocatable credits in the selected window."),
	})
}

func (h *Handler) RawHistory(w http.ResponseWriter, r *http.Request) {
	f := h.filterFromRequest(r)
	qf := f.QueryFilter(time.Now())
	options := h.warehouseOptions(r, f)

	records, err := h.Monitor.RawHistory(r.Context(), qf)
	if err != nil {
		h.renderServiceError(w, r, f, options, "Raw History", "history", err)
		return
	}

	rows := make([]gomponents.Node, 0, len(records))
	for _, rec := range records {
		rows = append(rows, html.Tr(
			rowShow(rec.QueryID+" "+rec.User+" "+rec.Warehouse+" "+rec.QueryTag),
			html.Td(gomponents.Text(rec.QueryID)),
			html.Td(gomponents.Text(rec.User)),
			html.Td(gomponents.Text(rec.Warehouse)),
			html.Td(statusLabel(rec.Status)),
			html.Td(gomponents.Text(formatTime(rec.StartTime))),
			html.Td(gomponents.Text(formatTime(rec.EndTime))),
			html.Td(html.Class("num"), gomponents.Text(formatMS(rec.ElapsedMS))),
			html.Td(html.Class("num"), gomponents.Text(formatBytes(rec.BytesScanned))),
			html.Td(html.Class("num"), gomponents.Text(strconv.FormatInt(rec.RowsProduced, 10))),
			html.Td(gomponents.Text(rec.QueryTag)),
		))
	}

	renderHTML(w, http.StatusOK, appPage(
		"Raw History", "history", f, options,
		quickFilterCard("Filter by query ID, user, warehouse, or tag"),
		tableCard(fmt.Sprintf("Newest %d Queries", len(records)),
			[]string{"Query ID", "User", "Warehouse", "Status", "Started", "Ended", "Runtime", "Scanned", "Rows", "Tag"},
			rows, "No queries in the selected window."),
	))
}

// renderServiceError maps the error taxonomy onto user-visible pages. No
// warehouse error crashes the process; the user re-triggers by adjusting
// filters or reloading.
func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, f filterState, options []string, title, active string, err error) {
	status := http.StatusInternalServerError
	message := "An unexpected error occurred while loading this view."

	var selection *domain.InvalidSelectionError
	var connection *domain.ConnectionError
	var execution *domain.QueryExecutionError
	switch {
	case errors.As(err, &selection):
		status = http.StatusBadRequest
		message = selection.Error()
	case errors.As(err, &connection):
		status = http.StatusBadGateway
		message = "Cannot reach the warehouse: " + connection.Error()
	case errors.As(err, &execution):
		status = http.StatusBadGateway
		message = "Query failed: " + execution.Error()
	}

	h.Logger.Error("view failed", "path", r.URL.Path, "error", err)
	renderHTML(w, status, appPage(title, active, f, options, noticeCard("error", message)))
}
