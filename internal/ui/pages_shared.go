package ui

import (
	"fmt"
	"strconv"
	"time"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"

	"snowmon/internal/domain"
)

type navItem struct {
	Label string
	Href  string
	Key   string
}

var navItems = []navItem{
	{Label: "Overview", Href: "/", Key: "overview"},
	{Label: "Live Queries", Href: "/live", Key: "live"},
	{Label: "Cost Monitor", Href: "/cost", Key: "cost"},
	{Label: "Raw History", Href: "/history", Key: "history"},
}

// appPage is the shared shell: sidebar with nav and the filter form, topbar,
// and content area.
func appPage(title, active string, f filterState, warehouseOptions []string, body ...Node) Node {
	nav := make([]Node, 0, len(navItems))
	query := f.Encode()
	for _, item := range navItems {
		className := "app-nav-link"
		if item.Key == active {
			className += " active"
		}
		nav = append(nav, A(Href(item.Href+"?"+query), Class(className), Text(item.Label)))
	}

	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title+" | Snowflake Query Monitor")),
			Link(Rel("icon"), Href("data:,")),
			Link(Rel("preconnect"), Href("https://fonts.googleapis.com")),
			Link(Rel("stylesheet"), Href("https://fonts.googleapis.com/css2?family=Inter:wght@400;500;600;700&display=swap")),
			Link(Rel("stylesheet"), Href("/static/app.css")),
			Script(
				Type("module"),
				Src("https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.7/bundles/datastar.js"),
			),
		),
		Body(
			Main(Class("app-shell"),
				Aside(
					Class("app-sidebar"),
					Div(
						Class("brand"),
						Strong(Text("Query Monitor")),
						P(Class("muted"), Text("Warehouse usage and cost")),
					),
					Nav(Class("app-nav"), Group(nav)),
					filterForm(f, warehouseOptions, active),
				),
				Section(
					Class("app-main"),
					H1(Class("page-title"), Text(title)),
					P(Class("page-caption"), Text(windowCaption(f))),
					Group(body),
				),
			),
		),
	)
}

// filterForm renders the sidebar controls. Plain GET form; submitting
// re-runs the current view with the new filter.
func filterForm(f filterState, warehouseOptions []string, active string) Node {
	presetOptions := make([]Node, 0, len(presets))
	for _, p := range presets {
		opt := Option(Value(p), Text(p))
		if p == f.Preset {
			opt = Option(Value(p), Text(p), Selected())
		}
		presetOptions = append(presetOptions, opt)
	}

	whOptions := make([]Node, 0, len(warehouseOptions))
	for _, wh := range warehouseOptions {
		opt := Option(Value(wh), Text(wh))
		if contains(f.Warehouses, wh) {
			opt = Option(Value(wh), Text(wh), Selected())
		}
		whOptions = append(whOptions, opt)
	}

	fbOptions := make([]Node, 0, 4)
	for _, m := range []int{15, 30, 60, 120} {
		v := strconv.Itoa(m)
		opt := Option(Value(v), Text(v+" min"))
		if m == f.FallbackMinutes {
			opt = Option(Value(v), Text(v+" min"), Selected())
		}
		fbOptions = append(fbOptions, opt)
	}

	action := "/"
	for _, item := range navItems {
		if item.Key == active {
			action = item.Href
		}
	}

	return Form(
		Method("get"),
		Action(action),
		Class("filter-form"),
		Div(
			Label(For("preset"), Text("Time window")),
			Select(ID("preset"), Name("preset"), Group(presetOptions)),
			P(Class("muted"), Text("Account usage can lag by 45-90 minutes.")),
		),
		Div(
			Label(For("start"), Text("Custom start")),
			Input(ID("start"), Type("date"), Name("start"), Value(f.StartDate)),
		),
		Div(
			Label(For("end"), Text("Custom end")),
			Input(ID("end"), Type("date"), Name("end"), Value(f.EndDate)),
		),
		Div(
			Label(For("wh"), Text("Warehouses")),
			Select(ID("wh"), Name("wh"), Multiple(), Group(whOptions)),
			P(Class("muted"), Text("Live view needs a single warehouse.")),
		),
		Div(
			Label(For("user"), Text("User (optional)")),
			Input(ID("user"), Type("text"), Name("user"), Value(f.User)),
		),
		Div(
			Label(For("tag"), Text("Query tag (optional)")),
			Input(ID("tag"), Type("text"), Name("tag"), Value(f.QueryTag)),
		),
		Div(
			Label(For("fb"), Text("Running fallback window")),
			Select(ID("fb"), Name("fb"), Group(fbOptions)),
		),
		Button(Type("submit"), Class("btn btn-primary"), Text("Apply filters")),
	)
}

func windowCaption(f filterState) string {
	start, end := f.Window(time.Now())
	return fmt.Sprintf("Window %s to %s", start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
}

func card(title string, body ...Node) Node {
	children := []Node{Class("card")}
	if title != "" {
		children = append(children, H2(Text(title)))
	}
	children = append(children, body...)
	return Div(children...)
}

func tableCard(title string, headers []string, rows []Node, emptyMessage string) Node {
	if len(rows) == 0 {
		return card(title, Div(Class("blankslate"), P(Text(emptyMessage))))
	}
	ths := make([]Node, 0, len(headers))
	for _, hd := range headers {
		ths = append(ths, Th(Text(hd)))
	}
	return Div(
		Class("card table-wrap"),
		H2(Text(title)),
		Table(
			THead(Tr(Group(ths))),
			TBody(Group(rows)),
		),
	)
}

// barChart renders a horizontal CSS bar per entry, scaled to the maximum
// value.
func barChart(entries []barEntry) Node {
	var max float64
	for _, e := range entries {
		if e.Value > max {
			max = e.Value
		}
	}
	rows := make([]Node, 0, len(entries))
	for _, e := range entries {
		width := 0.0
		if max > 0 {
			width = e.Value / max * 100
		}
		rows = append(rows, Div(
			Class("bar-row"),
			Span(Class("bar-label"), Title(e.Label), Text(e.Label)),
			Div(Class("bar-track"), Div(Class("bar-fill"), StyleAttr(fmt.Sprintf("width: %.1f%%", width)))),
			Span(Class("bar-value"), Text(e.Display)),
		))
	}
	return Div(Group(rows))
}

type barEntry struct {
	Label   string
	Value   float64
	Display string
}

func statusLabel(s domain.QueryStatus) Node {
	tone := "accent"
	switch s {
	case domain.StatusSuccess:
		tone = "ok"
	case domain.StatusFailed:
		tone = "danger"
	case domain.StatusCanceled:
		tone = "warn"
	}
	return Span(Class("label label-"+tone), Text(string(s)))
}

func noticeCard(tone, message string) Node {
	return Div(Class("card notice notice-"+tone), P(Text(message)))
}

// quickFilterCard gives a table a client-side quick filter via a datastar
// signal; table rows opt in with rowShow.
func quickFilterCard(placeholder string) Node {
	return Div(
		Class("card"),
		data.Signals(map[string]any{"q": ""}),
		Label(Text("Quick filter")),
		Input(Type("search"), Placeholder(placeholder), data.Bind("q"), AutoComplete("off")),
	)
}

func rowShow(value string) Node {
	return data.Show("$q === '' || " + strconv.Quote(value) + ".toLowerCase().includes($q.toLowerCase())")
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format("2006-01-02 15:04:05")
}

func formatMS(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Truncate(time.Millisecond).String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatCredits(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatCreditsPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatCredits(*v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
