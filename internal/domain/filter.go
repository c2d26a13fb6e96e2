package domain

import "time"

// AllWarehouses is the sentinel selector that matches every warehouse.
const AllWarehouses = "ALL"

// QueryFilter carries the sidebar filter state. Rebuilt on every UI
// interaction; a zero User or QueryTag means "no predicate".
type QueryFilter struct {
	Start      time.Time
	End        time.Time
	Warehouses []string // single name, set of names, or [AllWarehouses]
	User       string
	QueryTag   string
}

// Validate checks the filter invariants: the time window must be ordered
// and a warehouse selection must be present.
func (f QueryFilter) Validate() error {
	if f.Start.IsZero() || f.End.IsZero() {
		return ErrInvalidSelection("time window start and end are required")
	}
	if f.End.Before(f.Start) {
		return ErrInvalidSelection("time window start %s is after end %s",
			f.Start.Format(time.RFC3339), f.End.Format(time.RFC3339))
	}
	if len(f.Warehouses) == 0 {
		return ErrInvalidSelection("at least one warehouse (or ALL) must be selected")
	}
	return nil
}

// AllSelected reports whether the filter matches every warehouse, either via
// the ALL sentinel or an empty selection.
func (f QueryFilter) AllSelected() bool {
	for _, w := range f.Warehouses {
		if w == AllWarehouses {
			return true
		}
	}
	return len(f.Warehouses) == 0
}

// SingleWarehouse returns the selected warehouse name when exactly one
// concrete warehouse (not ALL) is selected.
func (f QueryFilter) SingleWarehouse() (string, bool) {
	if f.AllSelected() || len(f.Warehouses) != 1 {
		return "", false
	}
	return f.Warehouses[0], true
}
