package filter

import (
	"sync"
	"time"

	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/samber/lo"
)

// Apply derives the entries that satisfy a record's date and safety
// predicates. Entries lacking the relevant timestamp pass the date predicate;
// entries lacking a safety score count as fully safe. Order is preserved and
// the input is never modified.
func Apply(entries []search.Entry, rec Record, now time.Time) []search.Entry {
	out := entries

	if rec.TimeRange() != TimeAny {
		threshold := DateThreshold(rec.TimeRange(), rec.Custom, now)
		if threshold.Bounded() {
			from, to := *threshold.From, *threshold.To
			out = lo.Filter(out, func(e search.Entry, _ int) bool {
				ts := e.RelevantTime()
				if ts == nil {
					return true
				}
				return ts.After(from) && ts.Before(to)
			})
		}
	}

	if cutoff := SafetyThreshold(rec.SafeSearch()); cutoff > 0 {
		out = lo.Filter(out, func(e search.Entry, _ int) bool {
			return e.Safety() >= cutoff
		})
	}

	if sameSlice(out, entries) {
		out = append([]search.Entry(nil), entries...)
	}
	return out
}

// View memoizes Apply on the identity of the source slice and the record's
// values, recomputing only when either changes.
type View struct {
	mu       sync.Mutex
	now      func() time.Time
	source   []search.Entry
	key      string
	derived  []search.Entry
	computed bool
	computes int
}

// NewView creates a view. A nil clock uses time.Now.
func NewView(now func() time.Time) *View {
	if now == nil {
		now = time.Now
	}
	return &View{now: now}
}

// Derive returns the filtered entries, reusing the previous result when the
// inputs are unchanged.
func (v *View) Derive(entries []search.Entry, rec Record) []search.Entry {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := rec.Key()
	if v.computed && key == v.key && sameSlice(entries, v.source) {
		return v.derived
	}

	v.derived = Apply(entries, rec, v.now())
	v.source = entries
	v.key = key
	v.computed = true
	v.computes++
	return v.derived
}

// Computations reports how many times the view recomputed.
func (v *View) Computations() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.computes
}

func sameSlice(a, b []search.Entry) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}
