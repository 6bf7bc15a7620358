package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateRange is an explicit pair of custom date bounds.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r *DateRange) complete() bool {
	return r != nil && !r.From.IsZero() && !r.To.IsZero()
}

// Record is the facet state of one variant.
type Record struct {
	Variant Variant           `json:"variant"`
	Facets  map[string]string `json:"facets"`
	Custom  *DateRange        `json:"custom,omitempty"`
}

// NewRecord returns a record holding the variant's defaults.
func NewRecord(v Variant) Record {
	return Record{Variant: v, Facets: Defaults(v)}
}

// Get returns a facet value, or "" when unset.
func (r Record) Get(key string) string {
	return r.Facets[key]
}

// TimeRange returns the time range token.
func (r Record) TimeRange() string {
	return r.Facets[KeyTimeRange]
}

// SafeSearch returns the safe search level.
func (r Record) SafeSearch() string {
	return r.Facets[KeySafeSearch]
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := Record{Variant: r.Variant, Facets: make(map[string]string, len(r.Facets))}
	for k, v := range r.Facets {
		out.Facets[k] = v
	}
	if r.Custom != nil {
		custom := *r.Custom
		out.Custom = &custom
	}
	return out
}

// set assigns a facet. A named time range drops any custom bounds so the
// record never carries two time range representations.
func (r *Record) set(key, value string) {
	if r.Facets == nil {
		r.Facets = map[string]string{}
	}
	r.Facets[key] = value
	if key == KeyTimeRange && value != TimeCustom {
		r.Custom = nil
	}
}

func (r *Record) setCustom(from, to time.Time) {
	r.set(KeyTimeRange, TimeCustom)
	r.Custom = &DateRange{From: from, To: to}
}

// Key is a canonical encoding of the record's values, used to memoize
// derived views.
func (r Record) Key() string {
	keys := make([]string, 0, len(r.Facets))
	for k := range r.Facets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(r.Variant))
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Facets[k])
	}
	if r.Custom != nil {
		b.WriteString("|custom=")
		b.WriteString(r.Custom.From.UTC().Format(time.RFC3339Nano))
		b.WriteByte('/')
		b.WriteString(r.Custom.To.UTC().Format(time.RFC3339Nano))
	}
	return b.String()
}

// ParseBound parses a custom range bound given as an RFC 3339 instant or a
// plain date.
func ParseBound(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
