package filter

import (
	"sync"
	"time"
)

// Store owns the four filter records of one search session. All mutation
// goes through its methods.
type Store struct {
	mu      sync.Mutex
	records map[Variant]*Record
}

// NewStore creates a store with every record at its defaults.
func NewStore() *Store {
	s := &Store{records: make(map[Variant]*Record, len(Variants))}
	for _, v := range Variants {
		rec := NewRecord(v)
		s.records[v] = &rec
	}
	return s
}

// UpdateFilter sets one facet of a variant's record. Values are not checked
// against the catalog; a value no entry can match simply filters nothing in.
func (s *Store) UpdateFilter(v Variant, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[v]
	if !ok {
		return ErrUnknownVariant
	}
	rec.set(key, value)
	return nil
}

// SetCustomRange switches a variant's time range to explicit bounds.
func (s *Store) SetCustomRange(v Variant, from, to time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[v]
	if !ok {
		return ErrUnknownVariant
	}
	rec.setCustom(from, to)
	return nil
}

// ClearAllFilters resets the generic record. Variant records keep their
// values.
func (s *Store) ClearAllFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := NewRecord(VariantAll)
	s.records[VariantAll] = &rec
}

// RemoveFilter resets one generic facet to its default. Only the time range
// and safe search facets are removable; other keys are ignored.
func (s *Store) RemoveFilter(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key != KeyTimeRange && key != KeySafeSearch {
		return
	}
	rec := s.records[VariantAll]
	rec.set(key, Defaults(VariantAll)[key])
	if key == KeyTimeRange {
		rec.Custom = nil
	}
}

// HasActiveFilters reports whether the generic time range or safe search
// differs from its default.
func (s *Store) HasActiveFilters() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := Defaults(VariantAll)
	rec := s.records[VariantAll]
	return rec.TimeRange() != defaults[KeyTimeRange] || rec.SafeSearch() != defaults[KeySafeSearch]
}

// Filters returns a copy of a variant's record.
func (s *Store) Filters(v Variant) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[v]
	if !ok {
		return Record{}, ErrUnknownVariant
	}
	return rec.Clone(), nil
}

// Generic returns a copy of the generic record.
func (s *Store) Generic() Record {
	rec, _ := s.Filters(VariantAll)
	return rec
}
