package search

import "time"

// Entry is one retrievable document returned by the index. Entries are never
// mutated after a search; filtering produces new slices.
type Entry struct {
	URL         string     `json:"url"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsInternal  bool       `json:"isInternal"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	SafetyScore *float64   `json:"safetyScore,omitempty"`
}

// RelevantTime returns the timestamp date filters compare against: the update
// time for internal content, the creation time otherwise.
func (e Entry) RelevantTime() *time.Time {
	if e.IsInternal {
		return e.UpdatedAt
	}
	return e.CreatedAt
}

// Safety returns the safety score, treating a missing score as fully safe.
func (e Entry) Safety() float64 {
	if e.SafetyScore == nil {
		return 1.0
	}
	return *e.SafetyScore
}

// IndexResult is what an index backend reports for one query.
type IndexResult struct {
	Entries     []Entry
	Found       int
	TimeTakenMs int64
}

// Response is the result of a search action.
type Response struct {
	SearchID    string  `json:"searchId"`
	Query       string  `json:"query"`
	Entries     []Entry `json:"entries"`
	Found       int     `json:"found"`
	TimeTakenMs int64   `json:"timeTakenMs"`
}

// Suggestion is a query completion offered while the user types.
type Suggestion struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
