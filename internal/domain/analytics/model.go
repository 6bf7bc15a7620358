package analytics

import "time"

// DeviceContext describes the client that issued a search.
type DeviceContext struct {
	DeviceType     string `json:"device_type"`
	BrowserName    string `json:"browser_name"`
	BrowserVersion string `json:"browser_version"`
	OSName         string `json:"os_name"`
	Location       string `json:"location"`
}

// RankedResult is one rendered result and its 1-based position.
type RankedResult struct {
	Position int    `json:"position"`
	URL      string `json:"url"`
}

// Interaction records one search as the user saw it.
type Interaction struct {
	SearchID  string         `json:"search_id"`
	Query     string         `json:"query"`
	ViewerID  *string        `json:"viewer_id,omitempty"`
	Results   []RankedResult `json:"results"`
	Device    DeviceContext  `json:"device"`
	CreatedAt time.Time      `json:"created_at"`
}
