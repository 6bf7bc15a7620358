package analytics

// ListOptions provides filtering options for listing interactions.
type ListOptions struct {
	ViewerID *string
	Query    string
	Limit    int
	Offset   int
}
