package history

// SearchEntry is one aggregated search in the history listing.
type SearchEntry struct {
	ID          int64             `json:"id"`
	SearchID    string            `json:"searchId"`
	Query       string            `json:"query"`
	Kind        string            `json:"kind"`
	Indexers    []string          `json:"indexers,omitempty"`
	ResultCount int               `json:"resultCount"`
	DurationMS  int64             `json:"durationMs"`
	Errors      map[string]string `json:"errors,omitempty"`
	CreatedAt   string            `json:"createdAt"`
}

// GrabEntry is one download resolution in the history listing.
type GrabEntry struct {
	ID          int64  `json:"id"`
	IndexerID   string `json:"indexerId"`
	SourceURL   string `json:"sourceUrl,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"durationMs"`
	CreatedAt   string `json:"createdAt"`
}

// ListOptions contains options for listing history.
type ListOptions struct {
	Page     int
	PageSize int
}

// SearchesResponse contains paginated search history.
type SearchesResponse struct {
	Items      []*SearchEntry `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalCount int64          `json:"totalCount"`
	TotalPages int            `json:"totalPages"`
}

// GrabsResponse contains paginated grab history.
type GrabsResponse struct {
	Items      []*GrabEntry `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalCount int64        `json:"totalCount"`
	TotalPages int          `json:"totalPages"`
}
