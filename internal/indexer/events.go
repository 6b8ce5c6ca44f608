package indexer

// WebSocket event types for indexer operations.
const (
	EventSearchStarted   = "search:started"
	EventSearchCompleted = "search:completed"
	EventGrabStarted     = "grab:started"
	EventGrabCompleted   = "grab:completed"
	EventIndexerStatus   = "indexer:status"
)

// SearchStartedPayload is sent when a search begins.
type SearchStartedPayload struct {
	SearchID string   `json:"searchId"`
	Query    string   `json:"query,omitempty"`
	Type     string   `json:"type"`
	Indexers []string `json:"indexers,omitempty"`
}

// SearchCompletedPayload is sent when a search finishes.
type SearchCompletedPayload struct {
	SearchID     string   `json:"searchId"`
	Query        string   `json:"query,omitempty"`
	Type         string   `json:"type"`
	TotalResults int      `json:"totalResults"`
	IndexersUsed int      `json:"indexersUsed"`
	Errors       []string `json:"errors,omitempty"`
	ElapsedMs    int64    `json:"elapsedMs"`
}

// GrabStartedPayload is sent when a download resolution begins.
type GrabStartedPayload struct {
	IndexerID string `json:"indexerId"`
	ContentID string `json:"contentId,omitempty"`
	DetailURL string `json:"detailUrl,omitempty"`
}

// GrabCompletedPayload is sent when a download resolution finishes.
type GrabCompletedPayload struct {
	IndexerID string `json:"indexerId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// IndexerStatusPayload is sent when indexer health changes.
type IndexerStatusPayload struct {
	IndexerID   string `json:"indexerId"`
	IndexerName string `json:"indexerName"`
	Healthy     bool   `json:"healthy"`
	Message     string `json:"message,omitempty"`
}
