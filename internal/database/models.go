package database

import "time"

// IndexerSettings is the persisted per-indexer configuration override.
// Rows exist only for indexers the user has touched; absent rows mean
// the file configuration applies unchanged.
type IndexerSettings struct {
	IndexerID string
	Enabled   bool
	Domain    string
	UpdatedAt time.Time
}

// IndexerStatus is the persisted health snapshot for one indexer.
type IndexerStatus struct {
	IndexerID    string
	Status       string
	FailureCount int
	LastError    string
	LastCheck    *time.Time
	LastSuccess  *time.Time
}

// SearchRecord is one row of search history.
type SearchRecord struct {
	ID          int64
	SearchID    string
	Query       string
	Kind        string
	Indexers    string
	ResultCount int
	DurationMS  int64
	Errors      string
	CreatedAt   time.Time
}

// GrabRecord is one row of grab history.
type GrabRecord struct {
	ID          int64
	IndexerID   string
	SourceURL   string
	DownloadURL string
	Success     bool
	Error       string
	DurationMS  int64
	CreatedAt   time.Time
}
