package domain

import "context"

// Extractor wraps the external media-extraction capability
type Extractor interface {
	// FetchMetadata queries a URL without downloading anything
	FetchMetadata(ctx context.Context, url string) (*MediaInfo, error)

	// Download retrieves the media described by req, calling onProgress
	// synchronously while bytes are transferred and once more with a
	// finished event before returning
	Download(ctx context.Context, req DownloadRequest, onProgress ProgressFunc) (*DownloadResult, error)
}

// Searcher wraps the external video search capability
type Searcher interface {
	// Search returns up to maxResults videos matching query, in API order
	Search(ctx context.Context, query string, maxResults int64) ([]SearchResult, error)
}

// HistoryStore is an append-only log of completed downloads. There is no
// update or delete.
type HistoryStore interface {
	// Append adds a result to the end of the log
	Append(result DownloadResult) error

	// ListAll returns every result, oldest first
	ListAll() ([]DownloadResult, error)
}
