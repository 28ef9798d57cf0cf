package app

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/yourusername/yt-grab-go/internal/domain"
	"github.com/yourusername/yt-grab-go/pkg/logger"
)

// Notifier receives download outcomes. *infrastructure.NotificationService
// satisfies it.
type Notifier interface {
	NotifyDownloadCompleted(title string, format domain.Mode)
	NotifyDownloadFailed(url string, err error)
}

// historyStatsProvider is implemented by stores that can count records natively
type historyStatsProvider interface {
	Stats() (*domain.HistoryStats, error)
}

// BatchItem is the outcome of one URL in a batch
type BatchItem struct {
	URL    string                 `json:"url"`
	Result *domain.DownloadResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
	Err    error                  `json:"-"`
}

// DownloadManager coordinates metadata lookups, downloads, history and search
type DownloadManager struct {
	extractor domain.Extractor
	searcher  domain.Searcher
	history   domain.HistoryStore
	notifier  Notifier
	hub       *ProgressHub
	config    *domain.Config
	logger    *logger.LoggerAdapter
	cache     *expirable.LRU[string, *domain.MediaInfo]
	mu        sync.Mutex // one active download per process
}

// NewDownloadManager creates a new download manager. notifier, hub and
// searcher may be nil.
func NewDownloadManager(
	extractor domain.Extractor,
	searcher domain.Searcher,
	history domain.HistoryStore,
	notifier Notifier,
	hub *ProgressHub,
	config *domain.Config,
	log *logger.LoggerAdapter,
) *DownloadManager {
	if log == nil {
		log = logger.NewSingleLoggerAdapter(nil)
	}

	dm := &DownloadManager{
		extractor: extractor,
		searcher:  searcher,
		history:   history,
		notifier:  notifier,
		hub:       hub,
		config:    config,
		logger:    log,
	}

	if config.Extractor.MetadataCacheSize > 0 {
		dm.cache = expirable.NewLRU[string, *domain.MediaInfo](
			config.Extractor.MetadataCacheSize, nil, config.Extractor.MetadataCacheTTL)
	}

	return dm
}

// FetchMetadata returns video or playlist metadata, served from cache when fresh
func (dm *DownloadManager) FetchMetadata(ctx context.Context, rawURL string) (*domain.MediaInfo, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := domain.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	if dm.cache != nil {
		if info, ok := dm.cache.Get(rawURL); ok {
			dm.logger.General().Debug("Metadata cache hit", zap.String("url", rawURL))
			return info, nil
		}
	}

	info, err := dm.extractor.FetchMetadata(ctx, rawURL)
	if err != nil {
		dm.logger.LogError("metadata_failed", zap.String("url", rawURL), zap.Error(err))
		return nil, err
	}

	if dm.cache != nil {
		dm.cache.Add(rawURL, info)
	}
	return info, nil
}

// Download runs a download under a fresh job id
func (dm *DownloadManager) Download(ctx context.Context, req domain.DownloadRequest, onProgress domain.ProgressFunc) (*domain.DownloadResult, error) {
	return dm.DownloadJob(ctx, "", req, onProgress)
}

// DownloadJob downloads req, reporting progress to onProgress and to the
// progress hub under jobID, then appends the result to the history. Errors
// from the extractor are returned unchanged.
func (dm *DownloadManager) DownloadJob(ctx context.Context, jobID string, req domain.DownloadRequest, onProgress domain.ProgressFunc) (*domain.DownloadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if jobID == "" {
		jobID = uuid.New().String()
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.logger.LogDownloadEvent("download_started",
		zap.String("job_id", jobID),
		zap.String("url", req.URL),
		zap.String("mode", string(req.Mode)),
		zap.Int("height", req.Height),
		zap.Bool("playlist", req.Playlist))

	sink := func(event domain.ProgressEvent) {
		if onProgress != nil {
			onProgress(event)
		}
		if dm.hub != nil {
			dm.hub.Publish(NewJobProgress(jobID, req.URL, event))
		}
	}

	result, err := dm.extractor.Download(ctx, req, sink)
	if err != nil {
		dm.logger.LogDownloadEvent("download_failed",
			zap.String("job_id", jobID),
			zap.String("url", req.URL),
			zap.Error(err))
		if dm.notifier != nil {
			dm.notifier.NotifyDownloadFailed(req.URL, err)
		}
		return nil, err
	}

	if err := dm.history.Append(*result); err != nil {
		dm.logger.LogError("history_append_failed",
			zap.String("job_id", jobID),
			zap.String("title", result.Title),
			zap.Error(err))
		return nil, fmt.Errorf("downloaded %q but failed to record history: %w", result.Title, err)
	}

	dm.logger.LogDownloadEvent("download_completed",
		zap.String("job_id", jobID),
		zap.String("url", req.URL),
		zap.String("title", result.Title),
		zap.String("format", string(result.Format)))

	if dm.notifier != nil {
		dm.notifier.NotifyDownloadCompleted(result.Title, result.Format)
	}

	return result, nil
}

// DownloadBatch downloads each URL in order with a shared mode and height.
// Blank entries are skipped and a failure does not stop the batch.
func (dm *DownloadManager) DownloadBatch(ctx context.Context, urls []string, mode domain.Mode, height int, onProgress func(url string, event domain.ProgressEvent)) []BatchItem {
	items := []BatchItem{}

	for _, rawURL := range urls {
		rawURL = strings.TrimSpace(rawURL)
		if rawURL == "" {
			continue
		}

		item := BatchItem{URL: rawURL}
		req := domain.DownloadRequest{URL: rawURL, Mode: mode, Height: height}

		var sink domain.ProgressFunc
		if onProgress != nil {
			url := rawURL
			sink = func(event domain.ProgressEvent) { onProgress(url, event) }
		}

		result, err := dm.Download(ctx, req, sink)
		if err != nil {
			item.Err = err
			item.Error = err.Error()
		} else {
			item.Result = result
		}
		items = append(items, item)
	}

	dm.logger.LogDownloadEvent("batch_completed",
		zap.Int("total", len(items)),
		zap.Int("failed", countFailed(items)))

	return items
}

// SplitBatchText splits newline-separated batch input into URLs
func SplitBatchText(text string) []string {
	var urls []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}

// Search queries the searcher; maxResults <= 0 uses the configured default
func (dm *DownloadManager) Search(ctx context.Context, query string, maxResults int64) ([]domain.SearchResult, error) {
	if dm.searcher == nil {
		return nil, &domain.SearchError{Query: query, Reason: domain.SearchReasonAuth, Message: "search is not configured"}
	}
	if maxResults <= 0 {
		maxResults = dm.config.Search.MaxResults
	}

	results, err := dm.searcher.Search(ctx, query, maxResults)
	if err != nil {
		dm.logger.LogError("search_failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	return results, nil
}

// History returns every recorded download, oldest first
func (dm *DownloadManager) History() ([]domain.DownloadResult, error) {
	return dm.history.ListAll()
}

// HistoryStats counts recorded downloads by format
func (dm *DownloadManager) HistoryStats() (*domain.HistoryStats, error) {
	if provider, ok := dm.history.(historyStatsProvider); ok {
		return provider.Stats()
	}

	records, err := dm.history.ListAll()
	if err != nil {
		return nil, err
	}

	stats := &domain.HistoryStats{Total: int64(len(records))}
	for _, r := range records {
		switch r.Format {
		case domain.ModeVideo:
			stats.Video++
		case domain.ModeAudio:
			stats.Audio++
		}
	}
	return stats, nil
}

// SearchEnabled reports whether a searcher and API key are configured
func (dm *DownloadManager) SearchEnabled() bool {
	return dm.searcher != nil && dm.config.Search.APIKey != ""
}

// DownloadsDir returns where media files are written
func (dm *DownloadManager) DownloadsDir() string {
	return dm.config.Download.DownloadsDir()
}

func countFailed(items []BatchItem) int {
	n := 0
	for _, item := range items {
		if item.Err != nil {
			n++
		}
	}
	return n
}
