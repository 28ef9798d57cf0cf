package infrastructure

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/yourusername/yt-grab-go/internal/domain"
)

// Bounds accepted by search.list maxResults
const (
	MinSearchResults int64 = 1
	MaxSearchResults int64 = 50
)

// YouTubeSearcher implements domain.Searcher with the YouTube Data API v3
type YouTubeSearcher struct {
	config *domain.SearchConfig
}

// NewYouTubeSearcher creates a new searcher. The API key is read from config
// on every call, so a missing key surfaces as an auth error per search.
func NewYouTubeSearcher(config *domain.SearchConfig) *YouTubeSearcher {
	return &YouTubeSearcher{config: config}
}

// Search returns up to maxResults videos matching query, in API order
func (s *YouTubeSearcher) Search(ctx context.Context, query string, maxResults int64) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &domain.SearchError{Query: query, Reason: domain.SearchReasonInvalid, Message: "query is empty"}
	}
	if s.config.APIKey == "" {
		return nil, &domain.SearchError{Query: query, Reason: domain.SearchReasonAuth, Message: "no YouTube API key configured"}
	}

	opts := []option.ClientOption{option.WithAPIKey(s.config.APIKey)}
	if s.config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.config.Endpoint))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, &domain.SearchError{Query: query, Reason: domain.SearchReasonAPI, Message: "failed to create YouTube client", Err: err}
	}

	resp, err := service.Search.List([]string{"snippet"}).
		Q(query).
		MaxResults(ClampMaxResults(maxResults)).
		Type("video").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifySearchError(query, err)
	}

	results := make([]domain.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		var videoID, title string
		if item.Id != nil {
			videoID = item.Id.VideoId
		}
		if item.Snippet != nil {
			title = item.Snippet.Title
		}
		results = append(results, domain.SearchResult{VideoID: videoID, Title: title})
	}
	return results, nil
}

// ClampMaxResults limits n to the range the API accepts
func ClampMaxResults(n int64) int64 {
	if n < MinSearchResults {
		return MinSearchResults
	}
	if n > MaxSearchResults {
		return MaxSearchResults
	}
	return n
}

func classifySearchError(query string, err error) *domain.SearchError {
	searchErr := &domain.SearchError{Query: query, Reason: domain.SearchReasonAPI, Err: err}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		searchErr.Message = apiErr.Message
		if searchErr.Message == "" {
			searchErr.Message = apiErr.Error()
		}

		for _, item := range apiErr.Errors {
			switch item.Reason {
			case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded":
				searchErr.Reason = domain.SearchReasonQuota
				return searchErr
			case "keyInvalid", "keyExpired", "forbidden":
				searchErr.Reason = domain.SearchReasonAuth
				return searchErr
			}
		}

		switch apiErr.Code {
		case 400, 401, 403:
			searchErr.Reason = domain.SearchReasonAuth
		case 429:
			searchErr.Reason = domain.SearchReasonQuota
		}
		return searchErr
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		searchErr.Reason = domain.SearchReasonNetwork
		searchErr.Message = "YouTube API unreachable"
		return searchErr
	}

	searchErr.Message = err.Error()
	return searchErr
}
