package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks user input that was rejected before any external call
var ErrInvalidRequest = errors.New("invalid request")

// ExtractionError is returned when yt-dlp fails to fetch metadata, download,
// or post-process media
type ExtractionError struct {
	Op      string // "metadata" or "download"
	URL     string
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.URL, msg)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// SearchReason classifies a search failure
type SearchReason string

const (
	SearchReasonInvalid SearchReason = "invalid"
	SearchReasonAuth    SearchReason = "auth"
	SearchReasonQuota   SearchReason = "quota"
	SearchReasonNetwork SearchReason = "network"
	SearchReasonAPI     SearchReason = "api"
)

// SearchError is returned when the search API call fails
type SearchError struct {
	Query   string
	Reason  SearchReason
	Message string
	Err     error
}

func (e *SearchError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("search %q failed (%s): %s", e.Query, e.Reason, msg)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// CorruptHistoryError is returned when the persisted history cannot be decoded
type CorruptHistoryError struct {
	Path string
	Err  error
}

func (e *CorruptHistoryError) Error() string {
	return fmt.Sprintf("corrupt download history %s: %v", e.Path, e.Err)
}

func (e *CorruptHistoryError) Unwrap() error {
	return e.Err
}
