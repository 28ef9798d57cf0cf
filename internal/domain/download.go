package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Mode is the kind of media a download produces
type Mode string

const (
	ModeVideo Mode = "video" // best video + best audio, merged to MP4
	ModeAudio Mode = "audio" // best audio, transcoded to MP3
)

// ValidateMode checks if a download mode is valid
func ValidateMode(mode Mode) bool {
	return mode == ModeVideo || mode == ModeAudio
}

// DownloadRequest describes a single user-issued download. It is never mutated
// after construction.
type DownloadRequest struct {
	URL      string `json:"url"`
	Mode     Mode   `json:"mode"`
	Height   int    `json:"height,omitempty"` // 0 = no resolution requested
	Playlist bool   `json:"playlist"`
}

// NewDownloadRequest builds and validates a download request. resolution is a
// label such as "720" or "720p" and may be empty.
func NewDownloadRequest(rawURL string, mode Mode, resolution string, playlist bool) (DownloadRequest, error) {
	if mode == "" {
		mode = ModeVideo
	}
	height, err := ParseResolution(resolution)
	if err != nil {
		return DownloadRequest{}, err
	}
	req := DownloadRequest{
		URL:      strings.TrimSpace(rawURL),
		Mode:     mode,
		Height:   height,
		Playlist: playlist,
	}
	if err := req.Validate(); err != nil {
		return DownloadRequest{}, err
	}
	return req, nil
}

// Validate checks the request before it is handed to an extractor
func (r DownloadRequest) Validate() error {
	if err := ValidateURL(r.URL); err != nil {
		return err
	}
	if !ValidateMode(r.Mode) {
		return fmt.Errorf("%w: invalid mode %q", ErrInvalidRequest, r.Mode)
	}
	if r.Height < 0 {
		return fmt.Errorf("%w: invalid resolution %d", ErrInvalidRequest, r.Height)
	}
	return nil
}

// ValidateURL checks that a source URL is an absolute http(s) URL
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: invalid url %q", ErrInvalidRequest, rawURL)
	}
	return nil
}

// ParseResolution parses a resolution label ("720", "720p", "1080P") into a
// frame height. An empty label yields 0.
func ParseResolution(label string) (int, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, nil
	}
	label = strings.TrimSuffix(strings.TrimSuffix(label, "p"), "P")
	height, err := strconv.Atoi(label)
	if err != nil || height <= 0 {
		return 0, fmt.Errorf("%w: invalid resolution %q", ErrInvalidRequest, label)
	}
	return height, nil
}

// DownloadResult is one completed download. It is the persisted history record
// and keeps the exact field names of the history file.
type DownloadResult struct {
	Title  string    `json:"title"`
	URL    string    `json:"url"`
	Format Mode      `json:"format"`
	Time   Timestamp `json:"time"`
}

// Completion times are written as ISO-8601 local time without a zone
// designator. Microseconds are always six digits and are omitted entirely
// for whole seconds.
const (
	TimestampLayout       = "2006-01-02T15:04:05.000000"
	TimestampSecondLayout = "2006-01-02T15:04:05"
)

var timestampParseLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a completion time with the history file's text encoding
type Timestamp struct {
	time.Time
}

// NewTimestamp strips the monotonic reading and sub-microsecond precision so
// that a value survives a write/read cycle unchanged.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Round(0).Truncate(time.Microsecond)}
}

// ParseTimestamp accepts RFC 3339 times as well as zone-less ISO-8601 times,
// which are interpreted in local time.
func ParseTimestamp(s string) (Timestamp, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewTimestamp(t), nil
	}
	for _, layout := range timestampParseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}

// String formats the timestamp like the history file does
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	local := t.Time.In(time.Local)
	if local.Nanosecond() == 0 {
		return local.Format(TimestampSecondLayout)
	}
	return local.Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Phase is the stage of a running download
type Phase string

const (
	PhaseDownloading Phase = "downloading"
	PhaseFinished    Phase = "finished"
)

// ProgressEvent is a transient progress report of one download
type ProgressEvent struct {
	Phase           Phase `json:"phase"`
	DownloadedBytes int64 `json:"downloaded_bytes"`
	TotalBytes      int64 `json:"total_bytes,omitempty"` // 0 = unknown
}

// Percent returns the completed percentage when the total size is known
func (e ProgressEvent) Percent() (int, bool) {
	if e.Phase == PhaseFinished {
		return 100, true
	}
	if e.TotalBytes <= 0 {
		return 0, false
	}
	p := int(e.DownloadedBytes * 100 / e.TotalBytes)
	if p > 100 {
		p = 100
	}
	return p, true
}

// ProgressFunc receives progress events synchronously from inside a download
type ProgressFunc func(event ProgressEvent)

// VideoInfo describes a single video
type VideoInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"` // seconds
	ViewCount   int64   `json:"view_count"`
	Resolutions []int   `json:"resolutions"` // available heights, highest first
}

// PlaylistEntry is one flat playlist item
type PlaylistEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// PlaylistInfo describes a playlist
type PlaylistInfo struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Entries []PlaylistEntry `json:"entries"`
}

// MediaInfo is the result of a metadata lookup; exactly one field is set
type MediaInfo struct {
	Video    *VideoInfo    `json:"video,omitempty"`
	Playlist *PlaylistInfo `json:"playlist,omitempty"`
}

// IsPlaylist reports whether the URL resolved to a playlist
func (m *MediaInfo) IsPlaylist() bool {
	return m.Playlist != nil
}

// Title returns the video or playlist title
func (m *MediaInfo) Title() string {
	if m.Playlist != nil {
		return m.Playlist.Title
	}
	if m.Video != nil {
		return m.Video.Title
	}
	return ""
}

// SearchResult is one video returned by a search
type SearchResult struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
}

// WatchURL returns the YouTube watch page for the result
func (r SearchResult) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + r.VideoID
}

// HistoryStats summarizes the download history
type HistoryStats struct {
	Total int64 `json:"total"`
	Video int64 `json:"video"`
	Audio int64 `json:"audio"`
}
