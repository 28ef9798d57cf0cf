package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alessio/shellescape"

	"github.com/yourusername/yt-grab-go/internal/domain"
	"github.com/yourusername/yt-grab-go/pkg/logger"
)

// Line prefixes produced by the --progress-template and --print directives
const (
	progressPrefix      = "[progress]"
	titlePrefix         = "[title]"
	playlistTitlePrefix = "[playlist]"
)

const progressTemplate = "download:" + progressPrefix +
	"%(progress.status)s|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|%(progress.total_bytes_estimate)s"

const watchURLPrefix = "https://www.youtube.com/watch?v="

// YTDLPExtractor implements domain.Extractor on top of the yt-dlp executable
type YTDLPExtractor struct {
	config       *domain.ExtractorConfig
	downloadsDir string
	logReader    *logger.LogReader
	logsDir      string
}

// NewYTDLPExtractor creates a new yt-dlp extractor. Raw yt-dlp output is
// appended to the daily ytdlp log in logsDir; an empty logsDir discards it.
func NewYTDLPExtractor(config *domain.ExtractorConfig, downloadsDir, logsDir string) *YTDLPExtractor {
	return &YTDLPExtractor{
		config:       config,
		downloadsDir: downloadsDir,
		logReader:    logger.NewLogReader(logsDir),
		logsDir:      logsDir,
	}
}

// Available checks that the yt-dlp binary can be resolved
func (d *YTDLPExtractor) Available() error {
	if _, err := exec.LookPath(d.config.YTDLPBinary); err != nil {
		return fmt.Errorf("yt-dlp binary %q not found: %w", d.config.YTDLPBinary, err)
	}
	return nil
}

// DownloadsDir returns the directory media files are written to
func (d *YTDLPExtractor) DownloadsDir() string {
	return d.downloadsDir
}

// FetchMetadata queries yt-dlp for video or playlist metadata without downloading
func (d *YTDLPExtractor) FetchMetadata(ctx context.Context, url string) (*domain.MediaInfo, error) {
	if err := domain.ValidateURL(url); err != nil {
		return nil, err
	}

	args := []string{"--dump-single-json", "--flat-playlist", "--no-warnings"}
	if d.config.NoCheckCertificates {
		args = append(args, "--no-check-certificates")
	}
	args = append(args, d.commonArgs()...)
	args = append(args, url)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.config.YTDLPBinary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &domain.ExtractionError{
			Op:      "metadata",
			URL:     url,
			Message: failureMessage(stderr.String(), err),
			Err:     err,
		}
	}

	info, err := parseMediaInfo(stdout.Bytes())
	if err != nil {
		return nil, &domain.ExtractionError{
			Op:      "metadata",
			URL:     url,
			Message: "unreadable yt-dlp metadata",
			Err:     err,
		}
	}
	return info, nil
}

// Download runs yt-dlp for the request. Progress lines are turned into
// downloading events; a single finished event follows a successful exit.
func (d *YTDLPExtractor) Download(ctx context.Context, req domain.DownloadRequest, onProgress domain.ProgressFunc) (*domain.DownloadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if onProgress == nil {
		onProgress = func(domain.ProgressEvent) {}
	}

	if err := os.MkdirAll(d.downloadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	args := d.buildDownloadArgs(req)

	downloadLog, err := d.openLogFile()
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer downloadLog.Close()

	cmdLine := shellescape.QuoteCommand(append([]string{d.config.YTDLPBinary}, args...))
	writeLogHeader(downloadLog, req.URL, cmdLine)

	cmd := exec.CommandContext(ctx, d.config.YTDLPBinary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		writeLogFooter(downloadLog, false, fmt.Sprintf("yt-dlp failed to start: %v", err))
		return nil, &domain.ExtractionError{Op: "download", URL: req.URL, Message: "yt-dlp failed to start", Err: err}
	}

	// yt-dlp prints progress to stderr once --print implies --quiet, so both
	// streams are scanned for our prefixes
	lines := make(chan outputLine, 64)
	var wg sync.WaitGroup
	wg.Add(2)
	go scanLines(stdout, false, lines, &wg)
	go scanLines(stderr, true, lines, &wg)
	go func() {
		wg.Wait()
		close(lines)
	}()

	var (
		titles        []string
		playlistTitle string
		stderrTail    strings.Builder
	)
	for line := range lines {
		fmt.Fprintln(downloadLog, line.text)

		switch {
		case strings.HasPrefix(line.text, progressPrefix):
			if event, ok := parseProgressLine(line.text); ok && event.Phase == domain.PhaseDownloading {
				onProgress(event)
			}
		case strings.HasPrefix(line.text, playlistTitlePrefix):
			playlistTitle = strings.TrimSpace(strings.TrimPrefix(line.text, playlistTitlePrefix))
		case strings.HasPrefix(line.text, titlePrefix):
			titles = append(titles, strings.TrimSpace(strings.TrimPrefix(line.text, titlePrefix)))
		case line.stderr:
			stderrTail.WriteString(line.text)
			stderrTail.WriteByte('\n')
		}
	}

	if err := cmd.Wait(); err != nil {
		msg := failureMessage(stderrTail.String(), err)
		writeLogFooter(downloadLog, false, msg)
		return nil, &domain.ExtractionError{Op: "download", URL: req.URL, Message: msg, Err: err}
	}

	title := pickTitle(req, titles, playlistTitle)
	if title == "" {
		writeLogFooter(downloadLog, false, "yt-dlp reported no title")
		return nil, &domain.ExtractionError{Op: "download", URL: req.URL, Message: "yt-dlp reported no title"}
	}

	onProgress(domain.ProgressEvent{Phase: domain.PhaseFinished})
	writeLogFooter(downloadLog, true, fmt.Sprintf("Downloaded: %s", title))

	return &domain.DownloadResult{
		Title:  title,
		URL:    req.URL,
		Format: req.Mode,
		Time:   domain.NewTimestamp(time.Now()),
	}, nil
}

// buildDownloadArgs combines the format policy with progress and title reporting
func (d *YTDLPExtractor) buildDownloadArgs(req domain.DownloadRequest) []string {
	args := BuildExtractionOptions(req, d.downloadsDir).Args()
	args = append(args,
		"--newline",
		"--progress",
		"--no-simulate",
		"--progress-template", progressTemplate,
		"--print", "after_move:"+titlePrefix+"%(title)s",
	)
	if req.Playlist {
		args = append(args, "--print", "playlist:"+playlistTitlePrefix+"%(title)s")
	}
	args = append(args, d.commonArgs()...)
	return append(args, req.URL)
}

func (d *YTDLPExtractor) commonArgs() []string {
	var args []string
	if d.config.CookieFile != "" && fileExists(d.config.CookieFile) {
		args = append(args, "--cookies", d.config.CookieFile)
	}
	if d.config.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", d.config.FFmpegLocation)
	}
	return args
}

// openLogFile opens today's raw yt-dlp log
func (d *YTDLPExtractor) openLogFile() (io.WriteCloser, error) {
	if d.logsDir == "" {
		return nopWriteCloser{io.Discard}, nil
	}
	if err := os.MkdirAll(d.logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	path := d.logReader.GetLogPath(logger.CategoryYTDLP, time.Now())
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// writeLogHeader writes the download start marker
func writeLogHeader(w io.Writer, url, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(w, "\n=== [%s] Download: %s ===\n", timestamp, url)
	fmt.Fprintf(w, "$ %s\n", cmdLine)
}

// writeLogFooter writes the download end marker
func writeLogFooter(w io.Writer, success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, status, message)
	fmt.Fprint(w, "=== END ===\n\n")
}

type outputLine struct {
	text   string
	stderr bool
}

func scanLines(r io.Reader, stderr bool, out chan<- outputLine, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		out <- outputLine{text: scanner.Text(), stderr: stderr}
	}
	// drain so yt-dlp never blocks on a full pipe after an oversized line
	io.Copy(io.Discard, r)
}

// parseProgressLine decodes "[progress]status|downloaded|total|estimate".
// yt-dlp prints NA for unknown values.
func parseProgressLine(line string) (domain.ProgressEvent, bool) {
	fields := strings.Split(strings.TrimPrefix(line, progressPrefix), "|")
	if len(fields) != 4 {
		return domain.ProgressEvent{}, false
	}

	var phase domain.Phase
	switch strings.TrimSpace(fields[0]) {
	case "downloading":
		phase = domain.PhaseDownloading
	case "finished":
		phase = domain.PhaseFinished
	default:
		return domain.ProgressEvent{}, false
	}

	total := parseByteCount(fields[2])
	if total == 0 {
		total = parseByteCount(fields[3])
	}

	return domain.ProgressEvent{
		Phase:           phase,
		DownloadedBytes: parseByteCount(fields[1]),
		TotalBytes:      total,
	}, true
}

func parseByteCount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" || s == "None" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return int64(v)
}

func pickTitle(req domain.DownloadRequest, titles []string, playlistTitle string) string {
	if req.Playlist && playlistTitle != "" {
		return playlistTitle
	}
	for _, t := range titles {
		if t != "" && t != "NA" {
			return t
		}
	}
	return ""
}

// failureMessage returns the last yt-dlp ERROR line, falling back to the last
// stderr line and finally the process error
func failureMessage(stderr string, err error) string {
	var lastError, lastLine string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lastLine = line
		if strings.HasPrefix(line, "ERROR:") {
			lastError = line
		}
	}
	switch {
	case lastError != "":
		return lastError
	case lastLine != "":
		return lastLine
	default:
		return fmt.Sprintf("yt-dlp failed: %v", err)
	}
}

type ytdlpInfo struct {
	Type      string        `json:"_type"`
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Duration  float64       `json:"duration"`
	ViewCount int64         `json:"view_count"`
	Formats   []ytdlpFormat `json:"formats"`
	Entries   *[]ytdlpEntry `json:"entries"`
}

type ytdlpFormat struct {
	VCodec string `json:"vcodec"`
	Height int    `json:"height"`
}

type ytdlpEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
}

// parseMediaInfo decodes yt-dlp --dump-single-json output. A document with an
// entries list is a playlist.
func parseMediaInfo(data []byte) (*domain.MediaInfo, error) {
	var raw ytdlpInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if raw.Entries != nil || raw.Type == "playlist" {
		playlist := &domain.PlaylistInfo{
			ID:      raw.ID,
			Title:   raw.Title,
			Entries: []domain.PlaylistEntry{},
		}
		if raw.Entries != nil {
			for _, e := range *raw.Entries {
				playlist.Entries = append(playlist.Entries, domain.PlaylistEntry{
					ID:    e.ID,
					Title: e.Title,
					URL:   entryURL(e),
				})
			}
		}
		return &domain.MediaInfo{Playlist: playlist}, nil
	}

	return &domain.MediaInfo{Video: &domain.VideoInfo{
		ID:          raw.ID,
		Title:       raw.Title,
		Duration:    raw.Duration,
		ViewCount:   raw.ViewCount,
		Resolutions: resolutions(raw.Formats),
	}}, nil
}

func entryURL(e ytdlpEntry) string {
	switch {
	case strings.HasPrefix(e.URL, "http"):
		return e.URL
	case e.WebpageURL != "":
		return e.WebpageURL
	case e.ID != "":
		return watchURLPrefix + e.ID
	default:
		return e.URL
	}
}

// resolutions returns the distinct heights of formats carrying video, highest first
func resolutions(formats []ytdlpFormat) []int {
	seen := make(map[int]bool)
	heights := []int{}
	for _, f := range formats {
		if f.VCodec == "none" || f.Height <= 0 || seen[f.Height] {
			continue
		}
		seen[f.Height] = true
		heights = append(heights, f.Height)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))
	return heights
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
