package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yt-grab-go/api/handlers"
	"github.com/yourusername/yt-grab-go/internal/app"
	"github.com/yourusername/yt-grab-go/internal/domain"
)

func TestAPIClient_Info(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/info", r.URL.Path)
		assert.Equal(t, "https://youtu.be/abc", r.URL.Query().Get("url"))
		w.Write([]byte(`{"video":{"id":"abc","title":"Clip","duration":61,"view_count":7,"resolutions":[720,360]}}`))
	}))
	defer server.Close()

	info, err := newAPIClient(server.URL+"/").Info(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	require.NotNil(t, info.Video)
	assert.Equal(t, "Clip", info.Video.Title)
	assert.Equal(t, []int{720, 360}, info.Video.Resolutions)
}

func TestAPIClient_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"yt-dlp failed: Video unavailable"}`))
	}))
	defer server.Close()

	_, err := newAPIClient(server.URL).Info(context.Background(), "https://youtu.be/x")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "yt-dlp failed: Video unavailable", apiErr.Message)
}

func TestAPIClient_ErrorPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newAPIClient(server.URL).Stats(context.Background())
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestAPIClient_DownloadSendsJSON(t *testing.T) {
	var got handlers.DownloadRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"title":"Song","url":"https://youtu.be/a","format":"audio","time":"2024-03-01 10:00:00"}`))
	}))
	defer server.Close()

	result, err := newAPIClient(server.URL).Download(context.Background(), handlers.DownloadRequest{
		URL:   "https://youtu.be/a",
		Mode:  "audio",
		JobID: "job-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Song", result.Title)
	assert.Equal(t, domain.ModeAudio, result.Format)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, "audio", got.Mode)
}

func TestAPIClient_SearchQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lofi beats", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("max"))
		w.Write([]byte(`[{"video_id":"v1","title":"One"}]`))
	}))
	defer server.Close()

	results, err := newAPIClient(server.URL).Search(context.Background(), "lofi beats", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=v1", results[0].WatchURL())
}

func TestAPIClient_Batch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"url":"a","result":{"title":"A","url":"a","format":"video","time":"2024-03-01 10:00:00"}},{"url":"b","error":"boom"}]`))
	}))
	defer server.Close()

	items, err := newAPIClient(server.URL).Batch(context.Background(), handlers.BatchRequest{Text: "a\nb"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	var out bytes.Buffer
	assert.Equal(t, 1, printBatch(&out, items))
	assert.Contains(t, out.String(), "FAILED")
	assert.Contains(t, out.String(), "boom")
}

func TestProgressURL(t *testing.T) {
	tests := []struct {
		base    string
		jobID   string
		want    string
		wantErr bool
	}{
		{"http://localhost:8501", "", "ws://localhost:8501/api/v1/progress/ws", false},
		{"https://grab.example.com/", "j1", "wss://grab.example.com/api/v1/progress/ws?job_id=j1", false},
		{"http://host/prefix", "", "ws://host/prefix/api/v1/progress/ws", false},
		{"ftp://host", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := progressURL(tt.base, tt.jobID)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIClient_WatchProgress(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "job-7", r.URL.Query().Get("job_id"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(app.NewJobProgress("job-7", "u", domain.ProgressEvent{Phase: domain.PhaseDownloading, DownloadedBytes: 50, TotalBytes: 100}))
		conn.WriteJSON(app.NewJobProgress("job-7", "u", domain.ProgressEvent{Phase: domain.PhaseFinished}))
		conn.ReadMessage()
	}))
	defer server.Close()

	var (
		mu     sync.Mutex
		events []app.JobProgress
	)
	stop, err := newAPIClient(server.URL).WatchProgress(context.Background(), "job-7", func(p app.JobProgress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)
	stop()

	require.NotNil(t, events[0].Percent)
	assert.Equal(t, 50, *events[0].Percent)
	assert.Equal(t, domain.PhaseFinished, events[1].Event.Phase)
}

func TestReadBatchInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://youtu.be/a\n\n  https://youtu.be/b  \n"), 0644))

	text, err := readBatchInput(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtu.be/a", "https://youtu.be/b"}, app.SplitBatchText(text))

	text, err = readBatchInput("-", strings.NewReader("https://youtu.be/c\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://youtu.be/c"}, app.SplitBatchText(text))

	_, err = readBatchInput("-", strings.NewReader("\n  \n"))
	assert.Error(t, err)

	_, err = readBatchInput(filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)
}

func TestFormatProgress(t *testing.T) {
	known := app.NewJobProgress("j", "u", domain.ProgressEvent{Phase: domain.PhaseDownloading, DownloadedBytes: 1, TotalBytes: 4})
	assert.Equal(t, "Downloading:  25%", formatProgress(known))

	unknown := app.NewJobProgress("j", "u", domain.ProgressEvent{Phase: domain.PhaseDownloading, DownloadedBytes: 3 * 1024 * 1024})
	assert.Equal(t, "Downloading: 3.0 MiB", formatProgress(unknown))

	finished := app.NewJobProgress("j", "u", domain.ProgressEvent{Phase: domain.PhaseFinished})
	assert.True(t, strings.HasPrefix(formatProgress(finished), "Finished"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 GiB", formatBytes(2*1024*1024*1024))
}

func TestPrintMediaInfo(t *testing.T) {
	var out bytes.Buffer
	printMediaInfo(&out, &domain.MediaInfo{Video: &domain.VideoInfo{
		Title:       "Clip",
		Duration:    125,
		ViewCount:   42,
		Resolutions: []int{1080, 720},
	}})
	assert.Contains(t, out.String(), "2m5s")
	assert.Contains(t, out.String(), "1080p, 720p")

	out.Reset()
	printMediaInfo(&out, &domain.MediaInfo{Playlist: &domain.PlaylistInfo{
		Title:   "Mix",
		Entries: []domain.PlaylistEntry{{Title: "First", URL: "https://www.youtube.com/watch?v=1"}},
	}})
	assert.Contains(t, out.String(), "Playlist: Mix")
	assert.Contains(t, out.String(), "First")
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	printHistory(&out, nil)
	assert.Equal(t, "No downloads recorded\n", out.String())

	out.Reset()
	printHistory(&out, []domain.DownloadResult{{Title: "Song", URL: "https://youtu.be/a", Format: domain.ModeAudio}})
	assert.Contains(t, out.String(), "Song")
	assert.Contains(t, out.String(), "audio")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "日本語...", truncate("日本語のタイトル", 6))
}

func TestServerBinaryCandidates(t *testing.T) {
	paths := serverBinaryCandidates("/opt/yt-grab/yt-grab", "/home/u")
	assert.Equal(t, filepath.Join("/opt/yt-grab", serverBinaryName), paths[0])
	assert.Contains(t, paths, filepath.Join("/home/u", ".yt-grab", "bin", serverBinaryName))

	assert.NotContains(t, serverBinaryCandidates("", ""), "")
}

func TestWaitForServerReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.True(t, isServerRunning(server.URL))
	assert.NoError(t, waitForServerReady(server.URL, time.Second))

	server.Close()
	assert.False(t, isServerRunning(server.URL))
	assert.Error(t, waitForServerReady(server.URL, 300*time.Millisecond))
}
