package infrastructure

import (
	"fmt"
	"path/filepath"

	"github.com/yourusername/yt-grab-go/internal/domain"
)

// Audio post-processing and container targets
const (
	AudioCodec     = "mp3"
	AudioBitrate   = "192"
	VideoContainer = "mp4"
)

// PostProcessor is a yt-dlp post-processing step
type PostProcessor struct {
	Key              string // yt-dlp post-processor name
	PreferredCodec   string
	PreferredQuality string // kbps
}

// ExtractionOptions is the yt-dlp configuration derived from one request
type ExtractionOptions struct {
	OutputTemplate    string
	Format            string
	MergeOutputFormat string
	PostProcessors    []PostProcessor
	NoPlaylist        bool
}

// BuildExtractionOptions applies the format-selector policy to a request:
// audio is transcoded to 192 kbps MP3, video with a requested height accepts
// only that exact height (no fallback), and video without a height takes the
// best available streams merged into MP4.
func BuildExtractionOptions(req domain.DownloadRequest, downloadsDir string) ExtractionOptions {
	opts := ExtractionOptions{
		OutputTemplate: filepath.Join(downloadsDir, "%(title)s.%(ext)s"),
		NoPlaylist:     !req.Playlist,
	}

	switch {
	case req.Mode == domain.ModeAudio:
		opts.Format = "bestaudio/best"
		opts.PostProcessors = []PostProcessor{{
			Key:              "FFmpegExtractAudio",
			PreferredCodec:   AudioCodec,
			PreferredQuality: AudioBitrate,
		}}
	case req.Height > 0:
		opts.Format = fmt.Sprintf("bestvideo[height=%d]+bestaudio", req.Height)
		opts.MergeOutputFormat = VideoContainer
	default:
		opts.Format = "bestvideo+bestaudio/best"
		opts.MergeOutputFormat = VideoContainer
	}

	return opts
}

// Args renders the options as yt-dlp command-line arguments
func (o ExtractionOptions) Args() []string {
	args := []string{
		"-o", o.OutputTemplate,
		"-f", o.Format,
	}

	if o.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", o.MergeOutputFormat)
	}

	for _, pp := range o.PostProcessors {
		if pp.Key == "FFmpegExtractAudio" {
			args = append(args, "-x", "--audio-format", pp.PreferredCodec)
			if pp.PreferredQuality != "" {
				args = append(args, "--audio-quality", pp.PreferredQuality+"K")
			}
		}
	}

	if o.NoPlaylist {
		args = append(args, "--no-playlist")
	} else {
		args = append(args, "--yes-playlist")
	}

	return args
}
