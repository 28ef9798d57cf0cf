package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yourusername/yt-grab-go/api/handlers"
	"github.com/yourusername/yt-grab-go/internal/app"
	"github.com/yourusername/yt-grab-go/internal/domain"
)

var (
	serverURL   string
	configFile  string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:           "yt-grab",
		Short:         "yt-grab CLI - search, preview and download YouTube media",
		Long:          `A command-line interface for a yt-grab server: look up metadata, download video or audio, search YouTube and browse the download history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8501", "Server URL")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file passed to an auto-started server")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(revealCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	downloadCmd.Flags().BoolP("audio", "a", false, "Download audio only (mp3)")
	downloadCmd.Flags().StringP("resolution", "r", "", "Maximum video resolution, e.g. 720p")
	downloadCmd.Flags().BoolP("playlist", "p", false, "Download the whole playlist")
	downloadCmd.Flags().BoolP("quiet", "q", false, "Don't show progress")
	batchCmd.Flags().BoolP("audio", "a", false, "Download audio only (mp3)")
	batchCmd.Flags().StringP("resolution", "r", "", "Maximum video resolution, e.g. 720p")
	searchCmd.Flags().IntP("max", "n", 0, "Number of results (1-50, default from server config)")
	historyCmd.Flags().IntP("limit", "l", 0, "Show only the most recent N entries")
}

// client returns an API client, starting the server first unless --no-auto-start
func client() *apiClient {
	if !noAutoStart {
		if err := ensureServerRunning(serverURL, configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return newAPIClient(serverURL)
}

var infoCmd = &cobra.Command{
	Use:   "info [url]",
	Short: "Show video or playlist metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := client().Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printMediaInfo(os.Stdout, info)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download a video, its audio, or a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audio, _ := cmd.Flags().GetBool("audio")
		resolution, _ := cmd.Flags().GetString("resolution")
		playlist, _ := cmd.Flags().GetBool("playlist")
		quiet, _ := cmd.Flags().GetBool("quiet")

		body := handlers.DownloadRequest{
			URL:        args[0],
			Mode:       string(modeFor(audio)),
			Resolution: resolution,
			Playlist:   playlist,
			JobID:      uuid.New().String(),
		}

		c := client()
		if !quiet {
			stop, err := c.WatchProgress(cmd.Context(), body.JobID, func(p app.JobProgress) {
				fmt.Fprintf(os.Stderr, "\r%s", formatProgress(p))
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			} else {
				defer stop()
			}
		}

		result, err := c.Download(cmd.Context(), body)
		if !quiet {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Downloaded %q (%s)\n", result.Title, result.Format)
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [file|-]",
	Short: "Download every URL listed in a file, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audio, _ := cmd.Flags().GetBool("audio")
		resolution, _ := cmd.Flags().GetString("resolution")

		text, err := readBatchInput(args[0], os.Stdin)
		if err != nil {
			return err
		}

		items, err := client().Batch(cmd.Context(), handlers.BatchRequest{
			Text:       text,
			Mode:       string(modeFor(audio)),
			Resolution: resolution,
		})
		if err != nil {
			return err
		}

		failed := printBatch(os.Stdout, items)
		if failed > 0 {
			return fmt.Errorf("%d of %d downloads failed", failed, len(items))
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search YouTube videos",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxResults, _ := cmd.Flags().GetInt("max")

		results, err := client().Search(cmd.Context(), strings.Join(args, " "), maxResults)
		if err != nil {
			return err
		}
		printSearchResults(os.Stdout, results)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		records, err := client().History(cmd.Context())
		if err != nil {
			return err
		}
		if limit > 0 && len(records) > limit {
			records = records[len(records)-limit:]
		}
		printHistory(os.Stdout, records)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := client().Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total: %d\n", stats.Total)
		fmt.Printf("  Video: %d\n", stats.Video)
		fmt.Printf("  Audio: %d\n", stats.Audio)
		return nil
	},
}

var revealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Open the downloads folder on the server host",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := client().Reveal(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Opened %s\n", path)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := defaultConfigPath()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}

		fmt.Printf("Wrote %s\n", path)
		fmt.Printf("Set %s_SEARCH_API_KEY to enable search.\n", app.EnvPrefix)
		return nil
	},
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".yt-grab", "config.yaml"), nil
}

func modeFor(audio bool) domain.Mode {
	if audio {
		return domain.ModeAudio
	}
	return domain.ModeVideo
}

// readBatchInput reads newline-separated URLs from path, or from stdin for "-"
func readBatchInput(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read URL list: %w", err)
	}

	text := string(data)
	if len(app.SplitBatchText(text)) == 0 {
		return "", fmt.Errorf("no URLs found in %s", path)
	}
	return text, nil
}

func formatProgress(p app.JobProgress) string {
	if p.Event.Phase == domain.PhaseFinished {
		return "Finished, post-processing...        "
	}
	if p.Percent != nil {
		return fmt.Sprintf("Downloading: %3d%%", *p.Percent)
	}
	return fmt.Sprintf("Downloading: %s", formatBytes(p.Event.DownloadedBytes))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatDuration(seconds float64) string {
	return (time.Duration(seconds) * time.Second).String()
}

func printMediaInfo(w io.Writer, info *domain.MediaInfo) {
	if info.IsPlaylist() {
		fmt.Fprintf(w, "Playlist: %s\n", info.Playlist.Title)
		fmt.Fprintf(w, "Videos:   %d\n", len(info.Playlist.Entries))
		if len(info.Playlist.Entries) == 0 {
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tTITLE\tURL")
		for i, e := range info.Playlist.Entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, truncate(e.Title, 50), e.URL)
		}
		tw.Flush()
		return
	}

	if info.Video == nil {
		return
	}
	fmt.Fprintf(w, "Title:       %s\n", info.Video.Title)
	fmt.Fprintf(w, "Duration:    %s\n", formatDuration(info.Video.Duration))
	fmt.Fprintf(w, "Views:       %d\n", info.Video.ViewCount)
	if len(info.Video.Resolutions) > 0 {
		labels := make([]string, len(info.Video.Resolutions))
		for i, h := range info.Video.Resolutions {
			labels[i] = fmt.Sprintf("%dp", h)
		}
		fmt.Fprintf(w, "Resolutions: %s\n", strings.Join(labels, ", "))
	}
}

// printBatch writes one line per batch item and returns how many failed
func printBatch(w io.Writer, items []app.BatchItem) int {
	failed := 0
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tURL\tDETAIL")
	for _, item := range items {
		if item.Error != "" {
			failed++
			fmt.Fprintf(tw, "FAILED\t%s\t%s\n", item.URL, truncate(item.Error, 60))
			continue
		}
		title := ""
		if item.Result != nil {
			title = item.Result.Title
		}
		fmt.Fprintf(tw, "OK\t%s\t%s\n", item.URL, truncate(title, 60))
	}
	tw.Flush()
	return failed
}

func printSearchResults(w io.Writer, results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tURL")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, truncate(r.Title, 60), r.WatchURL())
	}
	tw.Flush()
}

func printHistory(w io.Writer, records []domain.DownloadResult) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No downloads recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tFORMAT\tTITLE\tURL")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Time, r.Format, truncate(r.Title, 50), r.URL)
	}
	tw.Flush()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
