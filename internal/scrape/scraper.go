// Package scrape wraps the yt-dlp extractor for channel metadata listing and
// media downloads. It shells out rather than reimplementing extraction; the
// binary path is configurable for containerized deployments.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/snarg/ttscribe/internal/metrics"
)

// VideoMetadata is one channel entry from a flat-playlist extraction, without
// downloading media.
type VideoMetadata struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Duration     int    `json:"duration"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	RepostCount  int64  `json:"repost_count"`
	Uploader     string `json:"uploader"`
	UploadDate   string `json:"upload_date"`
	WebpageURL   string `json:"webpage_url"`
}

// ChannelListing is the result of a metadata scrape.
type ChannelListing struct {
	Username     string
	Videos       []VideoMetadata
	MetadataFile string
	TotalVideos  int
}

// DownloadResult is the result of a channel download.
type DownloadResult struct {
	Username   string
	Downloaded int
	Dir        string
}

// Scraper drives yt-dlp against a download directory.
type Scraper struct {
	ytdlp string
	dir   string
	log   zerolog.Logger
}

// New creates a scraper. ytdlp is the binary to invoke ("yt-dlp" by default).
func New(ytdlp, dir string, log zerolog.Logger) *Scraper {
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	return &Scraper{ytdlp: ytdlp, dir: dir, log: log}
}

// MetadataPath returns where a channel's saved metadata listing lives.
func (s *Scraper) MetadataPath(username string) string {
	return filepath.Join(s.dir, username+"_videos_metadata.json")
}

// ListVideos extracts channel entries without downloading media, writes the
// listing to {username}_videos_metadata.json, and returns it. maxVideos <= 0
// means all videos.
func (s *Scraper) ListVideos(ctx context.Context, channelLink string, maxVideos int) (*ChannelListing, error) {
	username := ExtractUsername(channelLink)
	url := CanonicalURL(channelLink)

	args := []string{"-J", "--flat-playlist", "--no-warnings", "--ignore-errors"}
	if maxVideos > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(maxVideos))
	}
	args = append(args, url)

	s.log.Info().Str("username", username).Int("max_videos", maxVideos).Msg("listing channel videos")

	out, err := exec.CommandContext(ctx, s.ytdlp, args...).Output()
	if err != nil {
		metrics.ScrapesTotal.WithLabelValues("metadata", "error").Inc()
		return nil, fmt.Errorf("extract channel %q: %s", username, execError(err))
	}

	videos, err := parsePlaylist(out, username)
	if err != nil {
		metrics.ScrapesTotal.WithLabelValues("metadata", "error").Inc()
		return nil, err
	}
	if len(videos) == 0 {
		metrics.ScrapesTotal.WithLabelValues("metadata", "error").Inc()
		return nil, fmt.Errorf("no videos found for channel %q", username)
	}

	path := s.MetadataPath(username)
	if err := s.writeListing(path, videos); err != nil {
		metrics.ScrapesTotal.WithLabelValues("metadata", "error").Inc()
		return nil, err
	}

	metrics.ScrapesTotal.WithLabelValues("metadata", "ok").Inc()
	s.log.Info().Str("username", username).Int("videos", len(videos)).Str("file", path).Msg("channel metadata saved")

	return &ChannelListing{
		Username:     username,
		Videos:       videos,
		MetadataFile: path,
		TotalVideos:  len(videos),
	}, nil
}

// DownloadAll downloads channel media into the download directory using the
// {username}_{sequence:03d}_{id}.{ext} naming pattern. Completed files are
// counted from yt-dlp's per-file completion output; partial failures with at
// least one completed download still succeed.
func (s *Scraper) DownloadAll(ctx context.Context, channelLink string, maxVideos int) (*DownloadResult, error) {
	username := ExtractUsername(channelLink)
	url := CanonicalURL(channelLink)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	template := filepath.Join(s.dir, username+"_%(autonumber)03d_%(id)s.%(ext)s")
	args := []string{
		"-f", "best",
		"--no-warnings",
		"--ignore-errors",
		"--no-simulate",
		"--print", "after_move:filepath",
		"-o", template,
	}
	if maxVideos > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(maxVideos))
	}
	args = append(args, url)

	s.log.Info().Str("username", username).Int("max_videos", maxVideos).Msg("downloading channel videos")

	out, err := exec.CommandContext(ctx, s.ytdlp, args...).Output()
	downloaded := countLines(out)

	if err != nil && downloaded == 0 {
		metrics.ScrapesTotal.WithLabelValues("download", "error").Inc()
		return nil, fmt.Errorf("download channel %q: %s", username, execError(err))
	}
	if err != nil {
		s.log.Warn().Str("username", username).Int("downloaded", downloaded).
			Str("error", execError(err)).Msg("download finished with errors")
	}

	metrics.ScrapesTotal.WithLabelValues("download", "ok").Inc()
	metrics.DownloadedVideosTotal.Add(float64(downloaded))
	s.log.Info().Str("username", username).Int("downloaded", downloaded).Msg("channel download complete")

	absDir, absErr := filepath.Abs(s.dir)
	if absErr != nil {
		absDir = s.dir
	}
	return &DownloadResult{Username: username, Downloaded: downloaded, Dir: absDir}, nil
}

// playlistEntry mirrors the fields we keep from yt-dlp's flat-playlist JSON.
type playlistEntry struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Duration     float64 `json:"duration"`
	ViewCount    int64   `json:"view_count"`
	LikeCount    int64   `json:"like_count"`
	CommentCount int64   `json:"comment_count"`
	RepostCount  int64   `json:"repost_count"`
	Uploader     string  `json:"uploader"`
	UploadDate   string  `json:"upload_date"`
	WebpageURL   string  `json:"webpage_url"`
	URL          string  `json:"url"`
}

// parsePlaylist maps a -J extraction (playlist or single video) to metadata
// records. Null entries from --ignore-errors are dropped.
func parsePlaylist(data []byte, username string) ([]VideoMetadata, error) {
	var root struct {
		playlistEntry
		Entries []*playlistEntry `json:"entries"`
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse extractor output: %w", err)
	}

	entries := root.Entries
	if entries == nil {
		entries = []*playlistEntry{&root.playlistEntry}
	}

	videos := make([]VideoMetadata, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		uploader := e.Uploader
		if uploader == "" {
			uploader = username
		}
		pageURL := e.WebpageURL
		if pageURL == "" {
			pageURL = e.URL
		}
		videos = append(videos, VideoMetadata{
			VideoID:      e.ID,
			Title:        e.Title,
			Description:  e.Description,
			Duration:     int(e.Duration),
			ViewCount:    e.ViewCount,
			LikeCount:    e.LikeCount,
			CommentCount: e.CommentCount,
			RepostCount:  e.RepostCount,
			Uploader:     uploader,
			UploadDate:   e.UploadDate,
			WebpageURL:   pageURL,
		})
	}
	return videos, nil
}

func (s *Scraper) writeListing(path string, videos []VideoMetadata) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	data, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata file: %w", err)
	}
	return nil
}

func countLines(out []byte) int {
	n := 0
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// execError extracts stderr from a failed command for readable messages.
func execError(err error) string {
	if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
		return strings.TrimSpace(string(ee.Stderr))
	}
	return err.Error()
}
