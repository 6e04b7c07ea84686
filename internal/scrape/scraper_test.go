package scrape

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParsePlaylist_Channel(t *testing.T) {
	data := []byte(`{
		"id": "somecreator",
		"entries": [
			{
				"id": "7234567890",
				"title": "first clip",
				"description": "desc",
				"duration": 14.8,
				"view_count": 1200,
				"like_count": 300,
				"uploader": "somecreator",
				"upload_date": "20250101",
				"webpage_url": "https://www.tiktok.com/@somecreator/video/7234567890"
			},
			null,
			{
				"id": "7234567891",
				"title": "second clip",
				"url": "https://www.tiktok.com/@somecreator/video/7234567891"
			}
		]
	}`)

	videos, err := parsePlaylist(data, "somecreator")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos (null entry dropped), got %d", len(videos))
	}

	first := videos[0]
	if first.VideoID != "7234567890" || first.Title != "first clip" {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if first.Duration != 14 {
		t.Errorf("expected truncated duration 14, got %d", first.Duration)
	}
	if first.ViewCount != 1200 || first.LikeCount != 300 {
		t.Errorf("counts not carried: %+v", first)
	}

	second := videos[1]
	if second.Uploader != "somecreator" {
		t.Errorf("expected uploader fallback to username, got %q", second.Uploader)
	}
	if second.WebpageURL != "https://www.tiktok.com/@somecreator/video/7234567891" {
		t.Errorf("expected url fallback, got %q", second.WebpageURL)
	}
}

func TestParsePlaylist_SingleVideo(t *testing.T) {
	data := []byte(`{
		"id": "7234567890",
		"title": "one clip",
		"webpage_url": "https://www.tiktok.com/@somecreator/video/7234567890"
	}`)

	videos, err := parsePlaylist(data, "somecreator")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("expected 1 video, got %d", len(videos))
	}
	if videos[0].VideoID != "7234567890" {
		t.Errorf("unexpected entry: %+v", videos[0])
	}
}

func TestParsePlaylist_EntriesWithoutIDsDropped(t *testing.T) {
	data := []byte(`{"entries": [{"title": "no id"}, null]}`)

	videos, err := parsePlaylist(data, "somecreator")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("expected all entries dropped, got %d", len(videos))
	}
}

func TestParsePlaylist_Malformed(t *testing.T) {
	if _, err := parsePlaylist([]byte("not json"), "x"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want int
	}{
		{"empty", "", 0},
		{"only_newline", "\n", 0},
		{"two_files", "/dl/a.mp4\n/dl/b.mp4\n", 2},
		{"blank_lines_ignored", "/dl/a.mp4\n\n  \n/dl/b.mp4", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countLines([]byte(tt.out)); got != tt.want {
				t.Errorf("countLines(%q) = %d, want %d", tt.out, got, tt.want)
			}
		})
	}
}

func TestMetadataPath(t *testing.T) {
	s := New("", "/downloads", zerolog.Nop())
	if got := s.MetadataPath("somecreator"); got != "/downloads/somecreator_videos_metadata.json" {
		t.Errorf("unexpected metadata path %q", got)
	}
	if s.ytdlp != "yt-dlp" {
		t.Errorf("expected default binary, got %q", s.ytdlp)
	}
}
