package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/ttscribe/internal/scrape"
)

// ChannelScraper is the channel-extraction collaborator.
type ChannelScraper interface {
	ListVideos(ctx context.Context, channelLink string, maxVideos int) (*scrape.ChannelListing, error)
	DownloadAll(ctx context.Context, channelLink string, maxVideos int) (*scrape.DownloadResult, error)
	MetadataPath(username string) string
}

// ChannelsHandler serves channel metadata and download endpoints.
type ChannelsHandler struct {
	scraper        ChannelScraper
	storageBaseURL string
	maxVideosLimit int
}

func NewChannelsHandler(scraper ChannelScraper, storageBaseURL string, maxVideosLimit int) *ChannelsHandler {
	return &ChannelsHandler{
		scraper:        scraper,
		storageBaseURL: storageBaseURL,
		maxVideosLimit: maxVideosLimit,
	}
}

func (h *ChannelsHandler) Routes(r chi.Router) {
	r.Post("/metadata", h.GetChannelMetadata)
	r.Post("/download", h.DownloadChannelVideos)
	r.Get("/metadata/{username}", h.GetSavedMetadata)
}

// ChannelRequest asks for a channel's videos, optionally capped.
type ChannelRequest struct {
	ChannelLink string `json:"channel_link"`
	MaxVideos   *int   `json:"max_videos"`
}

// MetadataResponse lists a channel's videos without downloading media.
type MetadataResponse struct {
	Success         bool                   `json:"success"`
	Message         string                 `json:"message"`
	Username        string                 `json:"username"`
	TotalVideos     int                    `json:"total_videos"`
	Videos          []scrape.VideoMetadata `json:"videos"`
	MetadataFileURL string                 `json:"metadata_file_url,omitempty"`
	Timestamp       string                 `json:"timestamp"`
}

// DownloadResponse reports a completed channel download.
type DownloadResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Username      string `json:"username"`
	Downloaded    int    `json:"downloaded"`
	VideosListURL string `json:"videos_list_url,omitempty"`
	Timestamp     string `json:"timestamp"`
}

func (h *ChannelsHandler) parseRequest(w http.ResponseWriter, r *http.Request) (*ChannelRequest, bool) {
	var req ChannelRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if strings.TrimSpace(req.ChannelLink) == "" {
		WriteError(w, http.StatusBadRequest, "channel_link is required")
		return nil, false
	}
	if req.MaxVideos != nil && (*req.MaxVideos < 1 || *req.MaxVideos > h.maxVideosLimit) {
		WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("max_videos must be between 1 and %d", h.maxVideosLimit))
		return nil, false
	}
	return &req, true
}

// GetChannelMetadata extracts and saves a channel's video metadata.
func (h *ChannelsHandler) GetChannelMetadata(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	maxVideos := 0
	if req.MaxVideos != nil {
		maxVideos = *req.MaxVideos
	}

	listing, err := h.scraper.ListVideos(r.Context(), req.ChannelLink, maxVideos)
	if err != nil {
		WriteErrorDetail(w, http.StatusNotFound, "failed to fetch channel metadata", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, MetadataResponse{
		Success:         true,
		Message:         fmt.Sprintf("Successfully retrieved %d videos from @%s", listing.TotalVideos, listing.Username),
		Username:        listing.Username,
		TotalVideos:     listing.TotalVideos,
		Videos:          listing.Videos,
		MetadataFileURL: h.storageBaseURL + "/" + filepath.Base(listing.MetadataFile),
		Timestamp:       Now(),
	})
}

// DownloadChannelVideos downloads a channel's media files.
func (h *ChannelsHandler) DownloadChannelVideos(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	maxVideos := 0
	if req.MaxVideos != nil {
		maxVideos = *req.MaxVideos
	}

	result, err := h.scraper.DownloadAll(r.Context(), req.ChannelLink, maxVideos)
	if err != nil {
		WriteErrorDetail(w, http.StatusInternalServerError, "failed to download videos", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, DownloadResponse{
		Success:       true,
		Message:       fmt.Sprintf("Successfully downloaded %d videos from @%s", result.Downloaded, result.Username),
		Username:      result.Username,
		Downloaded:    result.Downloaded,
		VideosListURL: strings.TrimSuffix(h.storageBaseURL, "/storage") + "/api/v1/videos/list",
		Timestamp:     Now(),
	})
}

// GetSavedMetadata returns a previously saved channel listing.
func (h *ChannelsHandler) GetSavedMetadata(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	path := h.scraper.MetadataPath(username)
	data, err := os.ReadFile(path)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("no metadata found for user @%s", username))
		return
	}

	var videos []json.RawMessage
	if err := json.Unmarshal(data, &videos); err != nil {
		WriteErrorDetail(w, http.StatusInternalServerError, "corrupt metadata file", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"username":          username,
		"total_videos":      len(videos),
		"metadata":          videos,
		"metadata_file_url": h.storageBaseURL + "/" + filepath.Base(path),
		"timestamp":         Now(),
	})
}
