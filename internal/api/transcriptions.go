package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/ttscribe/internal/store"
	"github.com/snarg/ttscribe/internal/transcribe"
)

// Transcriber runs the transcription pipeline for one uploaded file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, ov transcribe.Overrides) (*transcribe.Record, error)
}

// RecordStore reads previously persisted transcription records.
type RecordStore interface {
	Load(videoName string) (*transcribe.Record, error)
	List() ([]store.Summary, error)
}

// TranscriptionsHandler serves the transcription endpoints.
type TranscriptionsHandler struct {
	svc            Transcriber
	records        RecordStore
	uploadDir      string
	storageBaseURL string
}

func NewTranscriptionsHandler(svc Transcriber, records RecordStore, uploadDir, storageBaseURL string) *TranscriptionsHandler {
	return &TranscriptionsHandler{
		svc:            svc,
		records:        records,
		uploadDir:      uploadDir,
		storageBaseURL: storageBaseURL,
	}
}

func (h *TranscriptionsHandler) Routes(r chi.Router) {
	r.Post("/transcribe", h.TranscribeVideo)
	r.Get("/transcription/{video_name}", h.GetSavedTranscription)
	r.Get("/transcriptions/list", h.ListTranscriptions)
}

// TranscribeRequest selects a video and optional decoding parameters.
type TranscribeRequest struct {
	VideoFilename string `json:"video_filename"`
	Language      string `json:"language,omitempty"`
	ModelSize     string `json:"model_size,omitempty"`
	BeamSize      *int   `json:"beam_size,omitempty"`
	VADFilter     *bool  `json:"vad_filter,omitempty"`
	ComputeType   string `json:"compute_type,omitempty"`
}

// TranscribeResponse is a completed transcription plus its storage location.
type TranscribeResponse struct {
	Success              bool                 `json:"success"`
	Message              string               `json:"message"`
	VideoFilename        string               `json:"video_filename"`
	Text                 string               `json:"text"`
	Segments             []transcribe.Segment `json:"segments"`
	Language             string               `json:"language"`
	NumSegments          int                  `json:"num_segments"`
	Duration             float64              `json:"duration"`
	TranscriptionFileURL string               `json:"transcription_file_url,omitempty"`
	SaveError            string               `json:"save_error,omitempty"`
	Timestamp            string               `json:"timestamp"`
}

var modelSizes = map[string]bool{
	"tiny": true, "base": true, "small": true,
	"medium": true, "large-v2": true, "large-v3": true,
}

var computeTypes = map[string]bool{
	"auto": true, "int8": true, "float16": true, "float32": true,
}

// validate rejects out-of-bounds parameters before they reach the resolver,
// which itself accepts anything.
func (req *TranscribeRequest) validate() error {
	if strings.TrimSpace(req.VideoFilename) == "" {
		return fmt.Errorf("video_filename is required")
	}
	if name := req.VideoFilename; name != filepath.Base(name) {
		return fmt.Errorf("video_filename must not contain path separators")
	}
	if req.ModelSize != "" && !modelSizes[req.ModelSize] {
		return fmt.Errorf("model_size must be one of tiny, base, small, medium, large-v2, large-v3")
	}
	if req.BeamSize != nil && (*req.BeamSize < 1 || *req.BeamSize > 10) {
		return fmt.Errorf("beam_size must be between 1 and 10")
	}
	if req.ComputeType != "" && !computeTypes[req.ComputeType] {
		return fmt.Errorf("compute_type must be one of auto, int8, float16, float32")
	}
	return nil
}

// TranscribeVideo transcribes speech from an uploaded video to timestamped
// text.
func (h *TranscriptionsHandler) TranscribeVideo(w http.ResponseWriter, r *http.Request) {
	var req TranscribeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ov := transcribe.Overrides{
		Model:       req.ModelSize,
		Language:    req.Language,
		ComputeType: nonAuto(req.ComputeType),
		BeamSize:    req.BeamSize,
		VADFilter:   req.VADFilter,
	}

	rec, err := h.svc.Transcribe(r.Context(), filepath.Join(h.uploadDir, req.VideoFilename), ov)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			WriteError(w, http.StatusNotFound,
				fmt.Sprintf("video file %q not found in uploads directory", req.VideoFilename))
			return
		}
		detail := err.Error()
		if rec != nil && rec.Error != "" {
			detail = rec.Error
		}
		WriteErrorDetail(w, http.StatusInternalServerError, "transcription failed", detail)
		return
	}

	resp := TranscribeResponse{
		Success:       true,
		Message:       fmt.Sprintf("Successfully transcribed video with %d segments", rec.NumSegments),
		VideoFilename: req.VideoFilename,
		Text:          rec.Text,
		Segments:      rec.Segments,
		Language:      rec.Language,
		NumSegments:   rec.NumSegments,
		Duration:      rec.Duration,
		SaveError:     rec.SaveError,
		Timestamp:     Now(),
	}
	if rec.StorageLocation != "" {
		resp.TranscriptionFileURL = h.storageBaseURL + "/" + filepath.Base(rec.StorageLocation)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetSavedTranscription returns a previously stored record by video name
// (the source filename without extension).
func (h *TranscriptionsHandler) GetSavedTranscription(w http.ResponseWriter, r *http.Request) {
	videoName := chi.URLParam(r, "video_name")

	rec, err := h.records.Load(videoName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("no transcription found for video %q", videoName))
			return
		}
		WriteErrorDetail(w, http.StatusInternalServerError, "failed to load transcription", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":                true,
		"video_name":             videoName,
		"transcription":          rec,
		"transcription_file_url": fmt.Sprintf("%s/%s_transcription.json", h.storageBaseURL, videoName),
		"timestamp":              Now(),
	})
}

// transcriptionListItem is a stored-record summary plus its public URL.
type transcriptionListItem struct {
	store.Summary
	URL string `json:"url"`
}

// ListTranscriptions returns summaries of all stored records, newest first.
func (h *TranscriptionsHandler) ListTranscriptions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.records.List()
	if err != nil {
		WriteErrorDetail(w, http.StatusInternalServerError, "failed to list transcriptions", err.Error())
		return
	}

	items := make([]transcriptionListItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, transcriptionListItem{
			Summary: s,
			URL:     h.storageBaseURL + "/" + s.Filename,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        fmt.Sprintf("Found %d transcription files", len(items)),
		"transcriptions": items,
		"total":          len(items),
		"timestamp":      Now(),
	})
}

// nonAuto drops the "auto" sentinel so it falls through to default
// resolution rather than masquerading as an explicit choice.
func nonAuto(v string) string {
	if v == "auto" {
		return ""
	}
	return v
}
