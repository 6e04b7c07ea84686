package api

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/ttscribe/internal/store"
)

// VideosHandler serves downloaded-media listing and info endpoints.
type VideosHandler struct {
	uploadDir      string
	storageBaseURL string
}

func NewVideosHandler(uploadDir, storageBaseURL string) *VideosHandler {
	return &VideosHandler{uploadDir: uploadDir, storageBaseURL: storageBaseURL}
}

func (h *VideosHandler) Routes(r chi.Router) {
	r.Get("/videos/list", h.ListVideos)
	r.Get("/videos/{filename}", h.GetVideoInfo)
}

// VideoFileInfo describes one downloaded media file.
type VideoFileInfo struct {
	Filename string    `json:"filename"`
	URL      string    `json:"url"`
	SizeMB   float64   `json:"size_mb"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// ListVideos returns all downloaded media files, newest-modified first.
func (h *VideosHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.uploadDir)
	if err != nil && !os.IsNotExist(err) {
		WriteErrorDetail(w, http.StatusInternalServerError, "failed to read uploads directory", err.Error())
		return
	}

	files := []VideoFileInfo{}
	for _, e := range entries {
		if e.IsDir() || !store.IsVideoFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, h.fileInfo(e.Name(), info))
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("Found %d downloaded videos", len(files)),
		"videos":    files,
		"total":     len(files),
		"timestamp": Now(),
	})
}

// GetVideoInfo returns one media file's info and storage URL.
func (h *VideosHandler) GetVideoInfo(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		WriteError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	info, err := os.Stat(filepath.Join(h.uploadDir, filename))
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("video file %q not found", filename))
		return
	}

	fi := h.fileInfo(filename, info)
	WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"filename":  fi.Filename,
		"url":       fi.URL,
		"size_mb":   fi.SizeMB,
		"created":   fi.Created,
		"modified":  fi.Modified,
		"timestamp": Now(),
	})
}

func (h *VideosHandler) fileInfo(name string, info os.FileInfo) VideoFileInfo {
	return VideoFileInfo{
		Filename: name,
		URL:      h.storageBaseURL + "/" + name,
		SizeMB:   math.Round(float64(info.Size())/(1024*1024)*100) / 100,
		Created:  info.ModTime(),
		Modified: info.ModTime(),
	}
}
