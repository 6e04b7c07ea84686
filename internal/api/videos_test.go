package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
)

func videosRouter(uploadDir string) http.Handler {
	h := NewVideosHandler(uploadDir, "http://localhost:8000/storage")
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestListVideos(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("media"), 0o644)
	os.WriteFile(filepath.Join(dir, "b.webm"), []byte("media"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644)
	os.WriteFile(filepath.Join(dir, "a_transcription.json"), []byte("{}"), 0o644)

	rec := httptest.NewRecorder()
	videosRouter(dir).ServeHTTP(rec, httptest.NewRequest("GET", "/videos/list", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Success bool            `json:"success"`
		Total   int             `json:"total"`
		Videos  []VideoFileInfo `json:"videos"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Total != 2 || len(body.Videos) != 2 {
		t.Errorf("expected 2 media files, got %+v", body)
	}
	for _, v := range body.Videos {
		if v.URL != "http://localhost:8000/storage/"+v.Filename {
			t.Errorf("unexpected url %q for %q", v.URL, v.Filename)
		}
	}
}

func TestListVideos_MissingDirIsEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	videosRouter(filepath.Join(t.TempDir(), "never")).ServeHTTP(rec, httptest.NewRequest("GET", "/videos/list", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Total  int             `json:"total"`
		Videos []VideoFileInfo `json:"videos"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 0 || body.Videos == nil {
		t.Errorf("expected empty non-nil list, got %+v", body)
	}
}

func TestGetVideoInfo(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "clip.mp4"), make([]byte, 3*1024*1024), 0o644)
	router := videosRouter(dir)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/videos/clip.mp4", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			Filename string  `json:"filename"`
			SizeMB   float64 `json:"size_mb"`
		}
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Filename != "clip.mp4" || body.SizeMB != 3.0 {
			t.Errorf("unexpected body: %+v", body)
		}
	})

	t.Run("missing_is_404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/videos/gone.mp4", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("traversal_is_rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/videos/..%2f..%2fetc", nil))
		if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
			t.Errorf("expected rejection, got %d", rec.Code)
		}
	})
}
