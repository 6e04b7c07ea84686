package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/snarg/ttscribe/internal/metrics"
)

var videoExts = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
	".avi":  true,
}

// IsVideoFile reports whether a file name has a recognized media extension.
func IsVideoFile(name string) bool {
	return videoExts[strings.ToLower(filepath.Ext(name))]
}

// Watcher keeps the stored-file gauges in sync with the upload directory.
// Events are debounced into a single recount since downloads produce bursts
// of writes.
type Watcher struct {
	dir string
	log zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	debounceMu sync.Mutex
	debounce   *time.Timer
}

// NewWatcher creates a watcher for the upload directory.
func NewWatcher(dir string, log zerolog.Logger) *Watcher {
	return &Watcher{
		dir:  dir,
		log:  log.With().Str("component", "watcher").Logger(),
		done: make(chan struct{}),
	}
}

// Start performs an initial count and begins watching. The directory is
// created if absent so the watch can attach.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	w.recount()
	go w.loop()

	w.log.Info().Str("dir", w.dir).Msg("upload directory watcher started")
	return nil
}

// Stop closes the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.log.Info().Msg("upload directory watcher stopped")
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleRecount()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleRecount coalesces event bursts into one recount after 500ms of
// quiet.
func (w *Watcher) scheduleRecount() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounce != nil {
		w.debounce.Reset(500 * time.Millisecond)
		return
	}
	w.debounce = time.AfterFunc(500*time.Millisecond, func() {
		w.debounceMu.Lock()
		w.debounce = nil
		w.debounceMu.Unlock()

		w.recount()
	})
}

func (w *Watcher) recount() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn().Err(err).Msg("recount failed")
		return
	}

	var transcriptions, videos int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch {
		case strings.HasSuffix(e.Name(), suffix):
			transcriptions++
		case IsVideoFile(e.Name()):
			videos++
		}
	}

	metrics.StoredTranscriptions.Set(float64(transcriptions))
	metrics.StoredVideos.Set(float64(videos))
}
