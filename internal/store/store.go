// Package store persists transcription records as JSON files in a flat
// output directory. The naming convention <source-stem>_transcription.json is
// the sole addressing scheme: no index, no database, re-saving under the same
// source name overwrites the prior record.
package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/ttscribe/internal/transcribe"
)

const suffix = "_transcription.json"

// Store reads and writes transcription records under one directory.
type Store struct {
	dir string
	log zerolog.Logger
}

// New creates a store rooted at dir. The directory is created on first save,
// not here.
func New(dir string, log zerolog.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// PathFor returns the record path for a source file name (extension ignored).
func (s *Store) PathFor(sourceName string) string {
	stem := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	return filepath.Join(s.dir, stem+suffix)
}

// Save writes the record to <stem(sourceName)>_transcription.json, creating
// the directory if absent, and returns the written path. Last write wins.
func (s *Store) Save(rec *transcribe.Record, sourceName string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	path := s.PathFor(sourceName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}

	s.log.Info().Str("path", path).Msg("transcription saved")
	return path, nil
}

// Load reads a previously stored record by video name (the source stem).
// A missing record reports an error wrapping fs.ErrNotExist.
func (s *Store) Load(videoName string) (*transcribe.Record, error) {
	path := filepath.Join(s.dir, filepath.Base(videoName)+suffix)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("transcription for %q: %w", videoName, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("read record: %w", err)
	}

	var rec transcribe.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", path, err)
	}
	return &rec, nil
}

// Summary describes one stored record for the list endpoint.
type Summary struct {
	Filename    string    `json:"filename"`
	VideoName   string    `json:"video_name"`
	Language    string    `json:"language"`
	NumSegments int       `json:"num_segments"`
	Duration    float64   `json:"duration"`
	SizeKB      float64   `json:"size_kb"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}

// List returns summaries of all stored records, most recently modified first.
// Entries that cannot be read or parsed are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("read output directory: %w", err)
	}

	summaries := []Summary{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("skipping unreadable record")
			continue
		}
		var rec transcribe.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("skipping corrupt record")
			continue
		}

		summaries = append(summaries, Summary{
			Filename:    name,
			VideoName:   strings.TrimSuffix(name, suffix),
			Language:    rec.Language,
			NumSegments: rec.NumSegments,
			Duration:    rec.Duration,
			SizeKB:      math.Round(float64(info.Size())/1024*100) / 100,
			Created:     info.ModTime(),
			Modified:    info.ModTime(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Modified.After(summaries[j].Modified)
	})
	return summaries, nil
}
