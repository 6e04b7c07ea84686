package transcribe

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/ttscribe/internal/metrics"
)

// Saver persists a finished record keyed by the source file's name.
// Implemented by the result store.
type Saver interface {
	Save(rec *Record, sourceName string) (string, error)
}

// Service is the transcription pipeline: resolve parameters, run inference,
// normalize the segment stream, persist the record.
type Service struct {
	adapter  *Adapter
	saver    Saver
	defaults Defaults
	detect   func() string
	log      zerolog.Logger
}

// NewService wires the pipeline. detect may be nil to use hardware probing.
func NewService(adapter *Adapter, saver Saver, defaults Defaults, detect func() string, log zerolog.Logger) *Service {
	return &Service{
		adapter:  adapter,
		saver:    saver,
		defaults: defaults,
		detect:   detect,
		log:      log,
	}
}

// Transcribe runs the full pipeline for one media file. On inference failure
// it returns a Success=false record together with the error so the boundary
// can map the status; failed records are never persisted. A save failure is
// demoted to the record's SaveError field — the in-memory result is still
// successful and returned to the caller.
func (s *Service) Transcribe(ctx context.Context, audioPath string, ov Overrides) (*Record, error) {
	start := time.Now()
	cfg := Resolve(s.defaults, ov, s.detect)

	info, stream, err := s.adapter.Transcribe(ctx, audioPath, cfg)
	if err != nil {
		metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
		return FailedRecord(err), err
	}

	rec, err := Normalize(info, stream)
	if err != nil {
		metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
		return FailedRecord(err), err
	}

	// Language was either forced by the caller or detected by the engine;
	// once set it is never overwritten.
	if rec.Language == "" {
		rec.Language = cfg.Language
	}

	elapsed := time.Since(start)
	metrics.TranscriptionsTotal.WithLabelValues("ok").Inc()
	metrics.TranscribeDuration.Observe(elapsed.Seconds())

	s.log.Info().
		Str("file", audioPath).
		Str("language", rec.Language).
		Int("segments", rec.NumSegments).
		Float64("audio_duration", rec.Duration).
		Dur("elapsed", elapsed).
		Msg("transcription complete")

	if s.saver != nil {
		loc, saveErr := s.saver.Save(rec, filepath.Base(audioPath))
		if saveErr != nil {
			rec.SaveError = saveErr.Error()
			s.log.Error().Err(saveErr).Str("file", audioPath).Msg("failed to save transcription")
		} else {
			rec.StorageLocation = loc
		}
	}

	return rec, nil
}

// BatchResult pairs one batch entry's record with its source path and
// 1-based position.
type BatchResult struct {
	VideoPath string  `json:"video_path"`
	Position  int     `json:"index"`
	Record    *Record `json:"record"`
}

// TranscribeBatch runs the pipeline over multiple files sequentially,
// continuing past per-file failures.
func (s *Service) TranscribeBatch(ctx context.Context, audioPaths []string, ov Overrides) []BatchResult {
	results := make([]BatchResult, 0, len(audioPaths))
	total := len(audioPaths)

	s.log.Info().Int("videos", total).Msg("batch transcription starting")
	for i, path := range audioPaths {
		rec, err := s.Transcribe(ctx, path, ov)
		if err != nil {
			s.log.Warn().Err(err).Str("file", path).Int("position", i+1).Msg("batch entry failed")
		}
		results = append(results, BatchResult{VideoPath: path, Position: i + 1, Record: rec})
	}
	s.log.Info().Int("videos", total).Msg("batch transcription complete")

	return results
}
