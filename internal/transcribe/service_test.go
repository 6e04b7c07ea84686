package transcribe

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

type segmentsHandle struct {
	segs []RawSegment
	info RunInfo
}

func (h *segmentsHandle) Transcribe(ctx context.Context, audioPath string, opts RunOpts) (RunInfo, SegmentStream, error) {
	return h.info, &sliceStream{segs: h.segs, errAt: -1}, nil
}

func (h *segmentsHandle) Close() error { return nil }

type segmentsEngine struct {
	handle *segmentsHandle
}

func (e *segmentsEngine) Load(ctx context.Context, spec ModelSpec) (Handle, error) {
	return e.handle, nil
}

// fakeSaver captures saves and can simulate persistence failures.
type fakeSaver struct {
	saved   []*Record
	names   []string
	path    string
	saveErr error
}

func (s *fakeSaver) Save(rec *Record, sourceName string) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved = append(s.saved, rec)
	s.names = append(s.names, sourceName)
	return s.path, nil
}

func newTestService(t *testing.T, engine Engine, saver Saver) *Service {
	t.Helper()
	adapter := NewAdapter(engine, zerolog.Nop())
	t.Cleanup(func() { adapter.Close() })
	return NewService(adapter, saver, testDefaults(), detectCPU, zerolog.Nop())
}

func TestService_TranscribeAndPersist(t *testing.T) {
	engine := &segmentsEngine{handle: &segmentsHandle{
		segs: []RawSegment{{Start: 0, End: 1.5, Text: " hello "}},
		info: RunInfo{Language: "en", LanguageProbability: 0.9, Duration: 2},
	}}
	saver := &fakeSaver{path: "/data/clip_transcription.json"}
	svc := newTestService(t, engine, saver)
	path := writeTempAudio(t)

	rec, err := svc.Transcribe(context.Background(), path, Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rec.Success || rec.Text != "hello" || rec.NumSegments != 1 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.StorageLocation != "/data/clip_transcription.json" {
		t.Errorf("expected storage location on record, got %q", rec.StorageLocation)
	}
	if len(saver.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(saver.saved))
	}
	if saver.names[0] != filepath.Base(path) {
		t.Errorf("save should key on base name, got %q", saver.names[0])
	}
}

func TestService_LanguageBackfilledFromConfig(t *testing.T) {
	// Engine reports no language; a caller-forced language fills the gap.
	engine := &segmentsEngine{handle: &segmentsHandle{info: RunInfo{}}}
	svc := newTestService(t, engine, nil)
	path := writeTempAudio(t)

	rec, err := svc.Transcribe(context.Background(), path, Overrides{Language: "de"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Language != "de" {
		t.Errorf("expected backfilled language de, got %q", rec.Language)
	}
}

func TestService_SaveErrorIsAdvisory(t *testing.T) {
	engine := &segmentsEngine{handle: &segmentsHandle{
		segs: []RawSegment{{Start: 0, End: 1, Text: "ok"}},
		info: RunInfo{Language: "en"},
	}}
	saver := &fakeSaver{saveErr: errors.New("disk full")}
	svc := newTestService(t, engine, saver)
	path := writeTempAudio(t)

	rec, err := svc.Transcribe(context.Background(), path, Overrides{})
	if err != nil {
		t.Fatalf("save failure must not fail the run: %v", err)
	}
	if !rec.Success {
		t.Error("record should stay successful")
	}
	if rec.SaveError != "disk full" {
		t.Errorf("expected save error recorded, got %q", rec.SaveError)
	}
	if rec.StorageLocation != "" {
		t.Errorf("no storage location on failed save, got %q", rec.StorageLocation)
	}
}

func TestService_FailureReturnsFailedRecord(t *testing.T) {
	engine := &stubEngine{runErr: errors.New("decoder crashed")}
	saver := &fakeSaver{}
	svc := newTestService(t, engine, saver)
	path := writeTempAudio(t)

	rec, err := svc.Transcribe(context.Background(), path, Overrides{})
	if err == nil {
		t.Fatal("expected error")
	}
	if rec == nil || rec.Success {
		t.Fatalf("expected failed record, got %+v", rec)
	}
	if rec.Error == "" {
		t.Error("failed record should carry the error message")
	}
	if rec.Segments == nil {
		t.Error("failed record segments should be empty, not nil")
	}
	if len(saver.saved) != 0 {
		t.Error("failed records must never be persisted")
	}
}

func TestService_BatchContinuesPastFailures(t *testing.T) {
	engine := &segmentsEngine{handle: &segmentsHandle{
		segs: []RawSegment{{Start: 0, End: 1, Text: "ok"}},
		info: RunInfo{Language: "en"},
	}}
	svc := newTestService(t, engine, nil)

	good1 := writeTempAudio(t)
	missing := filepath.Join(t.TempDir(), "gone.mp4")
	good2 := writeTempAudio(t)

	results := svc.TranscribeBatch(context.Background(), []string{good1, missing, good2}, Overrides{})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Position != i+1 {
			t.Errorf("result %d: expected position %d, got %d", i, i+1, r.Position)
		}
	}
	if !results[0].Record.Success || !results[2].Record.Success {
		t.Error("entries around a failure should still succeed")
	}
	if results[1].Record.Success {
		t.Error("missing file entry should be a failed record")
	}
}
