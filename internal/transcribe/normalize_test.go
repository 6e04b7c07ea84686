package transcribe

import (
	"errors"
	"io"
	"testing"
)

// sliceStream replays a fixed set of raw segments, optionally failing
// partway through.
type sliceStream struct {
	segs  []RawSegment
	pos   int
	errAt int // fail when pos reaches errAt (ignored when negative)
	err   error
}

func (s *sliceStream) Next() (RawSegment, error) {
	if s.err != nil && s.pos == s.errAt {
		return RawSegment{}, s.err
	}
	if s.pos >= len(s.segs) {
		return RawSegment{}, io.EOF
	}
	seg := s.segs[s.pos]
	s.pos++
	return seg, nil
}

func TestNormalize_IndicesAndDurations(t *testing.T) {
	stream := &sliceStream{segs: []RawSegment{
		{Start: 0.0, End: 2.5, Text: "hello "},
		{Start: 2.5, End: 4.0, Text: " world"},
		{Start: 4.2, End: 7.1, Text: "again"},
	}, errAt: -1}

	rec, err := Normalize(RunInfo{Language: "en", LanguageProbability: 0.98, Duration: 7.5}, stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.NumSegments != 3 || len(rec.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(rec.Segments))
	}
	for i, seg := range rec.Segments {
		if seg.Index != i {
			t.Errorf("segment %d: expected index %d, got %d", i, i, seg.Index)
		}
	}
	if got := rec.Segments[2].Duration; got != 7.1-4.2 {
		t.Errorf("expected duration end-start, got %v", got)
	}
	if rec.Text != "hello world again" {
		t.Errorf("expected trimmed joined text, got %q", rec.Text)
	}
	if rec.Duration != 7.1 {
		t.Errorf("expected record duration 7.1 (last segment end), got %v", rec.Duration)
	}
	if rec.Language != "en" || rec.LanguageProbability != 0.98 || rec.AudioDuration != 7.5 {
		t.Errorf("run info not carried: %+v", rec)
	}
	if !rec.Success {
		t.Error("expected success")
	}
}

func TestNormalize_EmptyStreamIsSuccess(t *testing.T) {
	rec, err := Normalize(RunInfo{Language: "en"}, &sliceStream{errAt: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Success {
		t.Error("empty stream should still be a successful run")
	}
	if rec.Segments == nil || len(rec.Segments) != 0 {
		t.Errorf("expected empty non-nil segments, got %#v", rec.Segments)
	}
	if rec.Text != "" || rec.Duration != 0 || rec.NumSegments != 0 {
		t.Errorf("expected zeroed derived fields, got %+v", rec)
	}
}

func TestNormalize_MidStreamErrorPropagates(t *testing.T) {
	streamErr := errors.New("decoder died")
	stream := &sliceStream{
		segs:  []RawSegment{{Start: 0, End: 1, Text: "partial"}},
		errAt: 1,
		err:   streamErr,
	}

	rec, err := Normalize(RunInfo{}, stream)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, streamErr) {
		t.Errorf("expected wrapped stream error, got %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record on stream error, got %+v", rec)
	}
}
