package transcribe

import "context"

// RawSegment is a timed text span as emitted by the speech engine, before
// normalization. Engine-supplied text may carry boundary whitespace.
type RawSegment struct {
	Start float64 // seconds
	End   float64 // seconds
	Text  string
}

// RunInfo is per-run metadata reported by the engine when decoding starts.
type RunInfo struct {
	Language            string  // detected (or caller-forced) language code
	LanguageProbability float64 // detection confidence, 0 when language was forced
	Duration            float64 // reported audio duration in seconds
}

// SegmentStream is a single-pass, in-order stream of raw segments.
// Next returns io.EOF after the final segment. Streams are not restartable.
type SegmentStream interface {
	Next() (RawSegment, error)
}

// RunOpts are per-inference decoding options. The fixed decoding-stability
// parameters (temperature ladder, thresholds, repetition controls) live with
// the engine implementation, not here.
type RunOpts struct {
	Language  string // "" = auto-detect from audio
	BeamSize  int
	VADFilter bool
	VAD       VADParams
}

// VADParams tune the voice-activity pre-filter that skips non-speech audio.
type VADParams struct {
	Threshold            float64
	MinSpeechDurationMs  int
	MaxSpeechDurationS   float64 // <= 0 means unbounded
	MinSilenceDurationMs int
	SpeechPadMs          int
}

// ModelSpec identifies a loadable model variant. Two specs are interchangeable
// iff all three fields match; any difference forces a reload.
type ModelSpec struct {
	Model       string // tiny, base, small, medium, large-v2, large-v3
	Device      string // cpu or cuda (never "auto" past parameter resolution)
	ComputeType string // int8, float16, float32 (never "auto")
}

// Engine constructs loaded model instances. Loading is blocking and may take
// seconds; callers defer it until first use.
type Engine interface {
	Load(ctx context.Context, spec ModelSpec) (Handle, error)
}

// Handle is a loaded model instance. Transcribe blocks for the duration of
// inference and cannot be cooperatively interrupted mid-run; the context is
// honored only between runs. Close releases the instance.
type Handle interface {
	Transcribe(ctx context.Context, audioPath string, opts RunOpts) (RunInfo, SegmentStream, error)
	Close() error
}
