package transcribe

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

//go:embed assets/faster_whisper.py
var fwScript []byte

// ErrEngineUnavailable marks errors caused by the engine process being gone
// rather than by the request itself. The adapter drops its cached handle when
// it sees this, so the next call triggers a fresh load.
var ErrEngineUnavailable = errors.New("engine unavailable")

// StabilityParams are the fixed decoding-stability settings applied to every
// inference run. The temperature fallback ladder itself lives in the helper.
type StabilityParams struct {
	CompressionRatioThreshold float64
	LogProbThreshold          float64
	NoSpeechThreshold         float64
	Patience                  float64
	LengthPenalty             float64
	RepetitionPenalty         float64
	NoRepeatNgramSize         int
	MaxInitialTimestamp       float64
}

// FasterWhisperOptions configure the helper-process engine.
type FasterWhisperOptions struct {
	Python     string // python interpreter, default "python3"
	CPUThreads int    // 0 = library default
	NumWorkers int
	Stability  StabilityParams
	Log        zerolog.Logger
}

// FasterWhisperEngine runs inference through a persistent faster-whisper
// helper process. Each Load spawns one helper with the model constructed up
// front; requests and results travel as newline-delimited JSON, with segments
// forwarded as the model emits them so the stream stays lazy end to end.
type FasterWhisperEngine struct {
	opts FasterWhisperOptions

	scriptOnce sync.Once
	scriptPath string
	scriptErr  error
}

// NewFasterWhisperEngine creates the engine. No process is spawned until Load.
func NewFasterWhisperEngine(opts FasterWhisperOptions) *FasterWhisperEngine {
	if opts.Python == "" {
		opts.Python = "python3"
	}
	return &FasterWhisperEngine{opts: opts}
}

// Load spawns a helper for the given model spec and blocks until the model is
// constructed (the helper's ready line) or ctx expires.
func (e *FasterWhisperEngine) Load(ctx context.Context, spec ModelSpec) (Handle, error) {
	script, err := e.materializeScript()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(e.opts.Python, script,
		"--model", spec.Model,
		"--device", spec.Device,
		"--compute-type", spec.ComputeType,
		"--cpu-threads", strconv.Itoa(e.opts.CPUThreads),
		"--num-workers", strconv.Itoa(e.opts.NumWorkers),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start helper: %w", err)
	}

	log := e.opts.Log.With().
		Int("pid", cmd.Process.Pid).
		Str("model", spec.Model).
		Str("device", spec.Device).
		Str("compute_type", spec.ComputeType).
		Logger()

	// Forward helper diagnostics (model download progress etc.) to the log.
	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			log.Debug().Str("stream", "stderr").Msg(sc.Text())
		}
	}()

	h := &fwHandle{
		cmd:       cmd,
		stdin:     stdin,
		out:       bufio.NewReader(stdout),
		stability: e.opts.Stability,
		log:       log,
	}

	msg, err := h.readMessage(ctx)
	if err != nil {
		h.kill()
		return nil, fmt.Errorf("helper startup: %w", err)
	}
	if msg.Type != "ready" {
		h.kill()
		if msg.Type == "error" {
			return nil, errors.New(msg.Error)
		}
		return nil, fmt.Errorf("unexpected helper message %q during startup", msg.Type)
	}

	log.Info().Msg("model loaded")
	return h, nil
}

// materializeScript writes the embedded helper to a stable temp path once per
// process.
func (e *FasterWhisperEngine) materializeScript() (string, error) {
	e.scriptOnce.Do(func() {
		path := filepath.Join(os.TempDir(), "ttscribe_faster_whisper.py")
		if err := os.WriteFile(path, fwScript, 0o755); err != nil {
			e.scriptErr = fmt.Errorf("write helper script: %w", err)
			return
		}
		e.scriptPath = path
	})
	return e.scriptPath, e.scriptErr
}

// fwRequest is one inference request line sent to the helper.
type fwRequest struct {
	Audio     string `json:"audio"`
	Language  string `json:"language,omitempty"`
	BeamSize  int    `json:"beam_size"`
	VADFilter bool   `json:"vad_filter"`
	VAD       *fwVAD `json:"vad,omitempty"`

	CompressionRatioThreshold float64 `json:"compression_ratio_threshold"`
	LogProbThreshold          float64 `json:"log_prob_threshold"`
	NoSpeechThreshold         float64 `json:"no_speech_threshold"`
	Patience                  float64 `json:"patience"`
	LengthPenalty             float64 `json:"length_penalty"`
	RepetitionPenalty         float64 `json:"repetition_penalty"`
	NoRepeatNgramSize         int     `json:"no_repeat_ngram_size"`
	MaxInitialTimestamp       float64 `json:"max_initial_timestamp"`
}

type fwVAD struct {
	Threshold            float64 `json:"threshold"`
	MinSpeechDurationMs  int     `json:"min_speech_duration_ms"`
	MaxSpeechDurationS   float64 `json:"max_speech_duration_s"`
	MinSilenceDurationMs int     `json:"min_silence_duration_ms"`
	SpeechPadMs          int     `json:"speech_pad_ms"`
}

// fwMessage is one response line from the helper.
type fwMessage struct {
	Type                string  `json:"type"` // ready, info, segment, end, error
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
	Duration            float64 `json:"duration"`
	Start               float64 `json:"start"`
	End                 float64 `json:"end"`
	Text                string  `json:"text"`
	Error               string  `json:"error"`
}

// fwHandle is one live helper process. The adapter serializes access, so no
// locking here; a stream must be drained before the next Transcribe.
type fwHandle struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	out       *bufio.Reader
	stability StabilityParams
	log       zerolog.Logger
	dead      bool
}

func (h *fwHandle) Transcribe(ctx context.Context, audioPath string, opts RunOpts) (RunInfo, SegmentStream, error) {
	if h.dead {
		return RunInfo{}, nil, fmt.Errorf("helper process exited: %w", ErrEngineUnavailable)
	}

	req := fwRequest{
		Audio:                     audioPath,
		Language:                  opts.Language,
		BeamSize:                  opts.BeamSize,
		VADFilter:                 opts.VADFilter,
		CompressionRatioThreshold: h.stability.CompressionRatioThreshold,
		LogProbThreshold:          h.stability.LogProbThreshold,
		NoSpeechThreshold:         h.stability.NoSpeechThreshold,
		Patience:                  h.stability.Patience,
		LengthPenalty:             h.stability.LengthPenalty,
		RepetitionPenalty:         h.stability.RepetitionPenalty,
		NoRepeatNgramSize:         h.stability.NoRepeatNgramSize,
		MaxInitialTimestamp:       h.stability.MaxInitialTimestamp,
	}
	if opts.VADFilter {
		req.VAD = &fwVAD{
			Threshold:            opts.VAD.Threshold,
			MinSpeechDurationMs:  opts.VAD.MinSpeechDurationMs,
			MaxSpeechDurationS:   opts.VAD.MaxSpeechDurationS,
			MinSilenceDurationMs: opts.VAD.MinSilenceDurationMs,
			SpeechPadMs:          opts.VAD.SpeechPadMs,
		}
	}

	if err := json.NewEncoder(h.stdin).Encode(req); err != nil {
		h.dead = true
		return RunInfo{}, nil, fmt.Errorf("write request: %v: %w", err, ErrEngineUnavailable)
	}

	msg, err := h.readMessage(ctx)
	if err != nil {
		h.dead = true
		return RunInfo{}, nil, fmt.Errorf("read response: %v: %w", err, ErrEngineUnavailable)
	}
	switch msg.Type {
	case "info":
		info := RunInfo{
			Language:            msg.Language,
			LanguageProbability: msg.LanguageProbability,
			Duration:            msg.Duration,
		}
		return info, &fwStream{h: h, ctx: ctx}, nil
	case "error":
		// Request-level failure; the helper stays alive for the next request.
		return RunInfo{}, nil, errors.New(msg.Error)
	default:
		h.dead = true
		return RunInfo{}, nil, fmt.Errorf("unexpected helper message %q: %w", msg.Type, ErrEngineUnavailable)
	}
}

// Close asks the helper to exit by closing stdin, then waits briefly before
// killing it.
func (h *fwHandle) Close() error {
	h.dead = true
	h.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- h.cmd.Wait() }()

	select {
	case err := <-done:
		h.log.Info().Msg("helper stopped")
		return err
	case <-time.After(5 * time.Second):
		h.log.Warn().Msg("helper did not exit, killing")
		h.cmd.Process.Kill()
		return <-done
	}
}

func (h *fwHandle) kill() {
	h.dead = true
	h.stdin.Close()
	if h.cmd.Process != nil {
		h.cmd.Process.Kill()
	}
	h.cmd.Wait()
}

// readMessage reads one JSON line from the helper. It honors ctx only for
// abandoning the wait; the helper itself is not interrupted.
func (h *fwHandle) readMessage(ctx context.Context) (fwMessage, error) {
	type lineResult struct {
		msg fwMessage
		err error
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := h.out.ReadBytes('\n')
		if err != nil {
			ch <- lineResult{err: fmt.Errorf("helper output: %w", err)}
			return
		}
		var msg fwMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			ch <- lineResult{err: fmt.Errorf("decode helper output: %w", err)}
			return
		}
		ch <- lineResult{msg: msg}
	}()

	select {
	case r := <-ch:
		return r.msg, r.err
	case <-ctx.Done():
		return fwMessage{}, ctx.Err()
	}
}

// fwStream adapts the helper's per-segment lines to a SegmentStream.
type fwStream struct {
	h    *fwHandle
	ctx  context.Context
	done bool
}

func (s *fwStream) Next() (RawSegment, error) {
	if s.done {
		return RawSegment{}, io.EOF
	}

	msg, err := s.h.readMessage(s.ctx)
	if err != nil {
		s.h.dead = true
		s.done = true
		return RawSegment{}, fmt.Errorf("read segment: %v: %w", err, ErrEngineUnavailable)
	}

	switch msg.Type {
	case "segment":
		return RawSegment{Start: msg.Start, End: msg.End, Text: msg.Text}, nil
	case "end":
		s.done = true
		return RawSegment{}, io.EOF
	case "error":
		s.done = true
		return RawSegment{}, errors.New(msg.Error)
	default:
		s.h.dead = true
		s.done = true
		return RawSegment{}, fmt.Errorf("unexpected helper message %q: %w", msg.Type, ErrEngineUnavailable)
	}
}
