package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/snarg/ttscribe/internal/metrics"
)

// Adapter owns at most one loaded model instance at a time and serializes
// inference against it. The handle is created lazily on first use and
// replaced — not updated — whenever the requested model, device, or
// quantization differs from what is currently loaded.
type Adapter struct {
	engine Engine
	log    zerolog.Logger

	mu     sync.Mutex
	handle Handle
	loaded ModelSpec
}

// NewAdapter creates an adapter around an engine. No model is loaded until
// the first Transcribe call.
func NewAdapter(engine Engine, log zerolog.Logger) *Adapter {
	return &Adapter{engine: engine, log: log}
}

// Transcribe runs inference on a local media file with the given resolved
// configuration. The file's existence is re-validated before any model load
// so a bad path never pays the load cost; a missing file reports an error
// wrapping fs.ErrNotExist. A cached instance that turns out to be gone is
// replaced and the request retried once. Engine failures never escape as
// panics; they are returned as errors for the boundary layer to classify.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string, cfg EffectiveConfig) (RunInfo, SegmentStream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := os.Stat(audioPath); err != nil {
		if os.IsNotExist(err) {
			return RunInfo{}, nil, fmt.Errorf("media file %q: %w", audioPath, fs.ErrNotExist)
		}
		return RunInfo{}, nil, fmt.Errorf("stat media file: %w", err)
	}

	if err := a.ensureLoaded(ctx, cfg.Spec()); err != nil {
		return RunInfo{}, nil, fmt.Errorf("load model: %w", err)
	}

	a.log.Info().
		Str("file", audioPath).
		Str("model", cfg.Model).
		Str("language", cfg.Language).
		Int("beam_size", cfg.BeamSize).
		Bool("vad_filter", cfg.VADFilter).
		Msg("transcribing")

	info, stream, err := a.handle.Transcribe(ctx, audioPath, cfg.RunOpts())
	if err != nil && errors.Is(err, ErrEngineUnavailable) {
		// The instance itself is gone (crashed mid-stream on an earlier
		// request, or died just now). Drop it, load a fresh one, and retry
		// this request once instead of surfacing an avoidable failure.
		a.log.Warn().Err(err).Msg("model instance unavailable, reloading")
		a.dropHandle()
		if err = a.ensureLoaded(ctx, cfg.Spec()); err != nil {
			return RunInfo{}, nil, fmt.Errorf("load model: %w", err)
		}
		info, stream, err = a.handle.Transcribe(ctx, audioPath, cfg.RunOpts())
		if err != nil && errors.Is(err, ErrEngineUnavailable) {
			a.log.Error().Err(err).Msg("replacement model instance also unusable")
			a.dropHandle()
		}
	}
	if err != nil {
		return RunInfo{}, nil, fmt.Errorf("inference: %w", err)
	}
	return info, stream, nil
}

// dropHandle closes and clears the cached instance. Caller holds a.mu.
func (a *Adapter) dropHandle() {
	if a.handle == nil {
		return
	}
	a.handle.Close()
	a.handle = nil
	a.loaded = ModelSpec{}
}

// Close releases the currently loaded model, if any.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.handle == nil {
		return nil
	}
	err := a.handle.Close()
	a.handle = nil
	a.loaded = ModelSpec{}
	return err
}

// Loaded reports the spec of the currently held model instance, if one is
// loaded. Exposed for the health endpoint.
func (a *Adapter) Loaded() (ModelSpec, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded, a.handle != nil
}

// ensureLoaded applies the reload policy: load when nothing is held, replace
// when any of model/device/quantization changed, otherwise keep the current
// instance. A failed load leaves the slot empty. Caller holds a.mu.
func (a *Adapter) ensureLoaded(ctx context.Context, spec ModelSpec) error {
	if a.handle != nil && a.loaded == spec {
		return nil
	}

	if a.handle != nil {
		a.log.Info().
			Str("old_model", a.loaded.Model).
			Str("new_model", spec.Model).
			Str("device", spec.Device).
			Str("compute_type", spec.ComputeType).
			Msg("replacing loaded model")
		a.dropHandle()
	}

	a.log.Info().
		Str("model", spec.Model).
		Str("device", spec.Device).
		Str("compute_type", spec.ComputeType).
		Msg("loading model")

	h, err := a.engine.Load(ctx, spec)
	if err != nil {
		return err
	}

	a.handle = h
	a.loaded = spec
	metrics.ModelLoadsTotal.Inc()
	return nil
}
