package transcribe

// Defaults are the process-wide transcription settings, loaded once from
// configuration. Device and ComputeType may be "auto" here; resolution
// replaces them with concrete values.
type Defaults struct {
	Model       string
	Device      string // "auto", "cpu", or "cuda"
	ComputeType string // "auto", "int8", "float16", or "float32"
	Language    string // "" = auto-detect
	BeamSize    int
	VADFilter   bool
	VAD         VADParams
}

// Overrides are optional caller-supplied values for a single request.
// Zero/nil fields fall back to the process defaults. Numeric bounds are
// enforced by the request-validation layer before resolution.
type Overrides struct {
	Model       string
	Device      string
	ComputeType string
	Language    string
	BeamSize    *int
	VADFilter   *bool
	VAD         *VADParams
}

// EffectiveConfig is a fully resolved per-request configuration. Every field
// is concrete; "auto" never survives resolution for Device or ComputeType.
// Language "" is the deliberate auto-detect signal to the engine.
type EffectiveConfig struct {
	Model       string
	Device      string
	ComputeType string
	Language    string
	BeamSize    int
	VADFilter   bool
	VAD         VADParams
}

// Spec returns the model-identity portion of the config, the reload key for
// the adapter's single-slot cache.
func (c EffectiveConfig) Spec() ModelSpec {
	return ModelSpec{Model: c.Model, Device: c.Device, ComputeType: c.ComputeType}
}

// RunOpts returns the per-inference options derived from the config.
func (c EffectiveConfig) RunOpts() RunOpts {
	return RunOpts{
		Language:  c.Language,
		BeamSize:  c.BeamSize,
		VADFilter: c.VADFilter,
		VAD:       c.VAD,
	}
}

// Resolve merges caller overrides over process defaults into one effective
// configuration. Explicit values win per field; device falls back to hardware
// detection via detect (nil = DetectDevice), and compute type falls back to
// the fastest numerically-safe mode for the resolved device: float16 on cuda,
// int8 on cpu. Resolution is total — there are no error conditions.
func Resolve(d Defaults, o Overrides, detect func() string) EffectiveConfig {
	if detect == nil {
		detect = DetectDevice
	}

	cfg := EffectiveConfig{
		Model:     pick(o.Model, d.Model),
		Language:  pick(o.Language, d.Language),
		BeamSize:  d.BeamSize,
		VADFilter: d.VADFilter,
		VAD:       d.VAD,
	}
	if o.BeamSize != nil {
		cfg.BeamSize = *o.BeamSize
	}
	if o.VADFilter != nil {
		cfg.VADFilter = *o.VADFilter
	}
	if o.VAD != nil {
		cfg.VAD = *o.VAD
	}

	device := pick(o.Device, d.Device)
	if device == "" || device == "auto" {
		device = detect()
	}
	cfg.Device = device

	compute := pick(o.ComputeType, d.ComputeType)
	if compute == "" || compute == "auto" {
		if device == "cuda" {
			compute = "float16"
		} else {
			compute = "int8"
		}
	}
	cfg.ComputeType = compute

	return cfg
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
