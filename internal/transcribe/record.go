package transcribe

// Segment is one ordered, timed span of recognized speech. Index is assigned
// in emission order during normalization and Duration is always End - Start;
// neither is taken from the engine.
type Segment struct {
	Index    int     `json:"id"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

// Record is the result of one transcription run and the unit persisted by the
// store. Field names match the on-disk JSON layout.
type Record struct {
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`

	// Derived: NumSegments == len(Segments); Duration is the last segment's
	// End, 0 when there are no segments.
	NumSegments int     `json:"num_segments"`
	Duration    float64 `json:"duration"`

	LanguageProbability float64 `json:"language_probability,omitempty"`
	AudioDuration       float64 `json:"duration_info,omitempty"`

	// StorageLocation is set only after a successful persist. SaveError is
	// advisory: a failed save does not demote an otherwise-successful run.
	StorageLocation string `json:"transcription_file,omitempty"`
	SaveError       string `json:"save_error,omitempty"`
}

// FailedRecord builds the record shape for a run that produced no output.
func FailedRecord(err error) *Record {
	return &Record{
		Success:  false,
		Error:    err.Error(),
		Text:     "",
		Segments: []Segment{},
	}
}
