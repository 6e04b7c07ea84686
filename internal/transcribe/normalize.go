package transcribe

import (
	"fmt"
	"io"
	"strings"
)

// Normalize materializes a raw segment stream into a Record. The stream is
// consumed in a single pass; indices are assigned in emission order and each
// segment's duration is recomputed as end - start, regardless of anything the
// engine reported. An empty stream is a valid outcome (silence or a
// non-speech file), not an error.
func Normalize(info RunInfo, stream SegmentStream) (*Record, error) {
	segments := []Segment{}
	var texts []string

	for i := 0; ; i++ {
		raw, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("segment stream: %w", err)
		}

		text := strings.TrimSpace(raw.Text)
		segments = append(segments, Segment{
			Index:    i,
			Start:    raw.Start,
			End:      raw.End,
			Text:     text,
			Duration: raw.End - raw.Start,
		})
		texts = append(texts, text)
	}

	rec := &Record{
		Success:             true,
		Text:                strings.Join(texts, " "),
		Segments:            segments,
		Language:            info.Language,
		NumSegments:         len(segments),
		LanguageProbability: info.LanguageProbability,
		AudioDuration:       info.Duration,
	}
	if n := len(segments); n > 0 {
		rec.Duration = segments[n-1].End
	}
	return rec, nil
}
