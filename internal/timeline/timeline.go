// Package timeline assembles classified segments into the final diarization
// record and persists it as JSON.
package timeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alnah/go-diarist/internal/classify"
)

// Entry is one externally visible diarization record.
// Confidence is reserved for a transcription-confidence source and is always
// null at this layer.
type Entry struct {
	Speaker    string   `json:"speaker"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	Similarity float64  `json:"similarity"`
}

// Assemble maps classified segments to timeline entries, preserving order.
// texts supplies transcripts for Target-labeled segments, consumed in order;
// Other-labeled segments always get empty text and are still included. It is
// a pure structural mapping: no reordering, no filtering.
func Assemble(segments []classify.Segment, texts []string) []Entry {
	entries := make([]Entry, 0, len(segments))
	ti := 0

	for _, s := range segments {
		text := ""
		if s.Label == classify.LabelTarget && ti < len(texts) {
			text = texts[ti]
			ti++
		}
		entries = append(entries, Entry{
			Speaker:    string(s.Label),
			Start:      s.Interval.Start.Seconds(),
			End:        s.Interval.End.Seconds(),
			Text:       text,
			Similarity: s.Similarity,
		})
	}

	return entries
}

// FilterTarget returns only the Target-speaker entries, in order.
// Filtering is an explicit separate step, never part of assembly.
func FilterTarget(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Speaker == string(classify.LabelTarget) {
			out = append(out, e)
		}
	}
	return out
}

// WriteJSON persists the timeline to path as an indented JSON array.
func WriteJSON(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	data = append(data, '\n')

	// #nosec G306 -- user-facing result file with standard permissions
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write timeline: %w", err)
	}
	return nil
}
