// Package segment defines speech interval types and the gap-merging pass
// applied to voice activity detection output.
package segment

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/alnah/go-diarist/internal/format"
)

// Interval is a span of detected speech within a recording.
// Produced by the segmenter in time order; immutable once created.
type Interval struct {
	Start time.Duration // Offset of the first speech frame.
	End   time.Duration // Offset one frame past the last speech frame.
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End - i.Start
}

// String returns a human-readable representation for logging.
func (i Interval) String() string {
	return fmt.Sprintf("%s-%s", format.Seconds(i.Start), format.Seconds(i.End))
}

// Merge fuses intervals separated by a gap strictly smaller than threshold.
// The input does not need to be sorted; the result is always sorted by start
// and non-overlapping. Merging is idempotent: re-merging an already merged
// sequence with the same threshold returns the same sequence.
func Merge(intervals []Interval, threshold time.Duration) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := slices.Clone(intervals)
	slices.SortFunc(sorted, func(a, b Interval) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})

	merged := make([]Interval, 0, len(sorted))
	merged = append(merged, sorted[0])

	for _, cur := range sorted[1:] {
		last := &merged[len(merged)-1]
		if cur.Start-last.End < threshold {
			// Keep the later end so overlapping input cannot shrink a span.
			last.End = max(last.End, cur.End)
		} else {
			merged = append(merged, cur)
		}
	}

	return merged
}
