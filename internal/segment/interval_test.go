package segment_test

import (
	"slices"
	"testing"
	"time"

	"github.com/alnah/go-diarist/internal/segment"
)

func sec(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ---------------------------------------------------------------------------
// Interval.Duration - Duration calculation
// ---------------------------------------------------------------------------

func TestInterval_Duration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		interval segment.Interval
		want     time.Duration
	}{
		{
			name:     "zero duration",
			interval: segment.Interval{Start: 0, End: 0},
			want:     0,
		},
		{
			name:     "one second",
			interval: segment.Interval{Start: 0, End: time.Second},
			want:     time.Second,
		},
		{
			name:     "offset span",
			interval: segment.Interval{Start: 5 * time.Second, End: 8 * time.Second},
			want:     3 * time.Second,
		},
		{
			name:     "subsecond precision",
			interval: segment.Interval{Start: 100 * time.Millisecond, End: 350 * time.Millisecond},
			want:     250 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.interval.Duration()
			if got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Interval.String - String representation
// ---------------------------------------------------------------------------

func TestInterval_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		interval segment.Interval
		want     string
	}{
		{
			name:     "whole seconds",
			interval: segment.Interval{Start: 0, End: 2 * time.Second},
			want:     "0.00s-2.00s",
		},
		{
			name:     "fractional boundaries",
			interval: segment.Interval{Start: 1500 * time.Millisecond, End: 3750 * time.Millisecond},
			want:     "1.50s-3.75s",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.interval.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Merge - Gap merging
// ---------------------------------------------------------------------------

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		intervals []segment.Interval
		threshold time.Duration
		want      []segment.Interval
	}{
		{
			name:      "empty input",
			intervals: nil,
			threshold: sec(0.2),
			want:      nil,
		},
		{
			name:      "single interval unchanged",
			intervals: []segment.Interval{{Start: sec(1), End: sec(2)}},
			threshold: sec(0.2),
			want:      []segment.Interval{{Start: sec(1), End: sec(2)}},
		},
		{
			name: "adjacent intervals merge, distant stay",
			intervals: []segment.Interval{
				{Start: sec(0), End: sec(2)},
				{Start: sec(2), End: sec(4)},
				{Start: sec(6), End: sec(8)},
			},
			threshold: sec(0.2),
			want: []segment.Interval{
				{Start: sec(0), End: sec(4)},
				{Start: sec(6), End: sec(8)},
			},
		},
		{
			name: "gap equal to threshold does not merge",
			intervals: []segment.Interval{
				{Start: sec(0), End: sec(1)},
				{Start: sec(1.2), End: sec(2)},
			},
			threshold: sec(0.2),
			want: []segment.Interval{
				{Start: sec(0), End: sec(1)},
				{Start: sec(1.2), End: sec(2)},
			},
		},
		{
			name: "gap below threshold merges",
			intervals: []segment.Interval{
				{Start: sec(0), End: sec(1)},
				{Start: sec(1.1), End: sec(2)},
			},
			threshold: sec(0.2),
			want: []segment.Interval{
				{Start: sec(0), End: sec(2)},
			},
		},
		{
			name: "unsorted input is sorted first",
			intervals: []segment.Interval{
				{Start: sec(6), End: sec(8)},
				{Start: sec(0), End: sec(2)},
				{Start: sec(2), End: sec(4)},
			},
			threshold: sec(0.2),
			want: []segment.Interval{
				{Start: sec(0), End: sec(4)},
				{Start: sec(6), End: sec(8)},
			},
		},
		{
			name: "contained interval cannot shrink the span",
			intervals: []segment.Interval{
				{Start: sec(0), End: sec(5)},
				{Start: sec(1), End: sec(2)},
			},
			threshold: sec(0.2),
			want: []segment.Interval{
				{Start: sec(0), End: sec(5)},
			},
		},
		{
			name: "chain of close intervals collapses to one",
			intervals: []segment.Interval{
				{Start: sec(0), End: sec(1)},
				{Start: sec(1.1), End: sec(2)},
				{Start: sec(2.1), End: sec(3)},
			},
			threshold: sec(0.2),
			want: []segment.Interval{
				{Start: sec(0), End: sec(3)},
			},
		},
		{
			name: "zero threshold merges only overlapping",
			intervals: []segment.Interval{
				{Start: sec(0), End: sec(2)},
				{Start: sec(1), End: sec(3)},
				{Start: sec(3), End: sec(4)},
			},
			threshold: 0,
			want: []segment.Interval{
				{Start: sec(0), End: sec(3)},
				{Start: sec(3), End: sec(4)},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := segment.Merge(tt.intervals, tt.threshold)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Merge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	input := []segment.Interval{
		{Start: sec(0), End: sec(1)},
		{Start: sec(1.1), End: sec(2)},
		{Start: sec(5), End: sec(6)},
	}
	threshold := sec(0.2)

	once := segment.Merge(input, threshold)
	twice := segment.Merge(once, threshold)

	if !slices.Equal(once, twice) {
		t.Errorf("re-merging changed result: first %v, second %v", once, twice)
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	input := []segment.Interval{
		{Start: sec(6), End: sec(8)},
		{Start: sec(0), End: sec(2)},
	}
	original := slices.Clone(input)

	_ = segment.Merge(input, sec(0.2))

	if !slices.Equal(input, original) {
		t.Errorf("Merge mutated its input: %v, want %v", input, original)
	}
}
