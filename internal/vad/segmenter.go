package vad

import (
	"fmt"
	"time"

	"github.com/alnah/go-diarist/internal/segment"
)

// Default segmentation parameters.
const (
	// DefaultFrameDuration balances boundary precision against per-frame
	// classification cost; 30 ms is the largest frame WebRTC VAD accepts.
	DefaultFrameDuration = 30 * time.Millisecond

	// DefaultMinDuration drops blips shorter than a spoken syllable.
	DefaultMinDuration = 200 * time.Millisecond

	// DefaultAggressiveness is a middle-ground WebRTC VAD mode.
	DefaultAggressiveness = 2
)

// Config holds segmentation parameters.
type Config struct {
	// FrameDuration is the fixed frame size; must be 10, 20, or 30 ms.
	// Zero selects DefaultFrameDuration.
	FrameDuration time.Duration

	// MinDuration is the minimum length of an emitted interval; shorter
	// candidate intervals are dropped entirely. Zero selects
	// DefaultMinDuration.
	MinDuration time.Duration
}

// normalize applies defaults and validates the configuration.
func (c *Config) normalize() error {
	if c.FrameDuration == 0 {
		c.FrameDuration = DefaultFrameDuration
	}
	if c.MinDuration == 0 {
		c.MinDuration = DefaultMinDuration
	}

	switch c.FrameDuration {
	case 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond:
	default:
		return fmt.Errorf("%w: got %v", ErrInvalidFrameDuration, c.FrameDuration)
	}
	if c.MinDuration < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidMinDuration, c.MinDuration)
	}

	return nil
}

// Segmenter partitions a waveform into fixed-size frames, classifies each
// frame with its FrameClassifier, and emits contiguous speech runs as
// intervals.
type Segmenter struct {
	classifier FrameClassifier
	cfg        Config
}

// NewSegmenter creates a Segmenter with the given frame classification
// strategy.
func NewSegmenter(classifier FrameClassifier, cfg Config) (*Segmenter, error) {
	if classifier == nil {
		return nil, fmt.Errorf("frame classifier cannot be nil")
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &Segmenter{classifier: classifier, cfg: cfg}, nil
}

// Detect returns the speech intervals found in samples, sorted by start and
// non-overlapping, each at least MinDuration long. A trailing frame shorter
// than the frame size is discarded unclassified; a speech run still open at
// the end of the recording is closed at the final frame boundary.
func (s *Segmenter) Detect(samples []float64, sampleRate int) ([]segment.Interval, error) {
	frameSize := int(float64(sampleRate) * s.cfg.FrameDuration.Seconds())
	if frameSize <= 0 {
		return nil, fmt.Errorf("%w: frame %v at %d Hz is empty",
			ErrInvalidFrameDuration, s.cfg.FrameDuration, sampleRate)
	}

	numFrames := len(samples) / frameSize
	speech := make([]bool, numFrames)
	for i := 0; i < numFrames; i++ {
		frame := samples[i*frameSize : (i+1)*frameSize]
		active, err := s.classifier.IsSpeech(frame, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("classify frame %d: %w", i, err)
		}
		speech[i] = active
	}

	var intervals []segment.Interval
	runStart := -1

	emit := func(startFrame, endFrame int) {
		iv := segment.Interval{
			Start: time.Duration(startFrame) * s.cfg.FrameDuration,
			End:   time.Duration(endFrame) * s.cfg.FrameDuration,
		}
		if iv.Duration() >= s.cfg.MinDuration {
			intervals = append(intervals, iv)
		}
	}

	for i, active := range speech {
		switch {
		case active && runStart < 0:
			runStart = i
		case !active && runStart >= 0:
			emit(runStart, i)
			runStart = -1
		}
	}
	if runStart >= 0 {
		emit(runStart, numFrames)
	}

	return intervals, nil
}
