// Package classify scores speech intervals against a target voiceprint and
// labels each one Target or Other.
package classify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-diarist/internal/segment"
	"github.com/alnah/go-diarist/internal/voiceprint"
)

// Label identifies which speaker an interval belongs to.
type Label string

// Speaker labels.
const (
	LabelTarget Label = "Target"
	LabelOther  Label = "Other"
)

// Segment is one classified speech interval. Immutable once produced.
type Segment struct {
	Interval   segment.Interval
	Similarity float64 // Cosine similarity to the target voiceprint, in [-1, 1].
	Label      Label
}

// Result holds the ordered classification output.
type Result struct {
	// Segments preserves the input interval order, minus dropped intervals.
	Segments []Segment

	// Dropped counts intervals removed because their sub-clip extraction or
	// embedding failed.
	Dropped int
}

// TargetSegments returns the Target-labeled segments, in order.
func (r Result) TargetSegments() []Segment {
	var out []Segment
	for _, s := range r.Segments {
		if s.Label == LabelTarget {
			out = append(out, s)
		}
	}
	return out
}

// Clipper extracts a sub-clip of a source recording.
type Clipper interface {
	Extract(ctx context.Context, src, dst string, start, end time.Duration) error
}

// Default classification parameters.
const (
	// DefaultSimilarityThreshold separates Target from Other speech for the
	// reference encoder's embedding space.
	DefaultSimilarityThreshold = 0.68

	// DefaultParallel bounds concurrent per-interval extraction+embedding.
	DefaultParallel = 4
)

// tempDirCreator creates temporary directories.
type tempDirCreator interface {
	MkdirTemp(dir, pattern string) (string, error)
}

// fileRemover removes files and directories.
type fileRemover interface {
	RemoveAll(path string) error
}

type osTempDirCreator struct{}

func (osTempDirCreator) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

type osFileRemover struct{}

func (osFileRemover) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Classifier labels merged speech intervals by similarity to a target
// voiceprint. Per-interval sub-clips live in one temporary directory that is
// removed when classification returns, on every path.
type Classifier struct {
	clipper   Clipper
	extractor voiceprint.Extractor
	threshold float64
	parallel  int
	log       *logrus.Logger

	// Injectable dependencies (default to OS implementations).
	tempDir tempDirCreator
	files   fileRemover
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithThreshold sets the similarity threshold for the Target label.
func WithThreshold(t float64) ClassifierOption {
	return func(c *Classifier) { c.threshold = t }
}

// WithParallel bounds the number of intervals processed concurrently.
func WithParallel(n int) ClassifierOption {
	return func(c *Classifier) {
		if n >= 1 {
			c.parallel = n
		}
	}
}

// WithLogger sets the logger for per-interval drop warnings.
func WithLogger(log *logrus.Logger) ClassifierOption {
	return func(c *Classifier) { c.log = log }
}

// WithTempDirCreator sets the temp directory creator (for testing).
func WithTempDirCreator(t tempDirCreator) ClassifierOption {
	return func(c *Classifier) { c.tempDir = t }
}

// WithFileRemover sets the file remover (for testing).
func WithFileRemover(f fileRemover) ClassifierOption {
	return func(c *Classifier) { c.files = f }
}

// NewClassifier creates a Classifier.
func NewClassifier(clipper Clipper, extractor voiceprint.Extractor, opts ...ClassifierOption) (*Classifier, error) {
	if clipper == nil {
		return nil, fmt.Errorf("clipper cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}

	c := &Classifier{
		clipper:   clipper,
		extractor: extractor,
		threshold: DefaultSimilarityThreshold,
		parallel:  DefaultParallel,
		log:       logrus.StandardLogger(),
		tempDir:   osTempDirCreator{},
		files:     osFileRemover{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify extracts each interval from the mixture, embeds it, scores it
// against target, and labels it. Output preserves input interval order.
// A similarity exactly equal to the threshold counts as Target.
//
// Per-interval failures (extraction or embedding) drop that interval with a
// logged warning; they never abort the remaining intervals. Only context
// cancellation fails the whole call.
func (c *Classifier) Classify(
	ctx context.Context,
	mixturePath string,
	target voiceprint.Voiceprint,
	intervals []segment.Interval,
) (Result, error) {
	if len(intervals) == 0 {
		return Result{}, nil
	}

	arena, err := c.tempDir.MkdirTemp("", "go-diarist-*")
	if err != nil {
		return Result{}, fmt.Errorf("create temp directory: %w", err)
	}
	defer func() { _ = c.files.RemoveAll(arena) }()

	// Slots keep completed work in interval order regardless of which
	// worker finishes first; nil marks a dropped interval.
	slots := make([]*Segment, len(intervals))
	sem := make(chan struct{}, c.parallel)

	g, ctx := errgroup.WithContext(ctx)

	for i, iv := range intervals {
		i, iv := i, iv
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			clipPath := filepath.Join(arena, fmt.Sprintf("segment_%03d.wav", i))
			if err := c.clipper.Extract(ctx, mixturePath, clipPath, iv.Start, iv.End); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.log.WithError(err).Warnf("dropping interval %s: extraction failed", iv)
				return nil
			}

			emb, err := c.extractor.Embed(ctx, clipPath)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.log.WithError(err).Warnf("dropping interval %s: embedding failed", iv)
				return nil
			}

			sim := voiceprint.Cosine(target, emb)
			label := LabelOther
			if sim >= c.threshold {
				label = LabelTarget
			}
			slots[i] = &Segment{Interval: iv, Similarity: sim, Label: label}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Segments: make([]Segment, 0, len(intervals))}
	for _, s := range slots {
		if s == nil {
			res.Dropped++
			continue
		}
		res.Segments = append(res.Segments, *s)
	}

	return res, nil
}
