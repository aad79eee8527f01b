package ffmpeg

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CanonicalRate is the sample rate all audio is resampled to before
// segmentation and embedding.
const CanonicalRate = 16000

// Media runs FFmpeg media operations against a resolved binary.
type Media struct {
	ffmpegPath string
	cmd        commandRunner
}

// MediaOption configures a Media.
type MediaOption func(*Media)

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(r commandRunner) MediaOption {
	return func(m *Media) { m.cmd = r }
}

// NewMedia creates a Media for the given ffmpeg binary.
func NewMedia(ffmpegPath string, opts ...MediaOption) (*Media, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ErrNotFound)
	}
	m := &Media{
		ffmpegPath: ffmpegPath,
		cmd:        osCommandRunner{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Decode reads any supported audio file as mono float samples in [-1, 1],
// resampled to CanonicalRate. Unreadable or corrupt input fails with
// ErrAudioRead; there is no partial output.
func (m *Media) Decode(ctx context.Context, path string) ([]float64, int, error) {
	args := []string{
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", CanonicalRate),
		"-",
	}

	pcm, err := m.cmd.Output(ctx, m.ffmpegPath, args)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v%s", ErrAudioRead, path, err, stderrExcerpt(err))
	}

	return decodePCM16(pcm), CanonicalRate, nil
}

// Extract stream-copies the [start, end) span of src into dst.
func (m *Media) Extract(ctx context.Context, src, dst string, start, end time.Duration) error {
	args := []string{
		"-y",
		"-i", src,
		"-ss", formatTime(start),
		"-to", formatTime(end),
		"-c", "copy",
		dst,
	}

	output, err := m.cmd.CombinedOutput(ctx, m.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: %s-%s from %s: %v\nOutput: %s",
			ErrExtraction, formatTime(start), formatTime(end), src, err, string(output))
	}
	return nil
}

// Concat joins the clips, in order, into a single audio file at dst using
// the concat demuxer. Failing to produce dst is fatal to the run; callers
// must not treat it as recoverable.
func (m *Media) Concat(ctx context.Context, clips []string, dst string) error {
	if len(clips) == 0 {
		return fmt.Errorf("%w: no clips to concatenate", ErrConcatenation)
	}

	listPath, err := writeConcatList(clips)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConcatenation, err)
	}
	defer func() { _ = os.Remove(listPath) }()

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		dst,
	}

	output, err := m.cmd.CombinedOutput(ctx, m.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: %v\nOutput: %s", ErrConcatenation, err, string(output))
	}
	return nil
}

// writeConcatList writes a concat demuxer list file and returns its path.
// The caller removes the file when done.
func writeConcatList(clips []string) (string, error) {
	f, err := os.CreateTemp("", "go-diarist-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}

	var b strings.Builder
	for _, clip := range clips {
		// Single quotes inside a quoted concat entry need the '\'' dance.
		escaped := strings.ReplaceAll(clip, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}

	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write concat list: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close concat list: %w", err)
	}

	return f.Name(), nil
}

// decodePCM16 converts little-endian int16 PCM bytes to floats in [-1, 1].
// A trailing odd byte is discarded.
func decodePCM16(data []byte) []float64 {
	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:])) // #nosec G115 -- deliberate 16-bit reinterpretation
		samples[i] = float64(v) / 32768.0
	}
	return samples
}

// formatTime formats a duration for FFmpeg -ss/-to arguments.
func formatTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

// stderrExcerpt pulls captured stderr out of an exec.ExitError for error
// messages, truncated to the last lines FFmpeg printed.
func stderrExcerpt(err error) string {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || len(exitErr.Stderr) == 0 {
		return ""
	}

	lines := strings.Split(strings.TrimSpace(string(exitErr.Stderr)), "\n")
	const keep = 4
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return "\n" + strings.Join(lines, "\n")
}
