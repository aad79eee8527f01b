package ffmpeg_test

// Notes:
// - FFmpeg is never executed; commands are captured with a fake runner passed
//   through the option funcs, which accept any implementation even though the
//   interface types are unexported.

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-diarist/internal/ffmpeg"
)

// fakeRunner records invocations and replays scripted results.
type fakeRunner struct {
	lastName string
	lastArgs []string

	output    []byte
	outputErr error

	// onRun inspects the invocation before the scripted result is returned.
	onRun func(name string, args []string)
}

func (r *fakeRunner) CombinedOutput(_ context.Context, name string, args []string) ([]byte, error) {
	r.lastName = name
	r.lastArgs = args
	if r.onRun != nil {
		r.onRun(name, args)
	}
	return r.output, r.outputErr
}

func (r *fakeRunner) Output(_ context.Context, name string, args []string) ([]byte, error) {
	r.lastName = name
	r.lastArgs = args
	if r.onRun != nil {
		r.onRun(name, args)
	}
	return r.output, r.outputErr
}

// pcm16 encodes int16 samples as little-endian bytes.
func pcm16(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s)) // #nosec G115 -- deliberate reinterpretation
	}
	return buf
}

// ---------------------------------------------------------------------------
// NewMedia - Constructor validation
// ---------------------------------------------------------------------------

func TestNewMedia_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := ffmpeg.NewMedia("")
	if !errors.Is(err, ffmpeg.ErrNotFound) {
		t.Errorf("NewMedia(\"\") error = %v, want %v", err, ffmpeg.ErrNotFound)
	}
}

// ---------------------------------------------------------------------------
// Media.Decode - PCM decoding
// ---------------------------------------------------------------------------

func TestMedia_Decode(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{output: pcm16(0, 16384, -16384, 32767, -32768)}
	m, err := ffmpeg.NewMedia("/usr/bin/ffmpeg", ffmpeg.WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("NewMedia() error = %v", err)
	}

	samples, rate, err := m.Decode(context.Background(), "input.mp3")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if rate != ffmpeg.CanonicalRate {
		t.Errorf("Decode() rate = %d, want %d", rate, ffmpeg.CanonicalRate)
	}

	want := []float64{0, 0.5, -0.5, 32767.0 / 32768.0, -1}
	if len(samples) != len(want) {
		t.Fatalf("Decode() returned %d samples, want %d", len(samples), len(want))
	}
	for i := range samples {
		if math.Abs(samples[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d = %v, want %v", i, samples[i], want[i])
		}
	}

	// Decode must request mono 16 kHz signed PCM on stdout.
	for _, arg := range []string{"-i", "input.mp3", "-f", "s16le", "-ac", "1", "-ar", "16000", "-"} {
		if !slices.Contains(runner.lastArgs, arg) {
			t.Errorf("Decode() args missing %q: %v", arg, runner.lastArgs)
		}
	}
}

func TestMedia_Decode_Error(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputErr: errors.New("exit status 1")}
	m, err := ffmpeg.NewMedia("/usr/bin/ffmpeg", ffmpeg.WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("NewMedia() error = %v", err)
	}

	_, _, err = m.Decode(context.Background(), "corrupt.wav")
	if !errors.Is(err, ffmpeg.ErrAudioRead) {
		t.Errorf("Decode() error = %v, want %v", err, ffmpeg.ErrAudioRead)
	}
	if !strings.Contains(err.Error(), "corrupt.wav") {
		t.Errorf("Decode() error does not name the file: %v", err)
	}
}

func TestMedia_Decode_OddTrailingByte(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{output: append(pcm16(1000), 0x7f)}
	m, err := ffmpeg.NewMedia("/usr/bin/ffmpeg", ffmpeg.WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("NewMedia() error = %v", err)
	}

	samples, _, err := m.Decode(context.Background(), "input.wav")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(samples) != 1 {
		t.Errorf("Decode() returned %d samples, want 1 (trailing byte discarded)", len(samples))
	}
}

// ---------------------------------------------------------------------------
// Media.Extract - Sub-clip extraction
// ---------------------------------------------------------------------------

func TestMedia_Extract(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	m, err := ffmpeg.NewMedia("/usr/bin/ffmpeg", ffmpeg.WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("NewMedia() error = %v", err)
	}

	start := time.Minute + 2*time.Second + 500*time.Millisecond
	end := time.Hour + 5*time.Second

	if err := m.Extract(context.Background(), "src.wav", "dst.wav", start, end); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := []string{
		"-y",
		"-i", "src.wav",
		"-ss", "00:01:02.500",
		"-to", "01:00:05.000",
		"-c", "copy",
		"dst.wav",
	}
	if !slices.Equal(runner.lastArgs, want) {
		t.Errorf("Extract() args = %v, want %v", runner.lastArgs, want)
	}
}

func TestMedia_Extract_Error(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{output: []byte("Invalid data"), outputErr: errors.New("exit status 1")}
	m, err := ffmpeg.NewMedia("/usr/bin/ffmpeg", ffmpeg.WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("NewMedia() error = %v", err)
	}

	err = m.Extract(context.Background(), "src.wav", "dst.wav", 0, time.Second)
	if !errors.Is(err, ffmpeg.ErrExtraction) {
		t.Errorf("Extract() error = %v, want %v", err, ffmpeg.ErrExtraction)
	}
}

// ---------------------------------------------------------------------------
// Media.Concat - Clip concatenation
// ---------------------------------------------------------------------------

func TestMedia_Concat(t *testing.T) {
	t.Parallel()

	var listContent string
	runner := &fakeRunner{}
	// The list file is removed after the run, so capture it during execution.
	runner.onRun = func(_ string, args []string) {
		for i, arg := range args {
			if arg == "-i" && i+1 < len(args) {
				data, err := os.ReadFile(args[i+1]) // #nosec G304 -- temp list file under test
				if err != nil {
					t.Errorf("read concat list: %v", err)
					return
				}
				listContent = string(data)
			}
		}
	}

	m, err := ffmpeg.NewMedia("/usr/bin/ffmpeg", ffmpeg.WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("NewMedia() error = %v", err)
	}

	clips := []string{"/tmp/a.wav", "/tmp/it's.wav"}
	if err := m.Concat(context.Background(), clips, "out.wav"); err != nil {
		t.Fatalf("Concat() error = %v", err)
	}

	wantList := "file '/tmp/a.wav'\nfile '/tmp/it'\\''s.wav'\n"
	if listContent != wantList {
		t.Errorf("concat list = %q, want %q", listContent, wantList)
	}

	for _, arg := range []string{"-f", "concat", "-safe", "0", "-c", "copy", "out.wav"} {
		if !slices.Contains(runner.lastArgs, arg) {
			t.Errorf("Concat() args missing %q: %v", arg, runner.lastArgs)
		}
	}
}

func TestMedia_Concat_NoClips(t *testing.T) {
	t.Parallel()

	m, err := ffmpeg.NewMedia("/usr/bin/ffmpeg", ffmpeg.WithCommandRunner(&fakeRunner{}))
	if err != nil {
		t.Fatalf("NewMedia() error = %v", err)
	}

	err = m.Concat(context.Background(), nil, "out.wav")
	if !errors.Is(err, ffmpeg.ErrConcatenation) {
		t.Errorf("Concat(no clips) error = %v, want %v", err, ffmpeg.ErrConcatenation)
	}
}

func TestMedia_Concat_RunnerError(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{output: []byte("demuxer failed"), outputErr: errors.New("exit status 1")}
	m, err := ffmpeg.NewMedia("/usr/bin/ffmpeg", ffmpeg.WithCommandRunner(runner))
	if err != nil {
		t.Fatalf("NewMedia() error = %v", err)
	}

	err = m.Concat(context.Background(), []string{"a.wav"}, "out.wav")
	if !errors.Is(err, ffmpeg.ErrConcatenation) {
		t.Errorf("Concat() error = %v, want %v", err, ffmpeg.ErrConcatenation)
	}
}
