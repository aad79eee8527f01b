package cli_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-diarist/internal/cli"
	"github.com/alnah/go-diarist/internal/config"
	"github.com/alnah/go-diarist/internal/ffmpeg"
	"github.com/alnah/go-diarist/internal/transcribe"
	"github.com/alnah/go-diarist/internal/voiceprint"
)

// quietLogger discards log output in tests.
func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	return log
}

// fakeResolver scripts ffmpeg discovery.
type fakeResolver struct {
	path string
	err  error
}

func (r *fakeResolver) Resolve(context.Context) (string, error) { return r.path, r.err }
func (r *fakeResolver) CheckVersion(context.Context, string)    {}

// fakeConfigLoader scripts persisted configuration.
type fakeConfigLoader struct {
	cfg config.Config
	err error
}

func (l *fakeConfigLoader) Load() (config.Config, error) { return l.cfg, l.err }

// fakeRunner stands in for the ffmpeg binary: Decode gets scripted PCM,
// extraction and concatenation silently succeed.
type fakeRunner struct {
	pcm []byte
}

func (r *fakeRunner) CombinedOutput(context.Context, string, []string) ([]byte, error) {
	return nil, nil
}

func (r *fakeRunner) Output(context.Context, string, []string) ([]byte, error) {
	return r.pcm, nil
}

// fakeMediaFactory builds Media instances backed by the fake runner.
type fakeMediaFactory struct {
	runner *fakeRunner
}

func (f *fakeMediaFactory) NewMedia(path string) (*ffmpeg.Media, error) {
	return ffmpeg.NewMedia(path, ffmpeg.WithCommandRunner(f.runner))
}

// fakeVoiceprintExtractor returns the same vector for every clip, so every
// segment scores similarity 1 against the target.
type fakeVoiceprintExtractor struct {
	vec voiceprint.Voiceprint
	err error
}

func (e *fakeVoiceprintExtractor) Embed(context.Context, string) (voiceprint.Voiceprint, error) {
	return e.vec, e.err
}

// fakeExtractorFactory hands out the same fake extractor for both kinds.
type fakeExtractorFactory struct {
	ext voiceprint.Extractor
}

func (f *fakeExtractorFactory) NewHTTPExtractor(string) voiceprint.Extractor { return f.ext }
func (f *fakeExtractorFactory) NewRandomExtractor() voiceprint.Extractor     { return f.ext }

// fakeTranscriber returns a fixed transcript for every clip.
type fakeTranscriber struct {
	text string
	err  error
}

func (t *fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	return t.text, t.err
}

// fakeTranscriberFactory hands out the fake transcriber.
type fakeTranscriberFactory struct {
	t transcribe.Transcriber
}

func (f *fakeTranscriberFactory) NewTranscriber(string, string) transcribe.Transcriber {
	return f.t
}

// loudPCM returns little-endian int16 PCM at 16 kHz: one second of
// half-scale signal, loud enough for the energy detector.
func loudPCM(seconds float64) []byte {
	n := int(seconds * 16000)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(16000)))
	}
	return buf
}

// configWithEmbeddingURL builds a Config carrying only the embedding URL.
func configWithEmbeddingURL(url string) config.Config {
	return config.Config{EmbeddingURL: url}
}

// writeInputFile creates a placeholder audio file.
func writeInputFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write input file: %v", err)
	}
	return p
}

// testEnv wires an Env where every collaborator is faked and the pipeline
// sees one second of continuous speech that matches the target voiceprint.
func testEnv(t *testing.T, opts ...cli.EnvOption) *cli.Env {
	t.Helper()

	base := []cli.EnvOption{
		cli.WithLogger(quietLogger()),
		cli.WithStderr(&bytes.Buffer{}),
		cli.WithGetenv(func(string) string { return "" }),
		cli.WithFFmpegResolver(&fakeResolver{path: "/usr/bin/ffmpeg"}),
		cli.WithConfigLoader(&fakeConfigLoader{}),
		cli.WithMediaFactory(&fakeMediaFactory{runner: &fakeRunner{pcm: loudPCM(1)}}),
		cli.WithExtractorFactory(&fakeExtractorFactory{
			ext: &fakeVoiceprintExtractor{vec: voiceprint.Voiceprint{1, 0}},
		}),
		cli.WithTranscriberFactory(&fakeTranscriberFactory{t: &fakeTranscriber{text: "hello"}}),
	}
	return cli.NewEnv(append(base, opts...)...)
}
