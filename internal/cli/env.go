// Package cli wires the diarist commands to the pipeline packages.
package cli

import (
	"context"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-diarist/internal/config"
	"github.com/alnah/go-diarist/internal/ffmpeg"
	"github.com/alnah/go-diarist/internal/transcribe"
	"github.com/alnah/go-diarist/internal/voiceprint"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stderr io.Writer
	Getenv func(string) string
	Logger *logrus.Logger

	// Factories for domain objects
	FFmpegResolver     FFmpegResolver
	ConfigLoader       ConfigLoader
	MediaFactory       MediaFactory
	ExtractorFactory   ExtractorFactory
	TranscriberFactory TranscriberFactory
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// MediaFactory creates FFmpeg media operators.
type MediaFactory interface {
	NewMedia(ffmpegPath string) (*ffmpeg.Media, error)
}

// ExtractorFactory creates voiceprint extractors.
type ExtractorFactory interface {
	NewHTTPExtractor(baseURL string) voiceprint.Extractor
	NewRandomExtractor() voiceprint.Extractor
}

// TranscriberFactory creates transcribers for audio-to-text conversion.
type TranscriberFactory interface {
	NewTranscriber(apiKey, model string) transcribe.Transcriber
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Logger) EnvOption {
	return func(e *Env) { e.Logger = log }
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) { e.FFmpegResolver = r }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithMediaFactory sets the media factory.
func WithMediaFactory(f MediaFactory) EnvOption {
	return func(e *Env) { e.MediaFactory = f }
}

// WithExtractorFactory sets the voiceprint extractor factory.
func WithExtractorFactory(f ExtractorFactory) EnvOption {
	return func(e *Env) { e.ExtractorFactory = f }
}

// WithTranscriberFactory sets the transcriber factory.
func WithTranscriberFactory(f TranscriberFactory) EnvOption {
	return func(e *Env) { e.TranscriberFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	return &Env{
		Stderr:             os.Stderr,
		Getenv:             os.Getenv,
		Logger:             log,
		FFmpegResolver:     ffmpeg.NewResolver(),
		ConfigLoader:       &defaultConfigLoader{},
		MediaFactory:       &defaultMediaFactory{},
		ExtractorFactory:   &defaultExtractorFactory{},
		TranscriberFactory: &defaultTranscriberFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultMediaFactory implements MediaFactory using the ffmpeg package.
type defaultMediaFactory struct{}

func (defaultMediaFactory) NewMedia(ffmpegPath string) (*ffmpeg.Media, error) {
	return ffmpeg.NewMedia(ffmpegPath)
}

// defaultExtractorFactory implements ExtractorFactory using the voiceprint package.
type defaultExtractorFactory struct{}

func (defaultExtractorFactory) NewHTTPExtractor(baseURL string) voiceprint.Extractor {
	return voiceprint.NewHTTPExtractor(baseURL)
}

func (defaultExtractorFactory) NewRandomExtractor() voiceprint.Extractor {
	return voiceprint.NewRandomExtractor(voiceprint.DefaultRandomDim)
}

// defaultTranscriberFactory implements TranscriberFactory using OpenAI.
type defaultTranscriberFactory struct{}

func (defaultTranscriberFactory) NewTranscriber(apiKey, model string) transcribe.Transcriber {
	client := openai.NewClient(apiKey)
	return transcribe.NewOpenAITranscriber(client, transcribe.WithModel(model))
}

// Compile-time interface verification.
var (
	_ FFmpegResolver     = (*ffmpeg.Resolver)(nil)
	_ ConfigLoader       = (*defaultConfigLoader)(nil)
	_ MediaFactory       = (*defaultMediaFactory)(nil)
	_ ExtractorFactory   = (*defaultExtractorFactory)(nil)
	_ TranscriberFactory = (*defaultTranscriberFactory)(nil)
)
