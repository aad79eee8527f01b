// Package ffmpeg locates the FFmpeg binary and runs the media operations the
// pipeline delegates to it: decoding to PCM, sub-clip extraction, and
// concatenation.
package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Environment variable for custom ffmpeg path.
const envFFmpegPath = "FFMPEG_PATH"

// minFFmpegMajorVersion is the minimum recommended ffmpeg version.
// Older versions may lack required demuxer and resampling behavior.
const minFFmpegMajorVersion = 4

// Resolver locates the FFmpeg binary.
type Resolver struct {
	env    envProvider
	files  fileStatter
	cmd    commandRunner
	stderr io.Writer
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithFileStatter sets the file statter implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.files = s }
}

// WithResolverCommandRunner sets the command runner used for version checks.
func WithResolverCommandRunner(c commandRunner) ResolverOption {
	return func(r *Resolver) { r.cmd = c }
}

// WithStderr sets the writer for warning messages.
func WithStderr(w io.Writer) ResolverOption {
	return func(r *Resolver) { r.stderr = w }
}

// NewResolver creates a Resolver with the given options.
// Uses production defaults if no options are provided.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		env:    osEnvProvider{},
		files:  osFileStatter{},
		cmd:    osCommandRunner{},
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. System PATH
func (r *Resolver) Resolve(_ context.Context) (string, error) {
	if envPath := r.env.Getenv(envFFmpegPath); envPath != "" {
		if _, err := r.files.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found",
				ErrNotFound, envFFmpegPath, envPath)
		}
		return envPath, nil
	}

	if path, err := r.env.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w\n\n%s", ErrNotFound, manualInstallInstructions())
}

// CheckVersion warns on stderr when ffmpeg is older than the minimum
// recommended major version. Parse failures are ignored; the check never
// blocks a run.
func (r *Resolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	output, err := r.cmd.CombinedOutput(ctx, ffmpegPath, []string{"-version"})
	if err != nil && len(output) == 0 {
		return
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return
	}

	var major int
	if _, err := fmt.Sscanf(lines[0], "ffmpeg version %d", &major); err != nil {
		// Distribution builds sometimes prefix the version with "n".
		if _, err := fmt.Sscanf(lines[0], "ffmpeg version n%d", &major); err != nil {
			return
		}
	}

	if major < minFFmpegMajorVersion {
		fmt.Fprintf(r.stderr, "Warning: ffmpeg version %d detected, version %d+ recommended\n",
			major, minFFmpegMajorVersion)
	}
}

// manualInstallInstructions returns platform-specific install guidance.
func manualInstallInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return `To install FFmpeg:
  brew install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "linux":
		return `To install FFmpeg:
  sudo apt install ffmpeg    # Debian/Ubuntu
  sudo dnf install ffmpeg    # Fedora

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "windows":
		return `To install FFmpeg:
  winget install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg.exe.`
	default:
		return `To install FFmpeg, download from https://ffmpeg.org/download.html
Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	}
}
