package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-diarist/internal/classify"
	"github.com/alnah/go-diarist/internal/cli"
	"github.com/alnah/go-diarist/internal/ffmpeg"
	"github.com/alnah/go-diarist/internal/transcribe"
	"github.com/alnah/go-diarist/internal/vad"
	"github.com/alnah/go-diarist/internal/voiceprint"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitPipeline   = 5
	ExitNoTarget   = 6
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create the CLI environment with production defaults.
	env := cli.DefaultEnv()

	// Root command.
	rootCmd := &cobra.Command{
		Use:     "diarist",
		Short:   "Extract and transcribe a target speaker from mixed recordings",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Subcommands.
	rootCmd.AddCommand(cli.ExtractCmd(env))
	rootCmd.AddCommand(cli.DemoCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3): missing collaborators or credentials.
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, cli.ErrAPIKeyMissing) ||
		errors.Is(err, cli.ErrEmbeddingURLMissing) || errors.Is(err, voiceprint.ErrModelUnavailable) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4): bad input or flags.
	if errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrInvalidThreshold) ||
		errors.Is(err, cli.ErrUnsupportedModel) || errors.Is(err, vad.ErrInvalidFrameDuration) ||
		errors.Is(err, vad.ErrInvalidAggressiveness) || errors.Is(err, vad.ErrInvalidMinDuration) {
		return ExitValidation
	}

	// Pipeline errors (ExitPipeline = 5): audio processing or API failures.
	if errors.Is(err, ffmpeg.ErrAudioRead) || errors.Is(err, ffmpeg.ErrExtraction) ||
		errors.Is(err, ffmpeg.ErrConcatenation) || errors.Is(err, transcribe.ErrRateLimit) ||
		errors.Is(err, transcribe.ErrQuotaExceeded) || errors.Is(err, transcribe.ErrTimeout) ||
		errors.Is(err, transcribe.ErrAuthFailed) || errors.Is(err, transcribe.ErrBadRequest) {
		return ExitPipeline
	}

	// No target speech found (ExitNoTarget = 6).
	if errors.Is(err, classify.ErrNoTargetSegments) {
		return ExitNoTarget
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
