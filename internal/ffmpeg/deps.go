package ffmpeg

import (
	"context"
	"os"
	"os/exec"
)

// ---------------------------------------------------------------------------
// Interfaces - local to this package, following Go idiom
// ---------------------------------------------------------------------------

// commandRunner executes external commands.
type commandRunner interface {
	// CombinedOutput runs the command and returns stdout and stderr mixed.
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
	// Output runs the command and returns stdout only; on failure the error
	// is an *exec.ExitError carrying captured stderr.
	Output(ctx context.Context, name string, args []string) ([]byte, error)
}

// envProvider abstracts environment and path lookup operations.
type envProvider interface {
	Getenv(key string) string
	LookPath(file string) (string, error)
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to standard library
// ---------------------------------------------------------------------------

// Compile-time interface verification.
var (
	_ commandRunner = osCommandRunner{}
	_ envProvider   = osEnvProvider{}
	_ fileStatter   = osFileStatter{}
)

// osCommandRunner implements commandRunner using exec.CommandContext.
type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name and args are built by this package, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

func (osCommandRunner) Output(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name and args are built by this package, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// osEnvProvider implements envProvider using os and exec packages.
type osEnvProvider struct{}

func (osEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (osEnvProvider) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// osFileStatter implements fileStatter using os.Stat.
type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}
