package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Command runs an external binary to capture a URL. The subprocess
// inherits the invocation context, so a timeout or cancellation kills
// it rather than leaving it running.
type Command struct {
	name      string
	binary    string
	outputDir string
	buildArgs func(rawURL, outDir string) []string
}

// NewWget creates a wget-based full page snapshot method.
func NewWget(binary, userAgent string) *Command {
	return &Command{
		name:      "wget",
		binary:    binary,
		outputDir: "wget",
		buildArgs: func(rawURL, outDir string) []string {
			return []string{
				"--no-verbose",
				"--adjust-extension",
				"--convert-links",
				"--page-requisites",
				"--user-agent=" + userAgent,
				"-P", outDir,
				rawURL,
			}
		},
	}
}

// NewMedia creates a yt-dlp style media download method.
func NewMedia(binary string) *Command {
	return &Command{
		name:      "media",
		binary:    binary,
		outputDir: "media",
		buildArgs: func(rawURL, outDir string) []string {
			return []string{
				"--no-playlist",
				"--output", filepath.Join(outDir, "%(title)s.%(ext)s"),
				rawURL,
			}
		},
	}
}

// Name returns the method name.
func (c *Command) Name() string { return c.name }

// Run executes the binary with its output confined to a method
// subdirectory of dir.
func (c *Command) Run(ctx context.Context, rawURL, dir string) Result {
	outDir := filepath.Join(dir, c.outputDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return failure(err)
	}

	cmd := exec.CommandContext(ctx, c.binary, c.buildArgs(rawURL, outDir)...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		// Prefer the context error so timeouts are reported as such,
		// not as "signal: killed".
		if ctxErr := ctx.Err(); ctxErr != nil {
			return failure(ctxErr)
		}
		return failure(fmt.Errorf("%s failed: %w: %s", c.binary, err, truncate(output)))
	}

	if empty, err := isEmptyDir(outDir); err != nil || empty {
		return failure(fmt.Errorf("%s produced no output", c.binary))
	}
	return success(c.outputDir)
}

// maxCapturedOutput bounds how much subprocess output is kept in an
// error message.
const maxCapturedOutput = 512

func truncate(output []byte) string {
	if len(output) > maxCapturedOutput {
		output = output[:maxCapturedOutput]
	}
	return string(output)
}

func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true, err
	}
	return len(entries) == 0, nil
}
