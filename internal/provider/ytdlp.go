package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// YTDLP is an Engine backed by the yt-dlp executable.
// It uses exec.CommandContext with an explicit argument slice; the source URL
// is passed after "--" so it can never be read as an option.
type YTDLP struct {
	binary  string
	timeout time.Duration
}

// NewYTDLP creates a yt-dlp engine. An empty binary defaults to "yt-dlp".
func NewYTDLP(binary string, timeout time.Duration) *YTDLP {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLP{binary: binary, timeout: timeout}
}

func (y *YTDLP) Name() string { return "yt-dlp" }

// Extract runs "yt-dlp -J" and decodes its info JSON.
func (y *YTDLP) Extract(ctx context.Context, sourceURL string) (*Info, error) {
	path, err := exec.LookPath(y.binary)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", y.binary, err)
	}

	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	args := []string{
		"--dump-single-json",
		"--no-warnings",
		"--no-playlist",
		"--skip-download",
		"--",
		sourceURL,
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("yt-dlp interrupted: %w", ctxErr)
		}
		msg := lastLine(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && msg != "" {
			return nil, fmt.Errorf("yt-dlp exited %d: %s", exitErr.ExitCode(), msg)
		}
		return nil, fmt.Errorf("running yt-dlp: %w", err)
	}

	return decodeInfo(stdout.Bytes())
}

func decodeInfo(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing yt-dlp output: %w", err)
	}
	return &info, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
