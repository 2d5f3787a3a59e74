// Package download writes delivery results to local files.
// Output paths are validated against directory traversal, and files are
// written to a temp file first and renamed into place when complete.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"vidrelay/internal/delivery"
	"vidrelay/internal/httputil"
)

// Saver stores delivery results on a filesystem.
type Saver struct {
	fs     afero.Afero
	client *http.Client
}

// NewSaver creates a Saver. client fetches redirect targets; a nil client
// uses an HTTP client without an overall timeout.
func NewSaver(fs afero.Fs, client *http.Client) *Saver {
	if client == nil {
		client = httputil.NewClient(0)
	}
	return &Saver{fs: afero.Afero{Fs: fs}, client: client}
}

// Save writes res to dir/filename and returns the final path.
func (s *Saver) Save(ctx context.Context, dir, filename string, res delivery.Result) (string, error) {
	outputPath, err := httputil.SafeDownloadPath(dir, filename)
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}
	outDir := filepath.Dir(outputPath)
	if err := s.fs.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := s.fs.TempFile(outDir, ".vidrelay-*.part")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, writeErr := s.write(ctx, tmp, res)
	closeErr := tmp.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		s.fs.Remove(tmpPath)
		return "", writeErr
	}

	if err := s.fs.Rename(tmpPath, outputPath); err != nil {
		s.fs.Remove(tmpPath)
		return "", fmt.Errorf("renaming download: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"path":  outputPath,
		"bytes": n,
		"mode":  res.Mode(),
	}).Debug("download saved")
	return outputPath, nil
}

func (s *Saver) write(ctx context.Context, dst io.Writer, res delivery.Result) (int64, error) {
	switch r := res.(type) {
	case *delivery.Buffered:
		n, err := dst.Write(r.Body)
		if err != nil {
			return int64(n), fmt.Errorf("writing payload: %w", err)
		}
		return int64(n), nil
	case *delivery.Streamed:
		n, err := r.Copy(dst)
		if err != nil {
			return n, fmt.Errorf("copying stream: %w", err)
		}
		return n, nil
	case *delivery.Redirect:
		return s.fetch(ctx, dst, r.URL)
	default:
		return 0, fmt.Errorf("unsupported delivery result %T", res)
	}
}

// fetch downloads a redirect target into dst.
func (s *Saver) fetch(ctx context.Context, dst io.Writer, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	httputil.SetBrowserHeaders(req, "*/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetching %s: unexpected status %d", req.URL.Host, resp.StatusCode)
	}

	buf := make([]byte, delivery.DefaultChunkSize)
	n, err := io.CopyBuffer(dst, resp.Body, buf)
	if err != nil {
		return n, fmt.Errorf("reading body: %w", err)
	}
	return n, nil
}
