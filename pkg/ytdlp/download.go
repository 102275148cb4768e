package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoDirectURL is returned by DirectURL when the selected format has no
// single media URL (for example a split video+audio pair).
var ErrNoDirectURL = errors.New("ytdlp: no direct media url")

// ErrNoOutput is returned by Download when yt-dlp succeeded but left no
// media file behind.
var ErrNoOutput = errors.New("ytdlp: no output file")

// DirectURL resolves url to the direct media URL of the configured format
// without downloading anything.
func (c *Client) DirectURL(ctx context.Context, url string) (*Info, error) {
	info, err := c.GetInfo(ctx, url, "--format", c.formatOrDefault(), "--no-playlist")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(info.URL) == "" {
		return info, ErrNoDirectURL
	}
	if info.Ext == "" {
		info.Ext = "mp4"
	}
	return info, nil
}

// Download fetches the media into destDir as <id>.<ext> and returns the
// path of the produced file. destDir should be empty and owned by the caller.
func (c *Client) Download(ctx context.Context, url string, destDir string, extraArgs ...string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(destDir) == "" {
		return "", fmt.Errorf("ytdlp: destDir is required")
	}

	tmpl := filepath.Join(destDir, "%(id)s.%(ext)s")
	args := []string{
		"-o", tmpl,
		"--format", c.formatOrDefault(),
		"--no-playlist",
		"--no-warnings",
		"--no-colors",
		"--no-part",
	}
	args = append(args, extraArgs...)
	args = append(args, url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return "", wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}

	return findMedia(destDir)
}

// findMedia returns the largest regular file in dir, skipping yt-dlp
// sidecar and partial files.
func findMedia(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("ytdlp: read output dir: %w", err)
	}

	var (
		best     string
		bestSize int64 = -1
	)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") || strings.HasSuffix(name, ".json") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.Size() > bestSize {
			best, bestSize = filepath.Join(dir, name), fi.Size()
		}
	}
	if best == "" {
		return "", ErrNoOutput
	}
	return best, nil
}
