package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"thirdcoast.systems/reelgrab/internal/dispatch"
	"thirdcoast.systems/reelgrab/pkg/ytdlp"
)

// YTDLP resolves and downloads posts with the yt-dlp binary.
type YTDLP struct {
	client   *ytdlp.Client
	spoolDir string
}

func NewYTDLP(client *ytdlp.Client, spoolDir string) *YTDLP {
	return &YTDLP{client: client, spoolDir: spoolDir}
}

func (y *YTDLP) Resolve(ctx context.Context, locator string) (dispatch.Resolution, error) {
	info, err := y.client.DirectURL(ctx, locator)
	if errors.Is(err, ytdlp.ErrNoDirectURL) {
		return dispatch.Resolution{Ext: info.Ext}, nil
	}
	if err != nil {
		return dispatch.Resolution{}, classify(err)
	}
	return dispatch.Resolution{DirectURL: info.URL, Ext: info.Ext}, nil
}

// Download fetches the post into a fresh igdl_* directory under the spool
// directory. Releasing the returned file removes the whole directory.
func (y *YTDLP) Download(ctx context.Context, locator string) (*dispatch.ScopedFile, error) {
	if err := os.MkdirAll(y.spoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	dir, err := os.MkdirTemp(y.spoolDir, "igdl_")
	if err != nil {
		return nil, fmt.Errorf("create scoped dir: %w", err)
	}
	release := func() error { return os.RemoveAll(dir) }

	path, err := y.client.Download(ctx, locator, dir)
	if err != nil {
		if rerr := release(); rerr != nil {
			slog.Warn("failed to remove scoped dir", "path", dir, "error", rerr)
		}
		return nil, classify(err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		_ = release()
		return nil, fmt.Errorf("stat download: %w", err)
	}
	return dispatch.NewScopedFile(path, fi.Size(), release), nil
}

func classify(err error) error {
	var ee *ytdlp.ExecError
	if errors.As(err, &ee) {
		slog.Warn("yt-dlp failed", "exit_code", ee.ExitCode, "stderr", ee.Stderr)
		if ee.Unavailable() {
			return fmt.Errorf("%w: %v", dispatch.ErrNotResolvable, err)
		}
	}
	if errors.Is(err, ytdlp.ErrNoOutput) {
		return fmt.Errorf("%w: %v", dispatch.ErrNotResolvable, err)
	}
	return err
}
