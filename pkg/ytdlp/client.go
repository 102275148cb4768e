package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultFormat prefers a single progressive mp4 so the direct URL can be
// handed to a chat transport as-is.
const DefaultFormat = "best[ext=mp4]/bestvideo[ext=mp4]+bestaudio/best"

// streamWriter forwards each output line to callback while buffering the
// whole stream.
type streamWriter struct {
	stream   string
	callback func(stream string, line string)
	buffer   *bytes.Buffer
	pending  []byte
}

func (w *streamWriter) Write(p []byte) (n int, err error) {
	if w.buffer != nil {
		w.buffer.Write(p)
	}
	w.pending = append(w.pending, p...)

	// yt-dlp redraws progress with \r, so both \r and \n end a line.
	for {
		idx := bytes.IndexAny(w.pending, "\r\n")
		if idx < 0 {
			break
		}

		line := string(w.pending[:idx])
		consume := 1
		if w.pending[idx] == '\r' && idx+1 < len(w.pending) && w.pending[idx+1] == '\n' {
			consume = 2
		}
		w.pending = w.pending[idx+consume:]

		if w.callback != nil {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				w.callback(w.stream, trimmed)
			}
		}
	}

	return len(p), nil
}

type ExecError struct {
	Cmd      string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	cmdline := strings.TrimSpace(e.Cmd + " " + strings.Join(e.Args, " "))
	if e.ExitCode != 0 {
		return fmt.Sprintf("ytdlp: command failed (exit %d): %s", e.ExitCode, cmdline)
	}
	return fmt.Sprintf("ytdlp: command failed: %s", cmdline)
}

func (e *ExecError) Unwrap() error { return e.Cause }

// Unavailable reports whether yt-dlp refused the URL itself (private,
// removed or unsupported media) as opposed to a local failure.
func (e *ExecError) Unavailable() bool {
	s := strings.ToLower(e.Stderr)
	for _, marker := range []string{"unsupported url", "not available", "private", "login required", "does not exist", "no video", "404"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// Client runs the yt-dlp binary. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	// Path to yt-dlp executable. Defaults to "yt-dlp" (PATH lookup).
	Path string

	// Proxy is passed as --proxy when set.
	Proxy string

	// Format is the -f selector. Defaults to DefaultFormat.
	Format string

	// ExtraArgs are always appended before per-call args.
	ExtraArgs []string

	// LogCallback is called for each line of stdout/stderr output.
	LogCallback func(stream string, line string)

	execFn func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

func New() *Client {
	return &Client{Path: "yt-dlp", Format: DefaultFormat}
}

func (c *Client) exec(ctx context.Context, args ...string) (stdout []byte, stderr []byte, err error) {
	name := c.PathOrDefault()

	fullArgs := make([]string, 0, len(c.ExtraArgs)+len(args)+3)
	fullArgs = append(fullArgs, c.ExtraArgs...)
	if c.LogCallback != nil {
		fullArgs = append(fullArgs, "--newline")
	}
	if p := strings.TrimSpace(c.Proxy); p != "" {
		fullArgs = append(fullArgs, "--proxy", p)
	}
	fullArgs = append(fullArgs, args...)

	if c.execFn != nil {
		return c.execFn(ctx, name, fullArgs...)
	}

	slog.Debug("ytdlp: Executing command", "cmd", name, "args", fullArgs)
	cmd := exec.CommandContext(ctx, name, fullArgs...)
	var outBuf, errBuf bytes.Buffer
	if c.LogCallback != nil {
		cmd.Stdout = &streamWriter{stream: "stdout", callback: c.LogCallback, buffer: &outBuf}
		cmd.Stderr = &streamWriter{stream: "stderr", callback: c.LogCallback, buffer: &errBuf}
	} else {
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
	}

	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// Version returns `yt-dlp --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	args := []string{"--version"}
	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return "", wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// Info models the fields of yt-dlp's JSON output that delivery needs.
// The full JSON is preserved in Raw.
type Info struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	WebpageURL string          `json:"webpage_url"`
	Extractor  string          `json:"extractor"`
	Uploader   string          `json:"uploader"`
	Duration   float64         `json:"duration"`
	URL        string          `json:"url"`
	Ext        string          `json:"ext"`
	Filesize   int64           `json:"filesize"`
	Raw        json.RawMessage `json:"-"`
}

// GetInfo runs yt-dlp in metadata-only mode (--dump-single-json
// --skip-download) and parses its JSON output.
func (c *Client) GetInfo(ctx context.Context, url string, extraArgs ...string) (*Info, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("ytdlp: url is required")
	}

	args := []string{"--dump-single-json", "--skip-download", "--no-warnings"}
	args = append(args, extraArgs...)
	args = append(args, url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return nil, wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}

	raw := bytes.TrimSpace(stdout)
	info := &Info{Raw: append([]byte(nil), raw...)}
	if err := json.Unmarshal(raw, info); err != nil {
		return nil, fmt.Errorf("ytdlp: parse json: %w", err)
	}

	return info, nil
}

// PathOrDefault returns the configured path or "yt-dlp" if unset.
func (c *Client) PathOrDefault() string {
	if strings.TrimSpace(c.Path) == "" {
		return "yt-dlp"
	}
	return c.Path
}

func (c *Client) formatOrDefault() string {
	if strings.TrimSpace(c.Format) == "" {
		return DefaultFormat
	}
	return c.Format
}

// Update runs `yt-dlp -U` to update to the latest version.
func (c *Client) Update(ctx context.Context, extraArgs ...string) error {
	args := []string{"-U"}
	args = append(args, extraArgs...)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}
	return nil
}

func wrapExecError(cmd string, args []string, stdout []byte, stderr []byte, cause error) error {
	exitCode := 0
	var ee *exec.ExitError
	if errors.As(cause, &ee) {
		exitCode = ee.ExitCode()
	}

	return &ExecError{
		Cmd:      cmd,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   strings.TrimSpace(string(stdout)),
		Stderr:   strings.TrimSpace(string(stderr)),
		Cause:    cause,
	}
}
