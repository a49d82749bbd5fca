// Package ytdlp wraps the external downloader used for metadata probes,
// playlist enumeration, audio and subtitle downloads, and live captures.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"scribe/internal/services"
)

// DefaultBinary is the downloader executable resolved on PATH.
const DefaultBinary = "yt-dlp"

// CommandRunner executes the downloader and returns its combined output.
// Injected by tests.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// LineRunner executes the downloader and feeds stdout to the handler line by
// line while the process runs. Injected by tests.
type LineRunner func(ctx context.Context, name string, args []string, onLine func(string)) error

// Client drives the downloader binary.
type Client struct {
	binary         string
	cookiesBrowser string
	probeTimeout   time.Duration
	socketTimeout  time.Duration

	run       CommandRunner
	runLines  LineRunner
	startLive LiveStarter
}

// Option customizes a Client.
type Option func(*Client)

// WithCookiesBrowser enables browser-cookie authentication.
func WithCookiesBrowser(browser string) Option {
	return func(c *Client) { c.cookiesBrowser = browser }
}

// WithProbeTimeout overrides the metadata probe deadline.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithSocketTimeout overrides the per-socket download timeout.
func WithSocketTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.socketTimeout = d
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(run CommandRunner) Option {
	return func(c *Client) { c.run = run }
}

// WithLineRunner sets a custom streaming runner (for testing).
func WithLineRunner(run LineRunner) Option {
	return func(c *Client) { c.runLines = run }
}

// WithLiveStarter sets a custom live-capture starter (for testing).
func WithLiveStarter(start LiveStarter) Option {
	return func(c *Client) { c.startLive = start }
}

// NewClient returns a Client for the given binary, falling back to the
// default when empty.
func NewClient(binary string, opts ...Option) *Client {
	client := &Client{
		binary:        binary,
		probeTimeout:  10 * time.Second,
		socketTimeout: 30 * time.Second,
	}
	if client.binary == "" {
		client.binary = DefaultBinary
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.run == nil {
		client.run = execRun
	}
	if client.runLines == nil {
		client.runLines = execRunLines
	}
	if client.startLive == nil {
		client.startLive = execStartLive
	}
	return client
}

// commonArgs returns flags shared by every invocation.
func (c *Client) commonArgs() []string {
	args := []string{"--no-playlist", "--socket-timeout", fmt.Sprintf("%d", int(c.socketTimeout.Seconds()))}
	if c.cookiesBrowser != "" {
		args = append(args, "--cookies-from-browser", c.cookiesBrowser)
	}
	return args
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

func execRunLines(ctx context.Context, name string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: stdout pipe: %w", name, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: start: %w", name, err)
	}
	scanLines(stdout, onLine)
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func scanLines(r io.Reader, onLine func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			onLine(line)
		}
	}
}

// classify turns raw downloader failure output into a taxonomy error.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	return services.Wrap(services.ClassifyRemote(err.Error()), "ytdlp", operation, "", err)
}
