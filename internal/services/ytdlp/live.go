package ytdlp

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// LiveCapture is a handle to a running live-stream download child process.
type LiveCapture interface {
	// Done is closed when the child exits; read the error with Err.
	Done() <-chan struct{}
	// Err returns the child's exit error after Done is closed.
	Err() error
	// Stop sends a terminate signal and forces a kill after the grace period.
	Stop(grace time.Duration)
}

// LiveStarter launches a live capture writing the stream's audio to outPath.
type LiveStarter func(ctx context.Context, binary string, args []string, outPath string) (LiveCapture, error)

// StartLive spawns the downloader as a child process that appends the live
// stream's audio to outPath until the stream ends or Stop is called.
func (c *Client) StartLive(ctx context.Context, url, outPath string) (LiveCapture, error) {
	args := append(c.commonArgs(),
		"-f", "bestaudio/best",
		"--no-part",
		"--live-from-start",
		"-o", outPath,
		url,
	)
	capture, err := c.startLive(ctx, c.binary, args, outPath)
	if err != nil {
		return nil, classify("start_live", err)
	}
	return capture, nil
}

type execLiveCapture struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func execStartLive(ctx context.Context, binary string, args []string, _ string) (LiveCapture, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: start live capture: %w", binary, err)
	}
	capture := &execLiveCapture{cmd: cmd, done: make(chan struct{})}
	go func() {
		capture.err = cmd.Wait()
		close(capture.done)
	}()
	return capture, nil
}

func (l *execLiveCapture) Done() <-chan struct{} { return l.done }

func (l *execLiveCapture) Err() error { return l.err }

func (l *execLiveCapture) Stop(grace time.Duration) {
	if l.cmd.Process == nil {
		return
	}
	_ = l.cmd.Process.Signal(terminateSignal)
	select {
	case <-l.done:
	case <-time.After(grace):
		_ = l.cmd.Process.Kill()
		<-l.done
	}
}
