// ABOUTME: Speed test runner dispatching to ookla or iperf3 external tools
// ABOUTME: Tool availability checks, bounded invocation, typed results

package speedtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Errors surfaced by the runners.
var (
	// ErrToolUnavailable means the tool binary is missing from PATH.
	ErrToolUnavailable = errors.New("speed test tool not available")
	// ErrToolFailed wraps non-zero exits and timeouts.
	ErrToolFailed = errors.New("speed test tool failed")
	// ErrParse means the tool ran but its output lacked the expected fields.
	ErrParse = errors.New("unparseable speed test output")
	// ErrBadParams means the requested invocation is inconsistent.
	ErrBadParams = errors.New("invalid speed test parameters")
)

// Result is one throughput measurement, tool-agnostic.
type Result struct {
	Tool         string
	DownloadMbps float64
	UploadMbps   float64
	PingMs       float64
	JitterMs     float64
	PacketLoss   float64 // percent
	Server       string
	ISP          string
	ResultURL    string
	Timestamp    time.Time
}

// Params tunes a single run.
type Params struct {
	// Interface pins the ookla test to a specific network interface.
	Interface string
	// UDP switches iperf3 to UDP mode; it requires Bandwidth.
	UDP bool
	// Bandwidth is the iperf3 -b value (e.g. "100M").
	Bandwidth string
}

// Runner executes one speed test measurement.
type Runner interface {
	// Run performs the measurement. It blocks until the external tool
	// finishes or the bounded timeout expires.
	Run(ctx context.Context, p Params) (*Result, error)
	// Verify checks that the tool binary is installed and runnable.
	Verify() error
}

// Options selects and configures a Runner.
type Options struct {
	Tool      string // store.ToolSpeedtest or store.ToolIperf3
	Server    string // iperf3 server address
	Ports     []int  // iperf3 ports to try, in order
	Bandwidth string // default iperf3 bandwidth
	DurationS int    // iperf3 test duration, seconds
	Logger    *slog.Logger
}

// New returns the Runner for the configured tool.
func New(opts Options) (Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "speedtest", "tool", opts.Tool)

	switch opts.Tool {
	case "speedtest":
		return &ooklaRunner{logger: logger}, nil
	case "iperf3":
		if opts.DurationS <= 0 {
			opts.DurationS = 10
		}
		return &iperf3Runner{
			server:    opts.Server,
			ports:     opts.Ports,
			bandwidth: opts.Bandwidth,
			duration:  opts.DurationS,
			logger:    logger,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown tool %q", ErrBadParams, opts.Tool)
}

// verifyBinary checks that a binary exists in PATH and answers
// --version within a short window.
func verifyBinary(name, displayName string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s not found in PATH, please install it", ErrToolUnavailable, displayName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Exit status does not matter here; some builds return non-zero
	// for --version. Only a hung or unlaunchable binary is a problem.
	cmd := exec.CommandContext(ctx, name, "--version")
	if err := cmd.Run(); err != nil && ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %s timed out on --version", ErrToolUnavailable, displayName)
	}
	return nil
}

// runTool executes a tool under a bounded timeout and returns stdout.
func runTool(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s not found", ErrToolUnavailable, name)
		}
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %s timed out after %s", ErrToolFailed, name, timeout)
		}
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) == 0 {
			return "", fmt.Errorf("%w: %s: %v", ErrToolFailed, name, err)
		}
		return "", fmt.Errorf("%w: %s: %s", ErrToolFailed, name, msg)
	}

	return stdout.String(), nil
}
