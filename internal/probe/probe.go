// ABOUTME: WiFi scanning via the iw command with typed parsed results
// ABOUTME: Also detects the active interface and reads the current link identity

package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/2389/wifi-test/internal/store"
)

// Errors surfaced by the probe.
var (
	// ErrToolMissing means the iw binary is not installed.
	ErrToolMissing = errors.New("iw command not found")
	// ErrScanFailed wraps scan command failures and unparseable output.
	ErrScanFailed = errors.New("wifi scan failed")
	// ErrNoInterface means no wireless interface could be detected.
	ErrNoInterface = errors.New("no wifi interface detected")
)

const (
	scanTimeout = 30 * time.Second
	infoTimeout = 5 * time.Second

	// The kernel intermittently fails rapid scans with -105; those
	// attempts are retried after a short pause.
	scanRetries = 2
	bufferBusy  = "No buffer space available"
)

// Scanner invokes iw against a wireless interface.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner returns a Scanner logging through the given logger.
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger.With("component", "probe")}
}

// Scan runs `iw dev <iface> scan` and parses the output into network
// records. When flush is set the scan cache is flushed first so stale
// OS-level results don't leak into fresh scans.
func (s *Scanner) Scan(ctx context.Context, iface string, flush bool) ([]store.NetworkRecord, error) {
	var lastErr error

	for attempt := 0; attempt <= scanRetries; attempt++ {
		if attempt > 0 {
			s.logger.Debug("retrying scan", "attempt", attempt)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrScanFailed, ctx.Err())
			}
		}

		if flush {
			// Best effort; a failed flush only means stale entries.
			_, _, _ = s.run(ctx, scanTimeout, "iw", "dev", iface, "scan", "flush")
		}

		stdout, stderr, err := s.run(ctx, scanTimeout, "iw", "dev", iface, "scan")
		if err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return nil, fmt.Errorf("%w: install the iw package", ErrToolMissing)
			}
			if strings.Contains(stderr, bufferBusy) {
				lastErr = fmt.Errorf("%w: %s", ErrScanFailed, bufferBusy)
				continue
			}
			msg := strings.TrimSpace(stderr)
			if msg == "" {
				msg = err.Error()
			}
			return nil, fmt.Errorf("%w: %s", ErrScanFailed, msg)
		}

		results := parseScanOutput(stdout)
		s.logger.Debug("scan complete", "interface", iface, "networks", len(results))
		return results, nil
	}

	return nil, lastErr
}

// DetectInterface finds the first wireless interface reported by
// `iw dev`.
func (s *Scanner) DetectInterface(ctx context.Context) (string, error) {
	stdout, _, err := s.run(ctx, infoTimeout, "iw", "dev")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: install the iw package", ErrToolMissing)
		}
		return "", fmt.Errorf("%w: %v", ErrNoInterface, err)
	}

	if iface := parseDevOutput(stdout); iface != "" {
		return iface, nil
	}

	return "", ErrNoInterface
}

// Link is the identity of the currently associated access point.
type Link struct {
	SSID  string
	BSSID string
}

// CurrentLink reads `iw dev <iface> link` and returns the SSID and
// BSSID of the current association. Both fields are empty when the
// interface is not associated; that is not an error.
func (s *Scanner) CurrentLink(ctx context.Context, iface string) (Link, error) {
	stdout, _, err := s.run(ctx, infoTimeout, "iw", "dev", iface, "link")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Link{}, fmt.Errorf("%w: install the iw package", ErrToolMissing)
		}
		// A non-zero exit usually means the interface is down; treat
		// it the same as "Not connected."
		return Link{}, nil
	}

	return parseLinkOutput(stdout), nil
}

// run executes a command under a bounded timeout and returns its
// captured stdout and stderr.
func (s *Scanner) run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
