// ABOUTME: Connection management over nmcli for the auto-connect workflow
// ABOUTME: Connect, disconnect, restore and connectivity polling as bounded subprocess calls

package netman

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strings"
	"time"
)

// ErrConnectFailed wraps nmcli connection failures. During auto-connect
// it is recorded per candidate and never aborts the run.
var ErrConnectFailed = errors.New("connection failed")

const (
	connectTimeout    = 30 * time.Second
	disconnectTimeout = 10 * time.Second
	reconnectTimeout  = 20 * time.Second
	stateTimeout      = 5 * time.Second

	internetProbeAddr    = "8.8.8.8:53"
	internetProbeTimeout = 3 * time.Second
)

// Manager drives NetworkManager through nmcli. One Manager owns one
// wireless interface.
type Manager struct {
	iface  string
	logger *slog.Logger
}

// New returns a Manager for the given interface.
func New(iface string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		iface:  iface,
		logger: logger.With("component", "netman", "interface", iface),
	}
}

// Connect joins a network by SSID with the given password.
func (m *Manager) Connect(ctx context.Context, ssid, password string) error {
	args := []string{"dev", "wifi", "connect", ssid, "password", password, "ifname", m.iface}

	_, stderr, err := m.run(ctx, connectTimeout, args...)
	if err != nil {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s: %s", ErrConnectFailed, ssid, msg)
	}

	m.logger.Debug("connected", "ssid", ssid)
	return nil
}

// Disconnect drops the interface's current connection. Failures are
// logged but not returned; a stale association is handled by the next
// connect.
func (m *Manager) Disconnect(ctx context.Context) {
	if _, stderr, err := m.run(ctx, disconnectTimeout, "dev", "disconnect", m.iface); err != nil {
		m.logger.Debug("disconnect failed", "error", err, "stderr", strings.TrimSpace(stderr))
	}
}

// WaitForConnection polls the interface state until it reports
// connected/activated or the timeout elapses.
func (m *Manager) WaitForConnection(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		stdout, _, err := m.run(ctx, stateTimeout, "-t", "-f", "GENERAL.STATE", "dev", "show", m.iface)
		if err == nil {
			state := strings.ToLower(stdout)
			if strings.Contains(state, "connected") || strings.Contains(state, "activated") {
				return true
			}
		}

		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return false
		}
	}
	return false
}

// Reconnect restores a previously known network by SSID. It tries the
// saved connection profile first, then a plain connect that reuses
// cached credentials.
func (m *Manager) Reconnect(ctx context.Context, ssid string) error {
	if _, _, err := m.run(ctx, reconnectTimeout, "con", "up", "id", ssid); err == nil {
		m.logger.Debug("restored saved profile", "ssid", ssid)
		return nil
	}

	_, stderr, err := m.run(ctx, reconnectTimeout, "dev", "wifi", "connect", ssid, "ifname", m.iface)
	if err != nil {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s: %s", ErrConnectFailed, ssid, msg)
	}

	m.logger.Debug("reconnected", "ssid", ssid)
	return nil
}

// HasInternet reports whether the host can reach the public DNS
// anycast address, a cheap stand-in for real connectivity.
func (m *Manager) HasInternet(ctx context.Context) bool {
	d := net.Dialer{Timeout: internetProbeTimeout}
	conn, err := d.DialContext(ctx, "tcp", internetProbeAddr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (m *Manager) run(ctx context.Context, timeout time.Duration, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "nmcli", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
