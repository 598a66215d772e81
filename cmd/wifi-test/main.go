// ABOUTME: wifi-test CLI entry point with subcommand dispatch
// ABOUTME: Sets up logging, signal handling and privilege checks for radio commands

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/wifi-test/internal/autoconnect"
	"github.com/2389/wifi-test/internal/config"
	"github.com/2389/wifi-test/internal/probe"
)

// Exit codes. Restore failures get their own code so wrappers can tell
// "the run failed" apart from "the network may be in a bad state".
const (
	exitOK            = 0
	exitError         = 1
	exitRestoreFailed = 3
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitError)
	}

	logger := setupLogger(os.Getenv("WIFI_TEST_LOG"))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "config":
		err = cmdConfig(ctx, logger, args)
	case "scan":
		err = cmdScan(ctx, logger, args)
	case "speedtest":
		err = cmdSpeedtest(ctx, logger, args)
	case "export":
		err = cmdExport(ctx, logger, args)
	case "help", "-h", "--help":
		printUsage()
	case "version", "--version":
		fmt.Println("wifi-test " + version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitError)
	}

	if err != nil {
		color.Red("Error: %v", err)
		if errors.Is(err, autoconnect.ErrRestoreFailed) {
			color.Yellow("The original WiFi connection may not be active. Verify it manually.")
			os.Exit(exitRestoreFailed)
		}
		os.Exit(exitError)
	}
}

// version is stamped by the build; "dev" for local builds.
var version = "dev"

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Println("wifi-test - scan WiFi networks and measure their throughput")
	fmt.Println()
	fmt.Println("Usage: wifi-test <command> [flags]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  config init               Create the default config file")
	fmt.Println("  config set <key> <value>  Set a config value")
	fmt.Println("  config get [key]          Show one or all config values")
	fmt.Println("  config detect-interface   Detect and save the wifi interface")
	fmt.Println("  scan                      Scan for nearby networks")
	fmt.Println("  speedtest                 Measure throughput on the current connection")
	fmt.Println("  speedtest --auto-connect  Join each matching network and measure it")
	fmt.Println("  export                    Export recorded results to CSV")
	fmt.Println()
	yellow.Println("Common flags:")
	fmt.Println("  -p, --prefix [s]   Only networks whose SSID starts with s;")
	fmt.Println("                     a bare -p uses the configured PREFIX")
	fmt.Println("  --limit <n>        Cap how many networks are shown or tested")
	fmt.Println("  -q, --quiet        Suppress table output")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  WIFI_TEST_CONFIG   Config file path override")
	fmt.Println("  WIFI_TEST_LOG      Log level (debug/info/warn/error, default info)")
	fmt.Println()
	fmt.Println("Radio commands (scan, speedtest) need root and the iw tool.")
}

// requireRadioAccess verifies the invariants every command that touches
// the radio depends on: root privileges and the iw binary.
func requireRadioAccess() error {
	if os.Geteuid() != 0 {
		return errors.New("this command needs root, run it under sudo")
	}
	if _, err := exec.LookPath("iw"); err != nil {
		return errors.New("iw command not found, install the iw package")
	}
	return nil
}

// loadConfig loads the config file, tolerating a missing one.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// resolveInterface returns the configured interface, falling back to
// detection when unset.
func resolveInterface(ctx context.Context, cfg *config.Config, logger *slog.Logger) (string, error) {
	if iface := cfg.Interface(); iface != "" {
		return iface, nil
	}

	scanner := probe.NewScanner(logger)
	iface, err := scanner.DetectInterface(ctx)
	if err != nil {
		return "", fmt.Errorf("no WIFI_INTERFACE configured and detection failed: %w", err)
	}
	logger.Debug("detected interface", "interface", iface)
	return iface, nil
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(&colorHandler{level: lvl})
}

// colorHandler is a terse colored slog handler for terminal use.
type colorHandler struct {
	mu    sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{level: h.level, attrs: newAttrs}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return h
}
