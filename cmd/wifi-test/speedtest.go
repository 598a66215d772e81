// ABOUTME: The speedtest subcommand: measure the current connection or auto-connect
// ABOUTME: Builds the tool runner from config and prints or records results

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/wifi-test/internal/autoconnect"
	"github.com/2389/wifi-test/internal/config"
	"github.com/2389/wifi-test/internal/netman"
	"github.com/2389/wifi-test/internal/probe"
	"github.com/2389/wifi-test/internal/speedtest"
	"github.com/2389/wifi-test/internal/store"
)

type speedtestFlags struct {
	autoConnect bool
	prefix      string
	limit       int
	details     bool
	udp         bool
	quiet       bool
}

func parseSpeedtestFlags(args []string) (*speedtestFlags, error) {
	f := &speedtestFlags{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--auto-connect":
			f.autoConnect = true
		case arg == "-p" || arg == "--prefix":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			f.prefix = args[i+1]
			i++
		case strings.HasPrefix(arg, "--prefix="):
			f.prefix = strings.TrimPrefix(arg, "--prefix=")
		case arg == "--limit":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("--limit needs a positive number, got %q", args[i+1])
			}
			f.limit = n
			i++
		case strings.HasPrefix(arg, "--limit="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--limit="))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("--limit needs a positive number")
			}
			f.limit = n
		case arg == "--details":
			f.details = true
		case arg == "--udp":
			f.udp = true
		case arg == "-q" || arg == "--quiet":
			f.quiet = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
	}
	return f, nil
}

func cmdSpeedtest(ctx context.Context, logger *slog.Logger, args []string) error {
	flags, err := parseSpeedtestFlags(args)
	if err != nil {
		return err
	}
	if err := requireRadioAccess(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	iface, err := resolveInterface(ctx, cfg, logger)
	if err != nil {
		return err
	}

	runner, err := speedtest.New(speedtest.Options{
		Tool:      cfg.Tool(),
		Server:    cfg.Iperf3Server(),
		Ports:     cfg.Ports(),
		Bandwidth: cfg.Iperf3Bandwidth(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if err := runner.Verify(); err != nil {
		return err
	}

	if flags.autoConnect {
		return runAutoConnect(ctx, logger, cfg, iface, runner, flags)
	}
	return runSingleTest(ctx, logger, cfg, iface, runner, flags)
}

// runSingleTest measures the connection the interface already has.
func runSingleTest(ctx context.Context, logger *slog.Logger, cfg *config.Config, iface string, runner speedtest.Runner, flags *speedtestFlags) error {
	scanner := probe.NewScanner(logger)
	link, err := scanner.CurrentLink(ctx, iface)
	if err != nil {
		return err
	}
	if link.SSID == "" {
		logger.Warn("not associated to any network, testing the default route")
	} else {
		logger.Info("testing current connection", "ssid", link.SSID, "bssid", link.BSSID)
	}

	result, err := runner.Run(ctx, speedtest.Params{
		Interface: iface,
		UDP:       flags.udp,
		Bandwidth: cfg.Iperf3Bandwidth(),
	})
	if err != nil {
		return err
	}

	db, err := store.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	rec := &store.SpeedTestRecord{
		BSSID:        link.BSSID,
		SSID:         link.SSID,
		Tool:         result.Tool,
		DownloadMbps: result.DownloadMbps,
		UploadMbps:   result.UploadMbps,
		PingMs:       result.PingMs,
		JitterMs:     result.JitterMs,
		PacketLoss:   result.PacketLoss,
		Server:       result.Server,
		ISP:          result.ISP,
		ResultURL:    result.ResultURL,
		Timestamp:    result.Timestamp,
	}
	if err := db.UpsertSpeedTest(ctx, rec); err != nil {
		return fmt.Errorf("recording result: %w", err)
	}

	if !flags.quiet {
		printResult(link.SSID, result, flags.details)
	}
	return nil
}

// runAutoConnect walks every matching network through the
// orchestrator: join, measure, record, then restore.
func runAutoConnect(ctx context.Context, logger *slog.Logger, cfg *config.Config, iface string, runner speedtest.Runner, flags *speedtestFlags) error {
	password := cfg.GoldenPassword()
	if password == "" {
		return fmt.Errorf("auto-connect needs a shared password: wifi-test config set %s <password>", config.KeyGoldenPassword)
	}

	prefix := flags.prefix
	if prefix == "" {
		prefix = cfg.Prefix()
	}

	db, err := store.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	orch := autoconnect.New(
		probe.NewScanner(logger),
		netman.New(iface, logger),
		runner,
		db,
		logger,
	)

	summary, err := orch.Run(ctx, autoconnect.Options{
		Interface: iface,
		Password:  password,
		Prefix:    prefix,
		Limit:     flags.limit,
		Flush:     cfg.ScanFlush(),
		SaveScans: cfg.AutoSave(),
		Test: speedtest.Params{
			UDP:       flags.udp,
			Bandwidth: cfg.Iperf3Bandwidth(),
		},
	})
	if summary != nil && !flags.quiet {
		printSummary(summary, flags.details)
	}
	return err
}

func printResult(ssid string, r *speedtest.Result, details bool) {
	bold := color.New(color.Bold)
	if ssid != "" {
		bold.Printf("Results for %s (%s)\n\n", ssid, r.Tool)
	} else {
		bold.Printf("Results (%s)\n\n", r.Tool)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Download\t%.2f Mbps\n", r.DownloadMbps)
	fmt.Fprintf(w, "Upload\t%.2f Mbps\n", r.UploadMbps)
	if r.PingMs > 0 {
		fmt.Fprintf(w, "Ping\t%.1f ms\n", r.PingMs)
	}
	if details {
		fmt.Fprintf(w, "Jitter\t%.2f ms\n", r.JitterMs)
		fmt.Fprintf(w, "Packet loss\t%.2f %%\n", r.PacketLoss)
		if r.Server != "" {
			fmt.Fprintf(w, "Server\t%s\n", r.Server)
		}
		if r.ISP != "" {
			fmt.Fprintf(w, "ISP\t%s\n", r.ISP)
		}
		if r.ResultURL != "" {
			fmt.Fprintf(w, "Result URL\t%s\n", r.ResultURL)
		}
	}
	w.Flush()
}

func printSummary(s *autoconnect.Summary, details bool) {
	bold := color.New(color.Bold)
	fmt.Println()
	bold.Printf("Tested %d of %d matching networks (%d found)\n\n",
		s.Tested, len(s.Candidates), s.Found)

	if len(s.Candidates) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SSID\tBSSID\tSIGNAL\tDOWN\tUP\tPING\tSTATUS")
		for _, c := range s.Candidates {
			status := color.GreenString("ok")
			down, up, ping := "-", "-", "-"
			if c.Result != nil {
				down = fmt.Sprintf("%.1f", c.Result.DownloadMbps)
				up = fmt.Sprintf("%.1f", c.Result.UploadMbps)
				if c.Result.PingMs > 0 {
					ping = fmt.Sprintf("%.0f ms", c.Result.PingMs)
				}
			}
			if c.Err != nil {
				status = color.RedString(shortError(c.Err, details))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				c.Network.SSID, c.Network.BSSID, signalString(c.Network.Signal),
				down, up, ping, status)
		}
		w.Flush()
	}

	if s.Original.SSID != "" {
		if s.Restored {
			color.Green("\nRestored connection to %s", s.Original.SSID)
		} else {
			color.Red("\nFailed to restore connection to %s", s.Original.SSID)
		}
	}
}

// shortError trims a candidate error for table display unless details
// were requested.
func shortError(err error, details bool) string {
	msg := err.Error()
	if errors.Is(err, netman.ErrConnectFailed) && !details {
		return "connect failed"
	}
	if !details && len(msg) > 40 {
		return msg[:37] + "..."
	}
	return msg
}
