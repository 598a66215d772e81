// ABOUTME: The scan subcommand: scan nearby networks, print and record them
// ABOUTME: Flag parsing, prefix filtering and the colored results table

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/wifi-test/internal/probe"
	"github.com/2389/wifi-test/internal/store"
)

type scanFlags struct {
	prefix    string
	prefixSet bool
	limit     int
	quiet     bool
	save      bool
	saveSet   bool
}

func parseScanFlags(args []string) (*scanFlags, error) {
	f := &scanFlags{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		// Three-way prefix: no flag means no filtering, a bare -p means
		// the configured prefix, -p VALUE means that value.
		case arg == "-p" || arg == "--prefix":
			f.prefixSet = true
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				f.prefix = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--prefix="):
			f.prefixSet = true
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
		case arg == "-q" || arg == "--quiet":
			f.quiet = true
		case arg == "--save":
			f.save = true
			f.saveSet = true
		case arg == "--no-save":
			f.save = false
			f.saveSet = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
	}
	return f, nil
}

func cmdScan(ctx context.Context, logger *slog.Logger, args []string) error {
	flags, err := parseScanFlags(args)
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

	var prefix string
	if flags.prefixSet {
		prefix = flags.prefix
		if prefix == "" {
			prefix = cfg.Prefix()
		}
	}
	save := cfg.AutoSave()
	if flags.saveSet {
		save = flags.save
	}

	scanner := probe.NewScanner(logger)
	networks, err := scanner.Scan(ctx, iface, cfg.ScanFlush())
	if err != nil {
		return err
	}

	networks = filterNetworks(networks, prefix, flags.limit)

	if save && len(networks) > 0 {
		db, err := store.New(cfg.DBPath(), logger)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		n, err := db.UpsertScans(ctx, networks)
		if err != nil {
			return fmt.Errorf("saving scan results: %w", err)
		}
		logger.Info("saved scan results", "networks", n, "db", cfg.DBPath())
	}

	if !flags.quiet {
		printNetworks(networks)
	}
	return nil
}

// filterNetworks applies the SSID prefix, collapses duplicate BSSIDs,
// sorts strongest first and truncates to limit.
func filterNetworks(networks []store.NetworkRecord, prefix string, limit int) []store.NetworkRecord {
	seen := make(map[string]bool, len(networks))
	var out []store.NetworkRecord
	for _, n := range networks {
		if prefix != "" && !strings.HasPrefix(n.SSID, prefix) {
			continue
		}
		if seen[n.BSSID] {
			continue
		}
		seen[n.BSSID] = true
		out = append(out, n)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Signal > out[j].Signal
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func printNetworks(networks []store.NetworkRecord) {
	if len(networks) == 0 {
		color.Yellow("No networks found")
		return
	}

	bold := color.New(color.Bold)
	bold.Printf("Found %d networks\n\n", len(networks))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SSID\tBSSID\tBAND\tCHAN\tSIGNAL\tSECURITY")
	for _, n := range networks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			n.SSID, n.BSSID, n.Band, n.Channel, signalString(n.Signal), n.Security)
	}
	w.Flush()
}

// signalString colors a dBm reading by rough usability bands.
func signalString(dbm float64) string {
	s := fmt.Sprintf("%.0f dBm", dbm)
	switch {
	case dbm >= -50:
		return color.GreenString(s)
	case dbm >= -70:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}
