// ABOUTME: The config subcommand: init, set, get and detect-interface
// ABOUTME: Reads and writes the YAML config through the config package

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/wifi-test/internal/config"
	"github.com/2389/wifi-test/internal/probe"
)

func cmdConfig(ctx context.Context, logger *slog.Logger, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: wifi-test config <init|set|get|detect-interface>")
	}

	switch args[0] {
	case "init":
		return configInit(ctx, logger)
	case "set":
		return configSet(args[1:])
	case "get":
		return configGet(args[1:])
	case "detect-interface":
		return configDetectInterface(ctx, logger)
	}
	return fmt.Errorf("unknown config subcommand: %s", args[0])
}

// configInit seeds the default values, leaving keys that are already
// set alone. The interface default is auto-detected when iw is
// available.
func configInit(ctx context.Context, logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var detected string
	if iface, err := probe.NewScanner(logger).DetectInterface(ctx); err == nil {
		detected = iface
	} else {
		logger.Debug("interface detection failed", "error", err)
	}
	iface := detected
	if iface == "" {
		iface = "wlan0"
	}

	defaults := []struct{ key, value string }{
		{config.KeyDBPath, "wifi_data.db"},
		{config.KeyInterface, iface},
		{config.KeyTool, "speedtest"},
		{config.KeyScanFlush, "true"},
		{config.KeyOutputDir, "."},
	}

	fmt.Println("Initializing configuration with defaults...")
	for _, d := range defaults {
		if cfg.Get(d.key) != "" {
			fmt.Printf("  Skipped %s (already set)\n", d.key)
			continue
		}
		if err := cfg.Set(d.key, d.value); err != nil {
			return fmt.Errorf("seeding %s: %w", d.key, err)
		}
		if d.key == config.KeyInterface && detected != "" {
			fmt.Printf("  Set %s=%s (auto-detected)\n", d.key, cfg.Get(d.key))
		} else {
			fmt.Printf("  Set %s=%s\n", d.key, cfg.Get(d.key))
		}
	}

	color.Green("Configuration initialized: %s", cfg.Path())
	fmt.Println("Set values with: wifi-test config set <key> <value>")
	return nil
}

func configSet(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: wifi-test config set <key> <value>")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key := config.ResolveAlias(args[0])
	if err := cfg.Set(key, args[1]); err != nil {
		if errors.Is(err, config.ErrUnknownKey) {
			return fmt.Errorf("%w; supported keys: %v", err, config.SupportedKeys())
		}
		return err
	}

	color.Green("%s = %s", key, cfg.Get(key))
	return nil
}

func configGet(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) > 0 {
		key := config.ResolveAlias(args[0])
		value := cfg.Get(key)
		if value == "" {
			fmt.Printf("%s is not set\n", key)
			return nil
		}
		fmt.Println(value)
		return nil
	}

	values := cfg.All()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		v := values[k]
		if k == config.KeyGoldenPassword && v != "" {
			v = "********"
		}
		fmt.Fprintf(w, "%s\t%s\n", k, v)
	}
	return w.Flush()
}

func configDetectInterface(ctx context.Context, logger *slog.Logger) error {
	if err := requireRadioAccess(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	scanner := probe.NewScanner(logger)
	iface, err := scanner.DetectInterface(ctx)
	if err != nil {
		return err
	}

	if err := cfg.SetInterface(iface); err != nil {
		return fmt.Errorf("saving interface: %w", err)
	}

	color.Green("Detected %s, saved to %s", iface, cfg.Path())
	return nil
}
