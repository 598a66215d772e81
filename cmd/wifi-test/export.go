// ABOUTME: The export subcommand: dump recorded results to a CSV file
// ABOUTME: Resolves the output path from config and fixes sudo ownership

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/wifi-test/internal/export"
	"github.com/2389/wifi-test/internal/store"
)

type exportFlags struct {
	output string
	force  bool
}

func parseExportFlags(args []string) (*exportFlags, error) {
	f := &exportFlags{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-o" || arg == "--output":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			f.output = args[i+1]
			i++
		case strings.HasPrefix(arg, "--output="):
			f.output = strings.TrimPrefix(arg, "--output=")
		case arg == "--force" || arg == "-f":
			f.force = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
	}
	return f, nil
}

func cmdExport(ctx context.Context, logger *slog.Logger, args []string) error {
	flags, err := parseExportFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryAll(ctx)
	if err != nil {
		return fmt.Errorf("reading results: %w", err)
	}
	if len(rows) == 0 {
		color.Yellow("No results recorded yet, nothing to export")
		return nil
	}

	path := flags.output
	if path == "" {
		name := fmt.Sprintf("wifi-results-%s.csv", time.Now().Format("20060102-150405"))
		path = filepath.Join(cfg.OutputDir(), name)
	}

	if err := export.WriteFile(path, rows, flags.force); err != nil {
		return err
	}
	if err := export.FixOwnership(path); err != nil {
		logger.Warn("could not fix file ownership", "path", path, "error", err)
	}

	color.Green("Exported %d rows to %s", len(rows), path)
	return nil
}
