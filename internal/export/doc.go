// ABOUTME: Package documentation for CSV export
// ABOUTME: One row per BSSID mirroring the unified results table

// Package export renders the unified results table to CSV with a
// fixed header, for spreadsheets and downstream tooling.
package export
