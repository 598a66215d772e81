// ABOUTME: Data types and errors for wifi-test result persistence
// ABOUTME: Defines NetworkRecord, SpeedTestRecord and the unified result row

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Tool identifiers for speed test records
const (
	ToolSpeedtest = "speedtest" // Ookla CLI
	ToolIperf3    = "iperf3"
)

// NetworkRecord is one access point observed during a scan.
// The BSSID is the unique device key: scanning the same AP twice
// overwrites the mutable fields of its single row.
type NetworkRecord struct {
	BSSID     string
	SSID      string
	Frequency float64 // MHz
	Band      string  // 2.4GHz, 5GHz, 6GHz
	Signal    float64 // dBm
	Channel   int
	Security  string
	Timestamp time.Time // when the scan observed the AP
}

// SpeedTestRecord is one throughput measurement. BSSID may be empty
// when the test ran without a specific AP context (current connection
// could not be identified).
type SpeedTestRecord struct {
	BSSID        string
	SSID         string
	Tool         string // ToolSpeedtest or ToolIperf3
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

// ResultRow is the unified network_results row: scan fields and the
// latest measurement for one device, keyed by BSSID. Measurement
// fields are zero when the AP was scanned but never speed-tested.
type ResultRow struct {
	BSSID        string
	SSID         string
	Frequency    float64
	Band         string
	Signal       float64
	Channel      int
	Security     string
	Tool         string
	DownloadMbps float64
	UploadMbps   float64
	PingMs       float64
	JitterMs     float64
	PacketLoss   float64
	Server       string
	ISP          string
	ResultURL    string
	CreatedAt    time.Time // UTC, set by the store at write time
}
