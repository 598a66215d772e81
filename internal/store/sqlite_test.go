package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestStore_UpsertScan(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := &NetworkRecord{
		BSSID:     "aa:bb:cc:dd:ee:01",
		SSID:      "lab-ap",
		Frequency: 5180,
		Band:      "5GHz",
		Signal:    -44.0,
		Channel:   36,
		Security:  "WPA2/WPA3",
	}

	err := s.UpsertScan(ctx, rec)
	require.NoError(t, err)

	row, err := s.Get(ctx, "aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	assert.Equal(t, "lab-ap", row.SSID)
	assert.Equal(t, -44.0, row.Signal)
	assert.Equal(t, 36, row.Channel)
	assert.False(t, row.CreatedAt.IsZero())
}

func TestStore_UpsertScan_SameBSSIDTwice(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := &NetworkRecord{
		BSSID:  "aa:bb:cc:dd:ee:02",
		SSID:   "lab-ap",
		Signal: -70.0,
	}
	require.NoError(t, s.UpsertScan(ctx, first))

	second := &NetworkRecord{
		BSSID:  "aa:bb:cc:dd:ee:02",
		SSID:   "lab-ap",
		Signal: -52.5,
	}
	require.NoError(t, s.UpsertScan(ctx, second))

	rows, err := s.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1, "upsert must never duplicate a bssid")
	assert.Equal(t, -52.5, rows[0].Signal, "latest scan wins")
}

func TestStore_UpsertSpeedTest_PreservesScanFields(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	scan := &NetworkRecord{
		BSSID:     "aa:bb:cc:dd:ee:03",
		SSID:      "lab-ap",
		Frequency: 2437,
		Band:      "2.4GHz",
		Signal:    -61.0,
		Channel:   6,
		Security:  "WPA2/WPA3",
	}
	require.NoError(t, s.UpsertScan(ctx, scan))

	test := &SpeedTestRecord{
		BSSID:        "aa:bb:cc:dd:ee:03",
		SSID:         "lab-ap",
		Tool:         ToolIperf3,
		DownloadMbps: 412.7,
		UploadMbps:   388.1,
		JitterMs:     0.3,
		Server:       "192.168.1.10",
	}
	require.NoError(t, s.UpsertSpeedTest(ctx, test))

	row, err := s.Get(ctx, "aa:bb:cc:dd:ee:03")
	require.NoError(t, err)

	// Measurement columns updated
	assert.Equal(t, ToolIperf3, row.Tool)
	assert.Equal(t, 412.7, row.DownloadMbps)
	assert.Equal(t, 388.1, row.UploadMbps)

	// Scan columns untouched
	assert.Equal(t, "2.4GHz", row.Band)
	assert.Equal(t, 6, row.Channel)
	assert.Equal(t, -61.0, row.Signal)
}

func TestStore_UpsertSpeedTest_WithoutPriorScan(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	test := &SpeedTestRecord{
		BSSID:        "aa:bb:cc:dd:ee:04",
		SSID:         "office",
		Tool:         ToolSpeedtest,
		DownloadMbps: 95.2,
		UploadMbps:   18.4,
		PingMs:       12.1,
		ISP:          "Example ISP",
	}
	require.NoError(t, s.UpsertSpeedTest(ctx, test))

	row, err := s.Get(ctx, "aa:bb:cc:dd:ee:04")
	require.NoError(t, err)
	assert.Equal(t, "office", row.SSID)
	assert.Equal(t, 95.2, row.DownloadMbps)
	assert.Empty(t, row.Band, "no scan data for this row")
}

func TestStore_Get_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Get(context.Background(), "00:00:00:00:00:00")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpsertScans_Batch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	recs := []NetworkRecord{
		{BSSID: "aa:bb:cc:dd:ee:10", SSID: "a", Signal: -80},
		{BSSID: "aa:bb:cc:dd:ee:11", SSID: "b", Signal: -40},
		{BSSID: "aa:bb:cc:dd:ee:12", SSID: "c", Signal: -60},
	}

	n, err := s.UpsertScans(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := s.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Strongest signal first
	assert.Equal(t, "b", rows[0].SSID)
	assert.Equal(t, "c", rows[1].SSID)
	assert.Equal(t, "a", rows[2].SSID)
}

func TestStore_CreatedAt_IsUTC(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// The write timestamp comes from the store, not the caller.
	rec := &NetworkRecord{
		BSSID:     "aa:bb:cc:dd:ee:20",
		SSID:      "x",
		Timestamp: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertScan(ctx, rec))

	row, err := s.Get(ctx, "aa:bb:cc:dd:ee:20")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), row.CreatedAt, time.Minute)
}
