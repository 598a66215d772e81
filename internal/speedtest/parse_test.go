package speedtest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Captured from `speedtest --format=json`, trimmed to the consumed
// fields plus typical siblings.
const sampleOoklaJSON = `{
  "type": "result",
  "timestamp": "2025-07-14T09:12:44Z",
  "ping": {"jitter": 1.271, "latency": 8.413},
  "download": {"bandwidth": 117250561, "bytes": 421380480, "elapsed": 3600},
  "upload": {"bandwidth": 23418302, "bytes": 84393216, "elapsed": 3601},
  "packetLoss": 0.5,
  "isp": "Example Fiber",
  "interface": {"externalIp": "203.0.113.7"},
  "server": {"id": 4392, "name": "Example DC", "location": "Springfield"},
  "result": {"id": "abcd-1234", "url": "https://www.speedtest.net/result/c/abcd-1234"}
}`

// Captured from `iperf3 -c 192.168.1.10 -J` (TCP mode).
const sampleIperf3TCP = `{
  "start": {
    "connecting_to": {"host": "192.168.1.10", "port": 5201},
    "version": "iperf 3.12",
    "test_start": {"protocol": "TCP", "duration": 10}
  },
  "intervals": [],
  "end": {
    "sum_sent": {"start": 0, "end": 10.0, "bytes": 587202560, "bits_per_second": 469762048.0, "retransmits": 12},
    "sum_received": {"start": 0, "end": 10.0, "bytes": 612368384, "bits_per_second": 489894707.2}
  }
}`

// Captured from `iperf3 -c 192.168.1.10 -u -b 100M -J` (UDP mode).
const sampleIperf3UDP = `{
  "start": {
    "connecting_to": {"host": "192.168.1.10", "port": 5201},
    "test_start": {"protocol": "UDP", "duration": 10}
  },
  "intervals": [],
  "end": {
    "sum": {"start": 0, "end": 10.0, "bytes": 125000000, "bits_per_second": 100000000.0, "jitter_ms": 0.042, "lost_packets": 17, "packets": 85470, "lost_percent": 0.0199}
  }
}`

func TestParseOoklaOutput(t *testing.T) {
	res, err := parseOoklaOutput(sampleOoklaJSON)
	require.NoError(t, err)

	assert.Equal(t, "speedtest", res.Tool)
	assert.InDelta(t, 117.25, res.DownloadMbps, 0.01)
	assert.InDelta(t, 23.42, res.UploadMbps, 0.01)
	assert.InDelta(t, 8.413, res.PingMs, 0.001)
	assert.InDelta(t, 1.271, res.JitterMs, 0.001)
	assert.InDelta(t, 0.5, res.PacketLoss, 0.001)
	assert.Equal(t, "Example DC", res.Server)
	assert.Equal(t, "Example Fiber", res.ISP)
	assert.Equal(t, "https://www.speedtest.net/result/c/abcd-1234", res.ResultURL)
	assert.Equal(t, 2025, res.Timestamp.Year())
}

func TestParseOoklaOutput_Invalid(t *testing.T) {
	_, err := parseOoklaOutput("speedtest: error: license not accepted")
	assert.ErrorIs(t, err, ErrParse)

	_, err = parseOoklaOutput(`{"type":"log","message":"starting"}`)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseIperf3Output_TCP(t *testing.T) {
	res, err := parseIperf3Output(sampleIperf3TCP)
	require.NoError(t, err)

	assert.Equal(t, "iperf3", res.Tool)
	assert.InDelta(t, 489.89, res.DownloadMbps, 0.01, "received side is download")
	assert.InDelta(t, 469.76, res.UploadMbps, 0.01, "sent side is upload")
	assert.Zero(t, res.JitterMs)
	assert.Zero(t, res.PacketLoss)
	assert.Equal(t, "192.168.1.10", res.Server)
}

func TestParseIperf3Output_UDP(t *testing.T) {
	res, err := parseIperf3Output(sampleIperf3UDP)
	require.NoError(t, err)

	assert.Zero(t, res.DownloadMbps, "UDP summary has no received sum")
	assert.InDelta(t, 0.042, res.JitterMs, 0.0001)
	assert.InDelta(t, 0.0199, res.PacketLoss, 0.0001)
}

func TestParseIperf3Output_Invalid(t *testing.T) {
	_, err := parseIperf3Output("iperf3: error - unable to connect to server")
	assert.ErrorIs(t, err, ErrParse)

	_, err = parseIperf3Output(`{"start": {}, "end": {}}`)
	assert.ErrorIs(t, err, ErrParse)
}

func TestNew_UnknownTool(t *testing.T) {
	_, err := New(Options{Tool: "netperf"})
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestNew_Dispatch(t *testing.T) {
	r, err := New(Options{Tool: "speedtest"})
	require.NoError(t, err)
	assert.IsType(t, &ooklaRunner{}, r)

	r, err = New(Options{Tool: "iperf3", Server: "10.0.0.1", Ports: []int{5201}})
	require.NoError(t, err)
	assert.IsType(t, &iperf3Runner{}, r)
}

func TestIperf3_UDPRequiresBandwidth(t *testing.T) {
	r := &iperf3Runner{server: "10.0.0.1", ports: []int{5201}, duration: 10, logger: testLogger()}

	_, err := r.Run(context.Background(), Params{UDP: true})
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestIperf3_RequiresServer(t *testing.T) {
	r := &iperf3Runner{duration: 10, logger: testLogger()}

	_, err := r.Run(context.Background(), Params{})
	assert.ErrorIs(t, err, ErrBadParams)
}
