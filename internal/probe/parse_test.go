package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Captured from `iw dev wlp15s0 scan` on a dual-band test rig,
// trimmed to the fields the parser consumes plus surrounding noise.
const sampleScanOutput = `BSS 34:ca:81:49:15:ff(on wlp15s0) -- associated
	last seen: 1337.684s [boottime]
	TSF: 190290156349 usec (2d, 04:51:30)
	freq: 5180.0
	beacon interval: 100 TUs
	capability: ESS Privacy SpectrumMgmt RadioMeasure (0x1111)
	signal: -47.00 dBm
	last seen: 40 ms ago
	SSID: JB_NEW
	Supported rates: 6.0* 9.0 12.0* 18.0 24.0* 36.0 48.0 54.0
	RSN:	 * Version: 1
		 * Group cipher: CCMP
		 * Pairwise ciphers: CCMP
		 * Authentication suites: PSK SAE
	WPS:	 * Version: 1.0
BSS aa:bb:cc:00:11:22(on wlp15s0)
	freq: 2437.0
	signal: -66.50 dBm
	SSID: LAB-floor2
	DS Parameter set: channel 6
	WPA:	 * Version: 1
		 * Group cipher: TKIP
BSS de:ad:be:ef:00:01(on wlp15s0)
	freq: 2412.0
	signal: -81.00 dBm
	SSID:
	DS Parameter set: channel 1
BSS aa:bb:cc:00:11:33(on wlp15s0)
	freq: 5745.0
	signal: -59.00 dBm
	SSID: LAB-floor3
	RSN:	 * Version: 1
		 * Group cipher: CCMP
`

const sampleLinkOutput = `Connected to 34:ca:81:49:15:ff (on wlp15s0)
	SSID: JB_NEW
	freq: 5180
	RX: 2314412 bytes (14541 packets)
	TX: 250222 bytes (2087 packets)
	signal: -47 dBm
	rx bitrate: 433.3 MBit/s
	tx bitrate: 390.0 MBit/s
`

const sampleDevOutput = `phy#0
	Interface wlp15s0
		ifindex 3
		wdev 0x1
		addr 11:22:33:44:55:66
		type managed
		channel 36 (5180 MHz), width: 80 MHz, center1: 5210 MHz
`

func TestParseScanOutput(t *testing.T) {
	results := parseScanOutput(sampleScanOutput)

	// The hidden-SSID BSS is dropped.
	require.Len(t, results, 3)

	first := results[0]
	assert.Equal(t, "34:ca:81:49:15:ff", first.BSSID)
	assert.Equal(t, "JB_NEW", first.SSID)
	assert.Equal(t, 5180.0, first.Frequency)
	assert.Equal(t, "5GHz", first.Band)
	assert.Equal(t, -47.0, first.Signal)
	assert.Equal(t, "WPA2/WPA3", first.Security)

	second := results[1]
	assert.Equal(t, "aa:bb:cc:00:11:22", second.BSSID)
	assert.Equal(t, "LAB-floor2", second.SSID)
	assert.Equal(t, "2.4GHz", second.Band)
	assert.Equal(t, 6, second.Channel)
	assert.Equal(t, "WPA", second.Security)

	third := results[2]
	assert.Equal(t, "LAB-floor3", third.SSID)
	assert.Equal(t, "5GHz", third.Band)
	assert.Equal(t, "WPA2/WPA3", third.Security)
}

func TestParseScanOutput_Empty(t *testing.T) {
	assert.Empty(t, parseScanOutput(""))
	assert.Empty(t, parseScanOutput("command failed: Network is down (-100)"))
}

func TestParseDevOutput(t *testing.T) {
	assert.Equal(t, "wlp15s0", parseDevOutput(sampleDevOutput))
	assert.Empty(t, parseDevOutput("phy#0\n"))
}

func TestParseLinkOutput(t *testing.T) {
	link := parseLinkOutput(sampleLinkOutput)
	assert.Equal(t, "JB_NEW", link.SSID)
	assert.Equal(t, "34:ca:81:49:15:ff", link.BSSID)
}

func TestParseLinkOutput_NotConnected(t *testing.T) {
	link := parseLinkOutput("Not connected.\n")
	assert.Empty(t, link.SSID)
	assert.Empty(t, link.BSSID)
}

func TestBand(t *testing.T) {
	tests := []struct {
		freq float64
		want string
	}{
		{2412, "2.4GHz"},
		{2484, "2.4GHz"},
		{5180, "5GHz"},
		{5745, "5GHz"},
		{6115, "6GHz"},
		{7125, "6GHz"},
		{900, "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Band(tt.freq), "freq %v", tt.freq)
	}
}
