// Package probe scans for WiFi networks by driving the iw command and
// parsing its textual output into typed records. It also detects the
// active wireless interface and reads the identity (SSID and BSSID) of
// the current association, which the auto-connect orchestrator captures
// before touching the radio.
package probe
