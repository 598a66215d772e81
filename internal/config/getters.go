// ABOUTME: Typed accessors with defaults for the wifi-test configuration keys
// ABOUTME: Keeps stringly-typed storage behind one conversion surface

package config

import (
	"strconv"
	"strings"
)

// DBPath returns the results database path.
func (c *Config) DBPath() string {
	if v := c.Get(KeyDBPath); v != "" {
		return v
	}
	return "wifi_data.db"
}

// Interface returns the configured WiFi interface name. "" means not
// set; "auto" and "default" also mean the caller should detect one.
func (c *Config) Interface() string {
	v := c.Get(KeyInterface)
	switch strings.ToLower(v) {
	case "auto", "default":
		return ""
	}
	return v
}

// SetInterface stores a detected interface name without revalidation.
func (c *Config) SetInterface(iface string) error {
	c.values[KeyInterface] = iface
	return c.Save()
}

// Tool returns the configured speed test tool, defaulting to the
// Ookla CLI.
func (c *Config) Tool() string {
	v := c.Get(KeyTool)
	if canonical, ok := toolAliases[strings.ToUpper(v)]; ok {
		return canonical
	}
	return "speedtest"
}

// Iperf3Server returns the iperf3 server address, or "".
func (c *Config) Iperf3Server() string {
	return c.Get(KeyIperf3Server)
}

// Iperf3Bandwidth returns the iperf3 -b value for UDP tests.
func (c *Config) Iperf3Bandwidth() string {
	if v := c.Get(KeyIperf3BW); v != "" {
		return v
	}
	return "100M"
}

// PortRange returns the iperf3 port range, defaulting to 5201-5201.
func (c *Config) PortRange() (int, int) {
	start, end, err := parsePortRange(c.Get(KeyIperf3Ports))
	if err != nil {
		return 5201, 5201
	}
	return start, end
}

// Ports expands the configured port range into the ordered list of
// ports to try.
func (c *Config) Ports() []int {
	start, end := c.PortRange()
	ports := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		ports = append(ports, p)
	}
	return ports
}

// ScanFlush reports whether the scan cache should be flushed before
// scanning. Defaults to true.
func (c *Config) ScanFlush() bool {
	return c.boolOr(KeyScanFlush, true)
}

// AutoSave reports whether scan and test results are saved to the
// database automatically. Defaults to true.
func (c *Config) AutoSave() bool {
	return c.boolOr(KeyAutoSave, true)
}

// OutputDir returns the CSV export directory, defaulting to ".".
func (c *Config) OutputDir() string {
	if v := c.Get(KeyOutputDir); v != "" {
		return v
	}
	return "."
}

// Prefix returns the configured SSID prefix filter, or "".
func (c *Config) Prefix() string {
	return c.Get(KeyPrefix)
}

// GoldenPassword returns the golden-config network password, or "".
func (c *Config) GoldenPassword() string {
	return c.Get(KeyGoldenPassword)
}

func (c *Config) boolOr(key string, def bool) bool {
	v := c.Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
