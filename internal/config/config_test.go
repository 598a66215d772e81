package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestConfig creates a config backed by a temp file.
func setupTestConfig(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	return cfg
}

func TestResolveAlias(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"db_path", "DB_PATH"},
		{"DB_PATH", "DB_PATH"},
		{"path", "DB_PATH"},
		{"DBPATH", "DB_PATH"},
		{"db", "DB_PATH"},
		{"interface", "WIFI_INTERFACE"},
		{"wifi_iface", "WIFI_INTERFACE"},
		{"speedtest", "SPEEDTEST_TOOL"},
		{"golden_password", "GOLDEN_CONFIG_PASSWORD"},
		{"golden_pass", "GOLDEN_CONFIG_PASSWORD"},
		{"prefix", "PREFIX"},
		{"bogus_key", "BOGUS_KEY"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveAlias(tt.in), "alias %q", tt.in)
	}
}

func TestConfig_Set_UnknownKey(t *testing.T) {
	cfg := setupTestConfig(t)

	err := cfg.Set("no_such_key", "value")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestConfig_Set_Tool(t *testing.T) {
	cfg := setupTestConfig(t)

	tests := []struct {
		in   string
		want string
	}{
		{"speedtest", "speedtest"},
		{"SPEEDTEST", "speedtest"},
		{"ookla", "speedtest"},
		{"OOKLA", "speedtest"},
		{"iperf", "iperf3"},
		{"iperf3", "iperf3"},
		{"IPERF3", "iperf3"},
	}

	for _, tt := range tests {
		require.NoError(t, cfg.Set(KeyTool, tt.in))
		assert.Equal(t, tt.want, cfg.Get(KeyTool), "tool %q", tt.in)
	}

	err := cfg.Set(KeyTool, "netperf")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestConfig_Set_Booleans(t *testing.T) {
	cfg := setupTestConfig(t)

	truthy := []string{"true", "TRUE", "True", "1", "yes", "YES", "Yes"}
	falsey := []string{"false", "FALSE", "False", "0", "no", "NO", "No"}

	for _, v := range truthy {
		require.NoError(t, cfg.Set(KeyScanFlush, v), "value %q", v)
		assert.Equal(t, "true", cfg.Get(KeyScanFlush), "value %q", v)
	}
	for _, v := range falsey {
		require.NoError(t, cfg.Set(KeyAutoSave, v), "value %q", v)
		assert.Equal(t, "false", cfg.Get(KeyAutoSave), "value %q", v)
	}

	for _, v := range []string{"maybe", "2", "on", "off", "", "yess"} {
		err := cfg.Set(KeyScanFlush, v)
		assert.ErrorIs(t, err, ErrInvalidValue, "value %q must be rejected", v)
	}
}

func TestConfig_Set_PortRange(t *testing.T) {
	cfg := setupTestConfig(t)

	valid := []struct {
		in   string
		want string
	}{
		{"5201-5201", "5201-5201"},
		{"5201-5210", "5201-5210"},
		{"1-65535", "1-65535"},
		{" 5300 - 5310 ", "5300-5310"},
	}
	for _, tt := range valid {
		require.NoError(t, cfg.Set(KeyIperf3Ports, tt.in), "range %q", tt.in)
		assert.Equal(t, tt.want, cfg.Get(KeyIperf3Ports))
	}

	invalid := []string{
		"5300-5290", // start > end
		"0-100",
		"1-65536",
		"5201",
		"5201-5202-5203",
		"abc-def",
		"",
	}
	for _, v := range invalid {
		err := cfg.Set(KeyIperf3Ports, v)
		assert.ErrorIs(t, err, ErrInvalidValue, "range %q must be rejected", v)
	}
}

func TestConfig_Set_OutputDir_CreatesDirectory(t *testing.T) {
	cfg := setupTestConfig(t)

	dir := filepath.Join(t.TempDir(), "exports", "nested")
	require.NoError(t, cfg.Set(KeyOutputDir, dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent: setting the same dir again is not an error.
	require.NoError(t, cfg.Set(KeyOutputDir, dir))
}

func TestConfig_Set_DBPath_CreatesParent(t *testing.T) {
	cfg := setupTestConfig(t)

	dbPath := filepath.Join(t.TempDir(), "data", "wifi.db")
	require.NoError(t, cfg.Set(KeyDBPath, dbPath))

	// Parent exists, DB file itself is deferred to first write.
	_, err := os.Stat(filepath.Dir(dbPath))
	require.NoError(t, err)
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
}

func TestConfig_Set_OutputDir_Unwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission checks")
	}
	cfg := setupTestConfig(t)

	parent := t.TempDir()
	require.NoError(t, os.Chmod(parent, 0o555))
	t.Cleanup(func() { os.Chmod(parent, 0o755) })

	err := cfg.Set(KeyOutputDir, filepath.Join(parent, "out"))
	assert.ErrorIs(t, err, ErrPathUnwritable)
}

func TestConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Set(KeyPrefix, "LAB-"))
	require.NoError(t, cfg.Set(KeyIperf3Server, "192.168.1.10"))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "LAB-", reloaded.Get("prefix"))
	assert.Equal(t, "192.168.1.10", reloaded.Get(KeyIperf3Server))
}

func TestConfig_TypedGetters_Defaults(t *testing.T) {
	cfg := setupTestConfig(t)

	assert.Equal(t, "wifi_data.db", cfg.DBPath())
	assert.Equal(t, "speedtest", cfg.Tool())
	assert.Equal(t, "100M", cfg.Iperf3Bandwidth())
	assert.Equal(t, ".", cfg.OutputDir())
	assert.True(t, cfg.ScanFlush())
	assert.True(t, cfg.AutoSave())

	start, end := cfg.PortRange()
	assert.Equal(t, 5201, start)
	assert.Equal(t, 5201, end)
}

func TestConfig_Ports_ExpandsRange(t *testing.T) {
	cfg := setupTestConfig(t)
	require.NoError(t, cfg.Set(KeyIperf3Ports, "5201-5204"))

	assert.Equal(t, []int{5201, 5202, 5203, 5204}, cfg.Ports())
}

func TestConfig_Interface_AutoMeansUnset(t *testing.T) {
	cfg := setupTestConfig(t)

	for _, v := range []string{"auto", "default", "AUTO"} {
		cfg.values[KeyInterface] = v
		assert.Empty(t, cfg.Interface(), "value %q", v)
	}

	cfg.values[KeyInterface] = "wlp15s0"
	assert.Equal(t, "wlp15s0", cfg.Interface())
}

func TestParsePortRange_Bounds(t *testing.T) {
	for _, tt := range []struct {
		a, b int
		ok   bool
	}{
		{1, 1, true},
		{1, 65535, true},
		{5201, 5210, true},
		{5210, 5201, false},
		{0, 10, false},
		{10, 65536, false},
	} {
		_, _, err := parsePortRange(fmt.Sprintf("%d-%d", tt.a, tt.b))
		if tt.ok {
			assert.NoError(t, err, "%d-%d", tt.a, tt.b)
		} else {
			assert.Error(t, err, "%d-%d", tt.a, tt.b)
		}
	}
}
