// ABOUTME: Key/value configuration for wifi-test with aliases and typed validation
// ABOUTME: Persists to a YAML file; loaded once at startup and passed by reference

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"
)

// Validation errors returned by Set.
var (
	ErrUnknownKey     = errors.New("unsupported configuration key")
	ErrInvalidValue   = errors.New("invalid configuration value")
	ErrPathUnwritable = errors.New("path is not writable")
)

// Canonical configuration keys.
const (
	KeyDBPath         = "DB_PATH"
	KeyInterface      = "WIFI_INTERFACE"
	KeyTool           = "SPEEDTEST_TOOL"
	KeyIperf3BW       = "IPERF3_BANDWIDTH"
	KeyIperf3Server   = "IPERF3_SERVER"
	KeyIperf3Ports    = "IPERF3_PORT_RANGE"
	KeyScanFlush      = "SCAN_FLUSH"
	KeyOutputDir      = "OUTPUT_DIR"
	KeyPrefix         = "PREFIX"
	KeyGoldenPassword = "GOLDEN_CONFIG_PASSWORD"
	KeyAutoSave       = "AUTO_SAVE"
)

// supportedKeys is the closed set of canonical keys; Set rejects
// anything that does not resolve into it.
var supportedKeys = map[string]bool{
	KeyDBPath:         true,
	KeyInterface:      true,
	KeyTool:           true,
	KeyIperf3BW:       true,
	KeyIperf3Server:   true,
	KeyIperf3Ports:    true,
	KeyScanFlush:      true,
	KeyOutputDir:      true,
	KeyPrefix:         true,
	KeyGoldenPassword: true,
	KeyAutoSave:       true,
}

// aliases maps common shorthand names (uppercased) to canonical keys.
var aliases = map[string]string{
	"PATH":            KeyDBPath,
	"DBPATH":          KeyDBPath,
	"DB":              KeyDBPath,
	"INTERFACE":       KeyInterface,
	"WIFI_IFACE":      KeyInterface,
	"SPEEDTEST":       KeyTool,
	"GOLDEN_PASSWORD": KeyGoldenPassword,
	"GOLDEN_PASS":     KeyGoldenPassword,
}

// toolAliases maps accepted tool spellings (uppercased) to the
// canonical tool names stored in config.
var toolAliases = map[string]string{
	"OOKLA":     "speedtest",
	"SPEEDTEST": "speedtest",
	"IPERF":     "iperf3",
	"IPERF3":    "iperf3",
}

// Config holds the key/value configuration backed by a YAML file.
// It is loaded once at startup and passed by reference through the
// command pipeline; it is not safe for concurrent mutation.
type Config struct {
	path   string
	values map[string]string
}

// DefaultPath returns the config file location.
// Priority: WIFI_TEST_CONFIG env var > XDG_CONFIG_HOME/wifi-test/config.yaml
// > ~/.config/wifi-test/config.yaml
func DefaultPath() string {
	if envPath := os.Getenv("WIFI_TEST_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "wifi-test", "config.yaml")
}

// Load reads the configuration file at path. A missing file is not an
// error; it yields an empty configuration that Save will create.
func Load(path string) (*Config, error) {
	c := &Config{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &c.values); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if c.values == nil {
		c.values = make(map[string]string)
	}

	return c, nil
}

// LoadDefault loads the configuration from DefaultPath.
func LoadDefault() (*Config, error) {
	return Load(DefaultPath())
}

// Path returns the backing file location.
func (c *Config) Path() string {
	return c.path
}

// ResolveAlias normalizes a key name to its canonical form. Resolution
// is case-insensitive and total: names that are neither canonical keys
// nor known aliases come back uppercased and unchanged, and Set will
// reject them.
func ResolveAlias(name string) string {
	k := strings.ToUpper(strings.TrimSpace(name))
	if canonical, ok := aliases[k]; ok {
		return canonical
	}
	return k
}

// SupportedKeys returns the canonical key names, sorted.
func SupportedKeys() []string {
	keys := make([]string, 0, len(supportedKeys))
	for k := range supportedKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value for a key (alias-resolved), or "" if unset.
func (c *Config) Get(key string) string {
	return c.values[ResolveAlias(key)]
}

// All returns a copy of every stored key/value pair.
func (c *Config) All() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Set validates and stores a value under its canonical key, then
// persists the full configuration. Unknown keys fail with
// ErrUnknownKey; values that fail their key's validation fail with
// ErrInvalidValue or ErrPathUnwritable without touching the file.
func (c *Config) Set(key, value string) error {
	canonical := ResolveAlias(key)
	if !supportedKeys[canonical] {
		return fmt.Errorf("%w: %q (supported: %s)",
			ErrUnknownKey, key, strings.Join(SupportedKeys(), ", "))
	}

	normalized, err := validate(canonical, value)
	if err != nil {
		return err
	}

	c.values[canonical] = normalized
	return c.Save()
}

// validate normalizes and checks a value for one canonical key.
func validate(key, value string) (string, error) {
	switch key {
	case KeyTool:
		v := strings.TrimSpace(value)
		if canonical, ok := toolAliases[strings.ToUpper(v)]; ok {
			return canonical, nil
		}
		return "", fmt.Errorf("%w: %s %q (allowed: iperf3, speedtest)",
			ErrInvalidValue, key, value)

	case KeyScanFlush, KeyAutoSave:
		b, err := parseBool(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s %q (expected true/false, 1/0, yes/no)",
				ErrInvalidValue, key, value)
		}
		return strconv.FormatBool(b), nil

	case KeyIperf3Ports:
		start, end, err := parsePortRange(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s %q (expected start-end with ports 1-65535 and start<=end)",
				ErrInvalidValue, key, value)
		}
		return fmt.Sprintf("%d-%d", start, end), nil

	case KeyOutputDir:
		dir := expandHome(strings.TrimSpace(value))
		if err := ensureWritableDir(dir); err != nil {
			return "", err
		}
		return dir, nil

	case KeyDBPath:
		path := expandHome(strings.TrimSpace(value))
		parent := filepath.Dir(path)
		// The DB file itself is created lazily on first write.
		if err := ensureWritableDir(parent); err != nil {
			return "", err
		}
		return path, nil
	}

	return value, nil
}

// parseBool accepts the usual truthy and falsey spellings,
// case-insensitively.
func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized boolean %q", value)
}

// parsePortRange parses "start-end" with both ends in [1,65535] and
// start <= end.
func parsePortRange(value string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected start-end")
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if start < 1 || start > 65535 || end < 1 || end > 65535 || start > end {
		return 0, 0, fmt.Errorf("ports out of range")
	}
	return start, end, nil
}

// ensureWritableDir creates dir if needed (idempotent) and verifies
// write access.
func ensureWritableDir(dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %q: %v", ErrPathUnwritable, dir, err)
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("%w: %q", ErrPathUnwritable, dir)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Save writes the full configuration map back to the YAML file,
// creating parent directories as needed.
func (c *Config) Save() error {
	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c.values)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
