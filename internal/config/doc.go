// Package config manages the wifi-test key/value configuration.
//
// # Keys and Aliases
//
// The canonical key set is closed:
//
//	DB_PATH, WIFI_INTERFACE, SPEEDTEST_TOOL, IPERF3_BANDWIDTH,
//	IPERF3_SERVER, IPERF3_PORT_RANGE, SCAN_FLUSH, OUTPUT_DIR,
//	PREFIX, GOLDEN_CONFIG_PASSWORD, AUTO_SAVE
//
// Incoming key names are uppercased and resolved through an alias
// table (PATH/DBPATH/DB -> DB_PATH, INTERFACE/WIFI_IFACE ->
// WIFI_INTERFACE, SPEEDTEST -> SPEEDTEST_TOOL, GOLDEN_PASSWORD/
// GOLDEN_PASS -> GOLDEN_CONFIG_PASSWORD). Writes to keys outside the
// set fail with ErrUnknownKey.
//
// # Validation
//
// Set validates per key type before persisting:
//
//   - SPEEDTEST_TOOL accepts ookla/speedtest/iperf/iperf3 spellings and
//     stores the canonical tool name
//   - SCAN_FLUSH and AUTO_SAVE accept true/1/yes and false/0/no in any
//     case and store canonical "true"/"false"
//   - IPERF3_PORT_RANGE must be "start-end" with both ports in
//     [1,65535] and start <= end
//   - OUTPUT_DIR and DB_PATH trigger idempotent directory creation and
//     a writability check; failures map to ErrPathUnwritable
//
// # Storage
//
// Values persist as a flat YAML map. The file lives at
// $WIFI_TEST_CONFIG, or $XDG_CONFIG_HOME/wifi-test/config.yaml,
// falling back to ~/.config/wifi-test/config.yaml. Configuration is
// loaded once at startup and passed by reference; nothing in this
// package mutates it concurrently.
package config
