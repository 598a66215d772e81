// Package speedtest runs throughput measurements through external
// tools and parses their JSON output into typed results.
//
// Two runners exist: the Ookla speedtest CLI and iperf3 against a
// configured server. iperf3 supports a port range (each port tried in
// order until one succeeds) and an optional UDP mode, which requires a
// bandwidth cap. Tool selection is a configuration concern; callers go
// through New and the Runner interface.
//
// Failures are classified: ErrToolUnavailable when the binary is
// missing, ErrToolFailed for non-zero exits or timeouts, ErrParse when
// output lacks the expected fields.
package speedtest
