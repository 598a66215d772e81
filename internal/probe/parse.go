// ABOUTME: Parsers for iw scan and iw link textual output
// ABOUTME: Narrow stringly-typed surface producing typed records

package probe

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/2389/wifi-test/internal/store"
)

var (
	bssRE    = regexp.MustCompile(`^BSS ([0-9a-f]{2}(?::[0-9a-f]{2}){5})`)
	signalRE = regexp.MustCompile(`(-?\d+\.?\d*)\s*dBm`)
	macRE    = regexp.MustCompile(`^[0-9a-f]{2}(?::[0-9a-f]{2}){5}$`)
)

// Band buckets a frequency in MHz into its WiFi band name.
func Band(freqMHz float64) string {
	switch {
	case freqMHz >= 2400 && freqMHz <= 2500:
		return "2.4GHz"
	case freqMHz > 5000 && freqMHz <= 6000:
		return "5GHz"
	case freqMHz > 6000 && freqMHz <= 7125:
		return "6GHz"
	}
	return "Unknown"
}

// parseScanOutput walks the BSS blocks of `iw dev <iface> scan`
// output. A block contributes a record once it has both an SSID and a
// frequency; hidden networks (empty SSID) are skipped.
func parseScanOutput(out string) []store.NetworkRecord {
	var results []store.NetworkRecord

	var cur *store.NetworkRecord
	flush := func() {
		if cur != nil && cur.SSID != "" && cur.Frequency > 0 {
			cur.Band = Band(cur.Frequency)
			results = append(results, *cur)
		}
		cur = nil
	}

	for _, raw := range strings.Split(out, "\n") {
		if m := bssRE.FindStringSubmatch(raw); m != nil {
			flush()
			cur = &store.NetworkRecord{
				BSSID:     m[1],
				Timestamp: time.Now(),
			}
			continue
		}
		if cur == nil {
			continue
		}

		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "SSID: "):
			cur.SSID = strings.TrimSpace(strings.TrimPrefix(line, "SSID: "))

		case strings.HasPrefix(line, "freq: "):
			if f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "freq: ")), 64); err == nil {
				cur.Frequency = f
			}

		case strings.HasPrefix(line, "signal: "):
			if m := signalRE.FindStringSubmatch(line); m != nil {
				if f, err := strconv.ParseFloat(m[1], 64); err == nil {
					cur.Signal = f
				}
			}

		case strings.HasPrefix(line, "DS Parameter set: channel "):
			idx := strings.LastIndex(line, "channel")
			if ch, err := strconv.Atoi(strings.TrimSpace(line[idx+len("channel"):])); err == nil {
				cur.Channel = ch
			}

		case strings.HasPrefix(line, "RSN:"):
			cur.Security = "WPA2/WPA3"

		case strings.HasPrefix(line, "WPA:"):
			if cur.Security == "" {
				cur.Security = "WPA"
			}
		}
	}
	flush()

	return results
}

// parseDevOutput returns the first interface name in `iw dev` output,
// or "" when none is listed.
func parseDevOutput(out string) string {
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "Interface") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				return fields[len(fields)-1]
			}
		}
	}
	return ""
}

// parseLinkOutput extracts the association identity from
// `iw dev <iface> link` output:
//
//	Connected to 34:ca:81:49:15:ff (on wlp15s0)
//	        SSID: JB_NEW
func parseLinkOutput(out string) Link {
	var link Link

	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(strings.ToLower(line), "connected to ") {
			fields := strings.Fields(line)
			if len(fields) >= 3 {
				candidate := strings.ToLower(fields[2])
				if macRE.MatchString(candidate) {
					link.BSSID = candidate
				}
			}
		} else if strings.HasPrefix(line, "SSID:") {
			if v := strings.TrimSpace(strings.TrimPrefix(line, "SSID:")); v != "" {
				link.SSID = v
			}
		}
	}

	return link
}
