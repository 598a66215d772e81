// ABOUTME: iperf3 invocation with port-range fallback and JSON parsing
// ABOUTME: TCP by default, UDP mode with a mandatory bandwidth cap

package speedtest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

type iperf3Runner struct {
	server    string
	ports     []int
	bandwidth string
	duration  int // seconds
	logger    *slog.Logger
}

// iperf3Summary is one of the end-of-run sum objects. Which of them
// carries jitter and loss depends on TCP vs UDP mode.
type iperf3Summary struct {
	BitsPerSecond *float64 `json:"bits_per_second"`
	JitterMs      *float64 `json:"jitter_ms"`
	LostPercent   *float64 `json:"lost_percent"`
}

// iperf3Output mirrors the fields of `iperf3 --json` that the tool
// consumes.
type iperf3Output struct {
	Start struct {
		ConnectingTo struct {
			Host string `json:"host"`
		} `json:"connecting_to"`
	} `json:"start"`
	End struct {
		SumSent     *iperf3Summary `json:"sum_sent"`
		SumReceived *iperf3Summary `json:"sum_received"`
		Sum         *iperf3Summary `json:"sum"`
	} `json:"end"`
}

func (r *iperf3Runner) Verify() error {
	return verifyBinary("iperf3", "iperf3")
}

// Run tries each configured port in order and returns the first
// successful measurement; if every port fails the last error surfaces.
func (r *iperf3Runner) Run(ctx context.Context, p Params) (*Result, error) {
	if r.server == "" {
		return nil, fmt.Errorf("%w: IPERF3_SERVER not configured", ErrBadParams)
	}

	bandwidth := p.Bandwidth
	if bandwidth == "" {
		bandwidth = r.bandwidth
	}
	if p.UDP && bandwidth == "" {
		return nil, fmt.Errorf("%w: UDP mode requires a bandwidth value", ErrBadParams)
	}

	ports := r.ports
	if len(ports) == 0 {
		ports = []int{5201}
	}

	var lastErr error
	for _, port := range ports {
		res, err := r.runPort(ctx, port, p.UDP, bandwidth)
		if err == nil {
			return res, nil
		}
		lastErr = err
		r.logger.Debug("iperf3 port failed", "port", port, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

func (r *iperf3Runner) runPort(ctx context.Context, port int, udp bool, bandwidth string) (*Result, error) {
	args := []string{
		"-c", r.server,
		"-p", strconv.Itoa(port),
		"-t", strconv.Itoa(r.duration),
		"-J",
	}
	if udp {
		args = append(args, "-u", "-b", bandwidth)
	}

	// Setup and teardown need headroom beyond the test duration.
	timeout := time.Duration(r.duration+30) * time.Second

	r.logger.Debug("running iperf3", "server", r.server, "port", port, "udp", udp)
	out, err := runTool(ctx, timeout, "iperf3", args...)
	if err != nil {
		return nil, err
	}

	res, err := parseIperf3Output(out)
	if err != nil {
		return nil, err
	}
	if res.Server == "" {
		res.Server = r.server
	}
	return res, nil
}

func parseIperf3Output(out string) (*Result, error) {
	var data iperf3Output
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if data.End.SumSent == nil && data.End.SumReceived == nil && data.End.Sum == nil {
		return nil, fmt.Errorf("%w: missing end summary", ErrParse)
	}

	// Received bytes are the download direction, sent the upload.
	var download, upload float64
	if s := data.End.SumReceived; s != nil && s.BitsPerSecond != nil {
		download = *s.BitsPerSecond / 1_000_000
	}
	if s := data.End.SumSent; s != nil && s.BitsPerSecond != nil {
		upload = *s.BitsPerSecond / 1_000_000
	}

	// Jitter and loss live in different summaries depending on mode;
	// take the first summary that has them.
	pick := func(get func(*iperf3Summary) *float64) float64 {
		for _, s := range []*iperf3Summary{data.End.SumReceived, data.End.Sum, data.End.SumSent} {
			if s == nil {
				continue
			}
			if v := get(s); v != nil {
				return *v
			}
		}
		return 0
	}

	return &Result{
		Tool:         "iperf3",
		DownloadMbps: download,
		UploadMbps:   upload,
		JitterMs:     pick(func(s *iperf3Summary) *float64 { return s.JitterMs }),
		PacketLoss:   pick(func(s *iperf3Summary) *float64 { return s.LostPercent }),
		Server:       data.Start.ConnectingTo.Host,
		Timestamp:    time.Now(),
	}, nil
}
