// ABOUTME: Ookla speedtest CLI invocation and JSON result parsing
// ABOUTME: Converts bandwidth figures from bytes per second to Mbps

package speedtest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const ooklaTimeout = 5 * time.Minute

type ooklaRunner struct {
	logger *slog.Logger
}

// ooklaOutput mirrors the fields of `speedtest --format=json` that the
// tool consumes.
type ooklaOutput struct {
	Timestamp string `json:"timestamp"`
	Ping      struct {
		Latency float64 `json:"latency"`
		Jitter  float64 `json:"jitter"`
	} `json:"ping"`
	Download struct {
		Bandwidth float64 `json:"bandwidth"` // bytes per second
	} `json:"download"`
	Upload struct {
		Bandwidth float64 `json:"bandwidth"`
	} `json:"upload"`
	PacketLoss float64 `json:"packetLoss"`
	ISP        string  `json:"isp"`
	Server     struct {
		Name string `json:"name"`
	} `json:"server"`
	Result struct {
		URL string `json:"url"`
	} `json:"result"`
}

func (r *ooklaRunner) Verify() error {
	return verifyBinary("speedtest", "Ookla Speedtest CLI")
}

func (r *ooklaRunner) Run(ctx context.Context, p Params) (*Result, error) {
	args := []string{"--format=json", "--accept-license"}
	if p.Interface != "" {
		args = append(args, "--interface", p.Interface)
	}

	r.logger.Debug("running ookla speedtest", "interface", p.Interface)
	out, err := runTool(ctx, ooklaTimeout, "speedtest", args...)
	if err != nil {
		return nil, err
	}

	return parseOoklaOutput(out)
}

func parseOoklaOutput(out string) (*Result, error) {
	var data ooklaOutput
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if data.Download.Bandwidth == 0 && data.Upload.Bandwidth == 0 {
		return nil, fmt.Errorf("%w: no bandwidth figures in output", ErrParse)
	}

	res := &Result{
		Tool:         "speedtest",
		DownloadMbps: data.Download.Bandwidth / 1_000_000,
		UploadMbps:   data.Upload.Bandwidth / 1_000_000,
		PingMs:       data.Ping.Latency,
		JitterMs:     data.Ping.Jitter,
		PacketLoss:   data.PacketLoss,
		Server:       data.Server.Name,
		ISP:          data.ISP,
		ResultURL:    data.Result.URL,
		Timestamp:    time.Now(),
	}
	if t, err := time.Parse(time.RFC3339, data.Timestamp); err == nil {
		res.Timestamp = t
	}

	return res, nil
}
