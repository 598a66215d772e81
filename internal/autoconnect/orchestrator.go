// ABOUTME: Auto-connect orchestration over scan, connect, measure and record
// ABOUTME: Guarantees restoration of the original connection on every exit path

package autoconnect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/wifi-test/internal/probe"
	"github.com/2389/wifi-test/internal/speedtest"
	"github.com/2389/wifi-test/internal/store"
)

// Errors surfaced by a run.
var (
	// ErrNoPassword means no shared network password is configured, so
	// no candidate could ever be joined.
	ErrNoPassword = errors.New("no network password configured")
	// ErrRestoreFailed means the original connection could not be
	// brought back after the run. It outranks every other run error.
	ErrRestoreFailed = errors.New("failed to restore original connection")
)

const (
	// connectWait bounds polling for the interface to come up after a
	// join.
	connectWait = 30 * time.Second
	// settleDelay gives DHCP and routing a moment after the link
	// reports connected.
	settleDelay = 3 * time.Second
	// restoreTimeout bounds the restore attempt. The restore runs on
	// its own context so a canceled run still puts the network back.
	restoreTimeout = 60 * time.Second
)

// State is a phase of the auto-connect run.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateFiltering
	StateConnecting
	StateTesting
	StateRecording
	StateRestoring
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateScanning:   "scanning",
	StateFiltering:  "filtering",
	StateConnecting: "connecting",
	StateTesting:    "testing",
	StateRecording:  "recording",
	StateRestoring:  "restoring",
	StateDone:       "done",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// scanner is the subset of probe.Scanner the orchestrator uses.
type scanner interface {
	Scan(ctx context.Context, iface string, flush bool) ([]store.NetworkRecord, error)
	CurrentLink(ctx context.Context, iface string) (probe.Link, error)
}

// connector is the subset of netman.Manager the orchestrator uses.
type connector interface {
	Connect(ctx context.Context, ssid, password string) error
	Disconnect(ctx context.Context)
	WaitForConnection(ctx context.Context, timeout time.Duration) bool
	Reconnect(ctx context.Context, ssid string) error
	HasInternet(ctx context.Context) bool
}

// recorder is the subset of store.Store the orchestrator uses.
type recorder interface {
	UpsertScans(ctx context.Context, recs []store.NetworkRecord) (int, error)
	UpsertSpeedTest(ctx context.Context, rec *store.SpeedTestRecord) error
}

// Options configures a run.
type Options struct {
	// Interface is the wireless interface to drive.
	Interface string
	// Password is the shared password used for every candidate join.
	Password string
	// Prefix keeps only SSIDs starting with it. Empty keeps all.
	Prefix string
	// Limit caps how many candidates are attempted. Zero means no cap.
	Limit int
	// Flush flushes the OS scan cache before scanning.
	Flush bool
	// SaveScans persists the scan results before any join attempt.
	SaveScans bool
	// Test tunes the per-candidate measurement.
	Test speedtest.Params
}

// Candidate is the outcome of one network attempt. Exactly one join
// attempt is made per candidate; failures are recorded and the run
// moves on.
type Candidate struct {
	Network   store.NetworkRecord
	Connected bool
	Internet  bool
	Result    *speedtest.Result
	Err       error
}

// Summary describes a completed run.
type Summary struct {
	SessionID  string
	Original   probe.Link
	Found      int
	Candidates []Candidate
	Tested     int
	Restored   bool
	State      State
}

// Orchestrator walks every matching network: connect, measure, record,
// and finally restore whatever was connected before the run started.
type Orchestrator struct {
	scanner   scanner
	connector connector
	runner    speedtest.Runner
	recorder  recorder
	logger    *slog.Logger

	// settle is how long to wait after a join before measuring, so
	// DHCP and routing have a moment to converge.
	settle time.Duration

	state State
}

// New wires an Orchestrator from its collaborators.
func New(sc scanner, conn connector, runner speedtest.Runner, rec recorder, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		scanner:   sc,
		connector: conn,
		runner:    runner,
		recorder:  rec,
		logger:    logger.With("component", "autoconnect"),
		settle:    settleDelay,
		state:     StateIdle,
	}
}

// State returns the current run phase.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.logger.Debug("state transition", "from", o.state, "to", s)
	o.state = s
}

// Run executes the full workflow. The returned Summary is non-nil
// whenever the run got far enough to capture the original link, even
// when err is non-nil. A restore failure is returned as
// ErrRestoreFailed regardless of what else went wrong.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (summary *Summary, err error) {
	if opts.Password == "" {
		o.setState(StateFailed)
		return nil, ErrNoPassword
	}

	summary = &Summary{SessionID: uuid.New().String()}
	logger := o.logger.With("session", summary.SessionID)
	logger.Info("starting auto-connect run", "interface", opts.Interface, "prefix", opts.Prefix, "limit", opts.Limit)

	// The original association is captured before anything touches the
	// radio, so there is a known target to restore.
	original, err := o.scanner.CurrentLink(ctx, opts.Interface)
	if err != nil {
		o.setState(StateFailed)
		return summary, fmt.Errorf("reading current connection: %w", err)
	}
	summary.Original = original
	if original.SSID != "" {
		logger.Info("will restore after run", "ssid", original.SSID, "bssid", original.BSSID)
	} else {
		logger.Info("no current connection, nothing to restore")
	}

	// The restore must happen no matter how the run ends, including
	// context cancellation, so it runs on a fresh bounded context.
	defer func() {
		restoreErr := o.restore(original, logger)
		summary.Restored = restoreErr == nil
		switch {
		case restoreErr != nil:
			o.setState(StateFailed)
			err = restoreErr
		case err != nil:
			o.setState(StateFailed)
		default:
			o.setState(StateDone)
		}
		summary.State = o.state
	}()

	o.setState(StateScanning)
	networks, err := o.scanner.Scan(ctx, opts.Interface, opts.Flush)
	if err != nil {
		o.setState(StateFailed)
		return summary, fmt.Errorf("scanning: %w", err)
	}
	summary.Found = len(networks)

	o.setState(StateFiltering)
	candidates := selectCandidates(networks, opts.Prefix, opts.Limit)
	logger.Info("selected candidates", "found", len(networks), "matching", len(candidates))

	if opts.SaveScans && len(networks) > 0 {
		if _, err := o.recorder.UpsertScans(ctx, networks); err != nil {
			// Losing scan rows is not worth aborting the measurements.
			logger.Warn("failed to save scan results", "error", err)
		}
	}

	if len(candidates) == 0 {
		logger.Info("no networks matched, nothing to test")
		return summary, nil
	}

	for i, network := range candidates {
		if ctx.Err() != nil {
			return summary, fmt.Errorf("run canceled: %w", ctx.Err())
		}

		logger.Info("testing network",
			"ssid", network.SSID, "bssid", network.BSSID,
			"signal", network.Signal, "progress", fmt.Sprintf("%d/%d", i+1, len(candidates)))

		cand := o.testCandidate(ctx, network, opts)
		summary.Candidates = append(summary.Candidates, cand)
		if cand.Result != nil {
			summary.Tested++
		}
		if cand.Err != nil {
			logger.Warn("candidate failed", "ssid", network.SSID, "error", cand.Err)
		}
	}

	logger.Info("run complete", "attempted", len(candidates), "measured", summary.Tested)
	return summary, nil
}

// testCandidate makes exactly one attempt against one network. Every
// failure is captured in the returned Candidate, never propagated.
func (o *Orchestrator) testCandidate(ctx context.Context, network store.NetworkRecord, opts Options) Candidate {
	cand := Candidate{Network: network}

	o.setState(StateConnecting)
	o.connector.Disconnect(ctx)
	if err := o.connector.Connect(ctx, network.SSID, opts.Password); err != nil {
		cand.Err = err
		return cand
	}
	if !o.connector.WaitForConnection(ctx, connectWait) {
		cand.Err = fmt.Errorf("interface did not come up on %s", network.SSID)
		return cand
	}
	cand.Connected = true

	select {
	case <-time.After(o.settle):
	case <-ctx.Done():
		cand.Err = ctx.Err()
		return cand
	}

	cand.Internet = o.connector.HasInternet(ctx)
	if !cand.Internet {
		o.logger.Warn("no internet reachability, measuring anyway", "ssid", network.SSID)
	}

	o.setState(StateTesting)
	params := opts.Test
	params.Interface = opts.Interface
	result, err := o.runner.Run(ctx, params)
	if err != nil {
		cand.Err = err
		return cand
	}
	cand.Result = result

	o.setState(StateRecording)
	rec := &store.SpeedTestRecord{
		BSSID:        network.BSSID,
		SSID:         network.SSID,
		Tool:         result.Tool,
		DownloadMbps: result.DownloadMbps,
		UploadMbps:   result.UploadMbps,
		PingMs:       result.PingMs,
		JitterMs:     result.JitterMs,
		PacketLoss:   result.PacketLoss,
		Server:       result.Server,
		ISP:          result.ISP,
		ResultURL:    result.ResultURL,
		Timestamp:    result.Timestamp,
	}
	if err := o.recorder.UpsertSpeedTest(ctx, rec); err != nil {
		cand.Err = fmt.Errorf("recording result: %w", err)
	}
	return cand
}

// restore puts the original connection back. It runs on its own
// context because the run's context may already be canceled.
func (o *Orchestrator) restore(original probe.Link, logger *slog.Logger) error {
	o.setState(StateRestoring)

	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	if original.SSID == "" {
		o.connector.Disconnect(ctx)
		logger.Info("restored to disconnected state")
		return nil
	}

	logger.Info("restoring original connection", "ssid", original.SSID)
	if err := o.connector.Reconnect(ctx, original.SSID); err != nil {
		logger.Error("restore failed, verify the connection manually", "ssid", original.SSID, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrRestoreFailed, original.SSID, err)
	}

	if !o.connector.WaitForConnection(ctx, connectWait) {
		logger.Error("restored connection did not come up, verify manually", "ssid", original.SSID)
		return fmt.Errorf("%w: %s did not come up", ErrRestoreFailed, original.SSID)
	}

	logger.Info("original connection restored", "ssid", original.SSID)
	return nil
}

// selectCandidates filters by SSID prefix, keeps one row per BSSID,
// and orders strongest signal first. The sort is stable so ties keep
// their scan order. A non-positive limit keeps everything.
func selectCandidates(networks []store.NetworkRecord, prefix string, limit int) []store.NetworkRecord {
	seen := make(map[string]bool, len(networks))
	var out []store.NetworkRecord
	for _, n := range networks {
		if prefix != "" && !strings.HasPrefix(n.SSID, prefix) {
			continue
		}
		if seen[n.BSSID] {
			continue
		}
		seen[n.BSSID] = true
		out = append(out, n)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Signal > out[j].Signal
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
