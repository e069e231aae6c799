// Package coordinator schedules miner polling and serializes control
// commands against it, publishing an immutable data snapshot per cycle.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/solminer/solminer/pkg/luxos"
	"github.com/solminer/solminer/pkg/solar"
)

// DefaultRefreshInterval is the default polling interval.
const DefaultRefreshInterval = 30 * time.Second

// Device is the client surface the coordinator drives.
type Device interface {
	GetSummary(ctx context.Context) (luxos.Response, error)
	GetStats(ctx context.Context) (luxos.Response, error)
	GetDevs(ctx context.Context) (luxos.Response, error)
	GetPools(ctx context.Context) (luxos.Response, error)
	GetFrequency(ctx context.Context) (luxos.Response, error)
	GetProfile(ctx context.Context) (luxos.Response, error)
	GetHealthChip(ctx context.Context) (luxos.Response, error)

	Pause(ctx context.Context) (luxos.Response, error)
	Resume(ctx context.Context) (luxos.Response, error)
	Reboot(ctx context.Context) (luxos.Response, error)
	EnableBoard(ctx context.Context, boardID int) (luxos.Response, error)
	DisableBoard(ctx context.Context, boardID int) (luxos.Response, error)
	SetFrequency(ctx context.Context, frequency int) (luxos.Response, error)
	SetProfile(ctx context.Context, profile string) (luxos.Response, error)
	SetPowerLimit(ctx context.Context, watts int) (luxos.Response, error)
	CurtailPower(ctx context.Context, fraction float64) (luxos.Response, error)
	SetFanSpeed(ctx context.Context, rpm int) (luxos.Response, error)

	Close(ctx context.Context)
}

// Ensure the luxos client satisfies the coordinator's device surface.
var _ Device = (*luxos.Client)(nil)

// Snapshot is the published result of one refresh cycle. It is immutable:
// consumers read it, never mutate it. A snapshot is either complete or the
// cycle failed entirely; partial snapshots are never published.
type Snapshot struct {
	Summary   luxos.Response
	Stats     luxos.Response
	Devs      luxos.Response
	Pools     luxos.Response
	Profile   luxos.Response
	Frequency luxos.Response
	Health    luxos.Response

	SolarPower        float64
	SolarPowerInput   float64
	SolarCurveEnabled bool
	MaxSolarPower     float64

	LastUpdate time.Time
}

// UpdateFailedError reports a failed refresh cycle to external consumers,
// carrying a human-readable cause.
type UpdateFailedError struct {
	Cause string
}

func (e *UpdateFailedError) Error() string {
	return "update failed: " + e.Cause
}

// Config holds coordinator construction parameters.
type Config struct {
	// RefreshInterval is the polling interval; DefaultRefreshInterval when zero.
	RefreshInterval time.Duration

	// OnUpdate, when set, is invoked with each published snapshot.
	OnUpdate func(*Snapshot)
}

// Coordinator owns the refresh loop, the solar model state, and the latest
// snapshot. Command cycles and refresh cycles are serialized against the
// same underlying session; a forced refresh coalesces with an in-flight one.
type Coordinator struct {
	device   Device
	interval time.Duration
	onUpdate func(*Snapshot)

	// mu serializes refresh cycles and command cycles, and guards the
	// solar model state.
	mu    sync.Mutex
	solar solar.Model

	snapMu   sync.RWMutex
	snapshot *Snapshot
	lastErr  error

	forceCh chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a coordinator for the given device.
func New(device Device, cfg Config) *Coordinator {
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	return &Coordinator{
		device:   device,
		interval: interval,
		onUpdate: cfg.OnUpdate,
		forceCh:  make(chan struct{}, 1),
	}
}

// Start launches the refresh loop. It returns immediately; the first
// refresh runs before the first interval elapses.
func (c *Coordinator) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)

	if err := c.Refresh(ctx); err != nil {
		log.WithError(err).Warn("initial refresh failed")
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.forceCh:
		}
		if err := c.Refresh(ctx); err != nil {
			log.WithError(err).Warn("refresh failed")
		}
	}
}

// Refresh runs one full poll cycle: all capability reads, solar derivation,
// and atomic publication of a new snapshot. Any failure aborts the whole
// cycle with an *UpdateFailedError and leaves the previous snapshot visible.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	snap, err := c.fetchLocked(ctx)
	c.mu.Unlock()

	if err != nil {
		c.snapMu.Lock()
		c.lastErr = err
		c.snapMu.Unlock()
		return err
	}

	c.snapMu.Lock()
	c.snapshot = snap
	c.lastErr = nil
	c.snapMu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
	return nil
}

// fetchLocked gathers all capability responses. Callers hold c.mu.
func (c *Coordinator) fetchLocked(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		SolarPowerInput:   c.solar.PowerInput,
		SolarCurveEnabled: c.solar.CurveEnabled,
		MaxSolarPower:     c.solar.MaxCurvePower,
	}

	reads := []struct {
		name string
		dst  *luxos.Response
		call func(context.Context) (luxos.Response, error)
	}{
		{"summary", &snap.Summary, c.device.GetSummary},
		{"stats", &snap.Stats, c.device.GetStats},
		{"devs", &snap.Devs, c.device.GetDevs},
		{"pools", &snap.Pools, c.device.GetPools},
		{"profile", &snap.Profile, c.device.GetProfile},
		{"frequency", &snap.Frequency, c.device.GetFrequency},
		{"health", &snap.Health, c.device.GetHealthChip},
	}

	for _, read := range reads {
		resp, err := read.call(ctx)
		if err != nil {
			if luxos.IsProtocolError(err) {
				return nil, &UpdateFailedError{Cause: fmt.Sprintf("error communicating with miner: %s: %v", read.name, err)}
			}
			return nil, &UpdateFailedError{Cause: fmt.Sprintf("unexpected error: %s: %v", read.name, err)}
		}
		*read.dst = resp
	}

	now := time.Now()
	snap.SolarPower = solar.Current(c.solar, now.Hour())
	snap.LastUpdate = now
	return snap, nil
}

// Snapshot returns the latest published snapshot, or nil before the first
// successful refresh. The returned snapshot must not be mutated.
func (c *Coordinator) Snapshot() *Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapshot
}

// LastError returns the failure of the most recent refresh cycle, or nil
// when it succeeded.
func (c *Coordinator) LastError() error {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.lastErr
}

// RequestRefresh forces the next refresh cycle to run immediately instead
// of waiting for the interval. The signal coalesces with an in-flight or
// already-queued forced refresh.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.forceCh <- struct{}{}:
	default:
	}
}

// Shutdown cancels any pending scheduled refresh, waits for the loop to
// stop, and closes the device client (triggering deauthentication). It
// never fails, even when the remote logoff does.
func (c *Coordinator) Shutdown(ctx context.Context) {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	c.device.Close(ctx)
}
