package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hartleigh/tivod/internal/channels"
	"github.com/hartleigh/tivod/internal/guide"
	"github.com/hartleigh/tivod/internal/infrastructure/config"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"
	"github.com/hartleigh/tivod/internal/tivo"
)

// Transport is the box control channel a session drives. *tivo.Client
// implements it.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
	PollStatus(ctx context.Context) (tivo.Status, error)
	SendIRCode(ctx context.Context, code string, waitReply bool) error
	SendKeyboard(ctx context.Context, code string, waitReply bool) error
	SendTeleport(ctx context.Context, code string) error
	SetChannel(ctx context.Context, number int) error
	ChannelNumber() int
	PreviousChannelNumber() int
}

// DirectoryProvider supplies the channel directory for display and
// reverse lookups. *channels.Service implements it.
type DirectoryProvider interface {
	Directory(ctx context.Context) (*channels.Directory, error)
}

// ProgramSource supplies programme schedules for the EPG detail on a
// snapshot. *guide.Service implements it.
type ProgramSource interface {
	Listings(ctx context.Context, stationID string, start time.Time, duration time.Duration) ([]guide.Program, error)
}

// Sink receives state snapshots when they change: MQTT, the time-series
// store, the WebSocket hub.
type Sink interface {
	PublishState(ctx context.Context, snap Snapshot)
}

// epgWindow is how far ahead a listings fetch reaches.
const epgWindow = 4 * time.Hour

// Snapshot is one device's externally visible state.
type Snapshot struct {
	DeviceID string    `json:"device_id"`
	Name     string    `json:"name"`
	State    State     `json:"state"`
	Observed time.Time `json:"observed"`

	// ChannelNumber is zero when no channel has been observed.
	ChannelNumber int `json:"channel_number,omitempty"`

	// ChannelName degrades to the raw number as a string when the
	// directory has no entry; a missing directory is never a fault.
	ChannelName string              `json:"channel_name,omitempty"`
	Definition  channels.Definition `json:"definition,omitempty"`
	StationID   string              `json:"station_id,omitempty"`

	// Program is the currently airing programme when EPG detail is
	// available for the tuned station.
	Program *guide.Program `json:"program,omitempty"`
}

// Session owns the polling loop and state for one box.
type Session struct {
	cfg       config.DeviceConfig
	transport Transport
	machine   *Machine
	directory DirectoryProvider
	programs  ProgramSource
	sinks     []Sink
	logger    *logging.Logger

	cancel context.CancelFunc
	done   chan struct{}

	// mu guards the snapshot and the state machine. The machine itself
	// is unsynchronised; every Observe and read goes through this lock.
	mu       sync.RWMutex
	snapshot Snapshot

	// Serializes commands against the box; a command and a poll tick
	// must not interleave on the wire.
	cmdMu sync.Mutex
}

// newSession wires a session; the manager starts and stops it.
func newSession(cfg config.DeviceConfig, transport Transport, directory DirectoryProvider, programs ProgramSource, sinks []Sink, logger *logging.Logger) *Session {
	return &Session{
		cfg:       cfg,
		transport: transport,
		machine:   NewMachine(cfg.IdleTimeout),
		directory: directory,
		programs:  programs,
		sinks:     sinks,
		logger:    logger.With("component", "session", "device", cfg.ID),
		snapshot: Snapshot{
			DeviceID: cfg.ID,
			Name:     cfg.Name,
			State:    StateOff,
		},
	}
}

// start launches the polling loop.
func (s *Session) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
}

// stop cancels the loop and waits for it to exit. Cancellation lands
// before the next scheduled tick; an in-flight poll completes but its
// result is discarded.
func (s *Session) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// run is the per-device polling loop.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.EffectiveScanInterval())
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll performs one observation cycle: connect, read status, update the
// machine, rebuild the snapshot, publish on change.
func (s *Session) poll(ctx context.Context) {
	status, ok := s.observe(ctx)
	if !ok {
		// The box is unreachable: treat as no signal.
		status = tivo.Status{}
	}

	if ctx.Err() != nil {
		// The device was removed mid-poll; discard the result.
		return
	}

	s.mu.Lock()
	state := s.machine.Observe(status, time.Now())
	channel := s.machine.Channel()
	s.mu.Unlock()

	snap := s.buildSnapshot(ctx, state, channel)

	s.mu.Lock()
	changed := !snapshotEqual(s.snapshot, snap)
	s.snapshot = snap
	s.mu.Unlock()

	if changed {
		s.logger.Info("device state changed",
			"state", snap.State, "channel", snap.ChannelNumber)
		for _, sink := range s.sinks {
			sink.PublishState(ctx, snap)
		}
	}
}

// observe runs one transport exchange under the command lock.
func (s *Session) observe(ctx context.Context) (tivo.Status, bool) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	if err := s.transport.Connect(ctx); err != nil {
		s.logger.Debug("poll connect failed", "error", err)
		return tivo.Status{}, false
	}
	defer s.transport.Close() //nolint:errcheck // Short-lived connection

	status, err := s.transport.PollStatus(ctx)
	if err != nil {
		s.logger.Debug("poll failed", "error", err)
		return tivo.Status{}, false
	}
	return status, true
}

// buildSnapshot decorates the machine state with directory and EPG
// detail. Both are best-effort; failures degrade to raw numbers.
func (s *Session) buildSnapshot(ctx context.Context, state State, channel int) Snapshot {
	snap := Snapshot{
		DeviceID:      s.cfg.ID,
		Name:          s.cfg.Name,
		State:         state,
		Observed:      time.Now(),
		ChannelNumber: channel,
	}

	if snap.ChannelNumber == 0 {
		return snap
	}
	snap.ChannelName = strconv.Itoa(snap.ChannelNumber)

	if s.directory == nil {
		return snap
	}
	dir, err := s.directory.Directory(ctx)
	if err != nil {
		s.logger.Debug("directory unavailable", "error", err)
		return snap
	}
	entry, found := dir.ByNumber(snap.ChannelNumber)
	if !found {
		return snap
	}
	snap.ChannelName = entry.Name
	snap.Definition = entry.Definition
	snap.StationID = entry.StationID

	if s.programs != nil && entry.StationID != "" && state == StateOn {
		now := time.Now()
		if programs, err := s.programs.Listings(ctx, entry.StationID, now, epgWindow); err != nil {
			s.logger.Debug("listings unavailable", "station", entry.StationID, "error", err)
		} else if current, ok := guide.Current(programs, now); ok {
			snap.Program = &current
		}
	}
	return snap
}

// Snapshot returns the last published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// State returns the machine's current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.machine.State()
}

// snapshotEqual compares the fields that make a state change worth
// publishing; the observation timestamp alone does not.
func snapshotEqual(a, b Snapshot) bool {
	if a.State != b.State || a.ChannelNumber != b.ChannelNumber ||
		a.ChannelName != b.ChannelName || a.Definition != b.Definition {
		return false
	}
	switch {
	case a.Program == nil && b.Program == nil:
		return true
	case a.Program == nil || b.Program == nil:
		return false
	default:
		return *a.Program == *b.Program
	}
}
