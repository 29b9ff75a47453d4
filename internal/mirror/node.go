package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/lumen-bridge/internal/bridge"
	"github.com/nerrad567/lumen-bridge/internal/bus"
	"github.com/nerrad567/lumen-bridge/internal/resource"
)

// Timing defaults. Each is overridable through Config for tests.
const (
	// defaultConnectRetryDelay is the pause between connection attempts.
	defaultConnectRetryDelay = 30 * time.Second

	// defaultFirmwareInterval is the pause between successful firmware
	// update checks.
	defaultFirmwareInterval = 12 * time.Hour

	// defaultFirmwareRetryDelay is the pause before retrying a failed
	// firmware update check.
	defaultFirmwareRetryDelay = 10 * time.Second
)

// Logger defines the logging interface used by the Node.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the node-level behavior switches and timing knobs.
type Config struct {
	// Enabled gates the whole node. A disabled node's controllers
	// resolve false immediately without touching any collaborator.
	Enabled bool

	// DisableUpdates skips the event-stream subscription entirely;
	// the mirror is populated once and never re-synchronized.
	DisableUpdates bool

	// AutoUpdates controls the firmware maintenance loop. Nil means
	// enabled (the default when the option is absent).
	AutoUpdates *bool

	// Bridge is the connection config handed to collaborators.
	Bridge bridge.Config

	// Zero values fall back to the package defaults above.
	ConnectRetryDelay  time.Duration
	FirmwareInterval   time.Duration
	FirmwareRetryDelay time.Duration
}

// autoUpdatesEnabled resolves the tri-state AutoUpdates option.
func (c Config) autoUpdatesEnabled() bool {
	return c.AutoUpdates == nil || *c.AutoUpdates
}

func (c Config) connectRetryDelay() time.Duration {
	if c.ConnectRetryDelay > 0 {
		return c.ConnectRetryDelay
	}
	return defaultConnectRetryDelay
}

func (c Config) firmwareInterval() time.Duration {
	if c.FirmwareInterval > 0 {
		return c.FirmwareInterval
	}
	return defaultFirmwareInterval
}

func (c Config) firmwareRetryDelay() time.Duration {
	if c.FirmwareRetryDelay > 0 {
		return c.FirmwareRetryDelay
	}
	return defaultFirmwareRetryDelay
}

// Node owns one bridge mirror: the store, the outbound bus, and the
// connection and maintenance controllers.
//
// All mirror mutation serializes through n.mu; the store is never
// written by more than one logical task at a time.
type Node struct {
	cfg    Config
	api    bridge.API
	clock  bridge.Clock
	store  *resource.Store
	bus    bus.Bus
	logger Logger

	mu            sync.Mutex
	connectTimer  *time.Timer
	firmwareTimer *time.Timer
	initialTimer  *time.Timer
	subscribed    bool

	// Node-level context, cancelled on Stop(). Timer continuations
	// run under this, not under the caller's request context.
	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once
}

// Options holds the dependencies for creating a Node.
type Options struct {
	// Config is the node configuration.
	Config Config

	// API is the bridge collaborator surface.
	API bridge.API

	// Bus receives outbound notifications.
	Bus bus.Bus

	// Store is optional; a fresh empty store is created when nil.
	Store *resource.Store

	// Clock is optional; the system clock is used when nil.
	Clock bridge.Clock

	// Logger is optional structured logger.
	Logger Logger
}

// NewNode creates a node. Call Start() to begin operation.
func NewNode(opts Options) (*Node, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("bridge API is required")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}

	store := opts.Store
	if store == nil {
		store = resource.NewStore()
	}
	clock := opts.Clock
	if clock == nil {
		clock = bridge.SystemClock{}
	}
	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Node{
		cfg:       opts.Config,
		api:       opts.API,
		clock:     clock,
		store:     store,
		bus:       opts.Bus,
		logger:    logger,
		ctx:       ctx,
		ctxCancel: ctxCancel,
	}, nil
}

// Store exposes the node's resource store for read-side consumers.
func (n *Node) Store() *resource.Store {
	return n.store
}

// Status is a point-in-time view of the node for monitoring.
type Status struct {
	Enabled    bool `json:"enabled"`
	Subscribed bool `json:"subscribed"`
	Resources  int  `json:"resources"`
}

// Status returns the node's current status.
func (n *Node) Status() Status {
	n.mu.Lock()
	subscribed := n.subscribed
	n.mu.Unlock()

	return Status{
		Enabled:    n.cfg.Enabled,
		Subscribed: subscribed,
		Resources:  n.store.Len(),
	}
}

// Start runs the connection controller: establish a session with the
// bridge, enumerate the full resource graph into the store, broadcast
// initial states, attach to the event stream, and kick off the
// firmware maintenance loop.
//
// Returns false without touching any collaborator when the node is
// disabled. On a connection failure the reason is logged, a retry of
// the whole operation is scheduled after a fixed delay, and the
// current call resolves false; retries continue unbounded while the
// node remains enabled.
func (n *Node) Start(ctx context.Context) (bool, error) {
	if !n.cfg.Enabled || n.stopped() {
		return false, nil
	}

	if err := n.api.InitSession(ctx, n.cfg.Bridge); err != nil {
		n.logger.Error("bridge session init failed", "error", err)
		n.scheduleConnectRetry()
		return false, nil
	}

	if _, err := n.EnumerateAll(ctx); err != nil {
		n.logger.Error("resource enumeration failed", "error", err)
		n.scheduleConnectRetry()
		return false, nil
	}

	n.EmitInitialStates()

	if n.cfg.DisableUpdates {
		n.logger.Info("event stream subscription disabled by config")
	} else {
		if err := n.SubscribeToEventStream(ctx); err != nil {
			n.logger.Error("event stream subscription failed", "error", err)
			n.scheduleConnectRetry()
			return false, nil
		}
	}

	if _, err := n.AutoUpdateFirmware(ctx); err != nil {
		return false, err
	}

	n.logger.Info("bridge mirror connected",
		"host", n.cfg.Bridge.Host,
		"resources", n.store.Len())
	return true, nil
}

// SubscribeToEventStream attaches the event diff engine to the
// bridge's push stream. The collaborator's result is returned
// unmodified.
func (n *Node) SubscribeToEventStream(ctx context.Context) error {
	err := n.api.Subscribe(ctx, n.cfg.Bridge, n.HandleEvents)
	if err == nil {
		n.mu.Lock()
		n.subscribed = true
		n.mu.Unlock()
	}
	return err
}

// EmitInitialStates schedules a one-shot broadcast of every stored
// resource with the suppress flag set, so consumers can seed their
// state without treating the broadcast as real changes. The broadcast
// is deferred, never synchronous; each resource is emitted exactly
// once, order unspecified.
func (n *Node) EmitInitialStates() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.initialTimer != nil {
		n.initialTimer.Stop()
	}
	n.initialTimer = time.AfterFunc(0, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for _, r := range n.store.All() {
			n.pushUpdatedState(r, r.Type, true)
		}
		n.logger.Debug("initial states emitted", "count", n.store.Len())
	})
}

// AutoUpdateFirmware runs the maintenance controller once: ask the
// bridge to check for and install firmware updates, then reschedule
// itself — after the regular interval on success, after a short retry
// delay on failure. At most one continuation is outstanding at a time;
// re-entry clears any pending timer first.
//
// Resolves false without touching the collaborator when the node is
// disabled or firmware auto-updates are configured off.
func (n *Node) AutoUpdateFirmware(ctx context.Context) (bool, error) {
	n.mu.Lock()
	if n.firmwareTimer != nil {
		n.firmwareTimer.Stop()
		n.firmwareTimer = nil
	}
	enabled := n.cfg.Enabled && n.cfg.autoUpdatesEnabled()
	n.mu.Unlock()

	if !enabled || n.stopped() {
		return false, nil
	}

	if err := n.api.RequestFirmwareUpdate(ctx, n.cfg.Bridge); err != nil {
		n.logFirmwareFailure(err)
		n.scheduleFirmware(n.cfg.firmwareRetryDelay())
		return false, nil
	}

	n.logger.Debug("firmware update check complete")
	n.scheduleFirmware(n.cfg.firmwareInterval())
	return true, nil
}

// Stop cancels all pending timer continuations and prevents further
// scheduling. Safe to call more than once.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		n.ctxCancel()

		n.mu.Lock()
		for _, t := range []*time.Timer{n.connectTimer, n.firmwareTimer, n.initialTimer} {
			if t != nil {
				t.Stop()
			}
		}
		n.connectTimer = nil
		n.firmwareTimer = nil
		n.initialTimer = nil
		n.mu.Unlock()

		n.logger.Info("bridge mirror stopped")
	})
}

// stopped reports whether Stop has been called.
func (n *Node) stopped() bool {
	select {
	case <-n.ctx.Done():
		return true
	default:
		return false
	}
}

// scheduleConnectRetry arms the connection retry timer, replacing any
// pending one.
func (n *Node) scheduleConnectRetry() {
	if n.stopped() {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.connectTimer != nil {
		n.connectTimer.Stop()
	}
	delay := n.cfg.connectRetryDelay()
	n.connectTimer = time.AfterFunc(delay, func() {
		if _, err := n.Start(n.ctx); err != nil {
			n.logger.Error("connection retry failed", "error", err)
		}
	})
	n.logger.Info("connection retry scheduled", "delay", delay)
}

// scheduleFirmware arms the firmware timer, replacing any pending one.
func (n *Node) scheduleFirmware(delay time.Duration) {
	if n.stopped() {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.firmwareTimer != nil {
		n.firmwareTimer.Stop()
	}
	n.firmwareTimer = time.AfterFunc(delay, func() {
		if _, err := n.AutoUpdateFirmware(n.ctx); err != nil {
			n.logger.Error("firmware update run failed", "error", err)
		}
	})
}

// logFirmwareFailure warns once per error entry from a rejected
// firmware update, or once for any other failure shape.
func (n *Node) logFirmwareFailure(err error) {
	var fwErr *bridge.FirmwareUpdateError
	if errors.As(err, &fwErr) {
		for _, entry := range fwErr.Entries {
			n.logger.Warn("error response from firmware update",
				"type", entry.Type,
				"address", entry.Address,
				"description", entry.Description)
		}
		return
	}
	n.logger.Warn("firmware update request failed", "error", err)
}
