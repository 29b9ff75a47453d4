package mirror

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lumen-bridge/internal/bridge"
	"github.com/nerrad567/lumen-bridge/internal/bus"
)

// fakeBridge is a scriptable in-memory bridge collaborator.
// Error queues are consumed one entry per call; an empty queue means
// success.
type fakeBridge struct {
	mu sync.Mutex

	initErrs     []error
	firmwareErrs []error
	subscribeErr error
	configErr    error
	rulesErr     error
	resourcesErr error

	config    map[string]any
	rules     map[string]map[string]any
	resources []map[string]any

	initCalls      int
	configCalls    int
	rulesCalls     int
	resourceCalls  int
	subscribeCalls int
	firmwareCalls  int

	handler bridge.EventHandler
}

func (f *fakeBridge) InitSession(_ context.Context, _ bridge.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return f.popErr(&f.initErrs)
}

func (f *fakeBridge) FetchConfig(context.Context) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configCalls++
	if f.configErr != nil {
		return nil, f.configErr
	}
	if f.config == nil {
		return map[string]any{}, nil
	}
	return f.config, nil
}

func (f *fakeBridge) FetchRules(context.Context) (map[string]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rulesCalls++
	if f.rulesErr != nil {
		return nil, f.rulesErr
	}
	return f.rules, nil
}

func (f *fakeBridge) FetchAllResources(context.Context) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resourceCalls++
	if f.resourcesErr != nil {
		return nil, f.resourcesErr
	}
	return f.resources, nil
}

func (f *fakeBridge) Subscribe(_ context.Context, _ bridge.Config, handler bridge.EventHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeCalls++
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.handler = handler
	return nil
}

func (f *fakeBridge) RequestFirmwareUpdate(_ context.Context, _ bridge.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.firmwareCalls++
	return f.popErr(&f.firmwareErrs)
}

func (f *fakeBridge) popErr(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (f *fakeBridge) calls() (init, subscribe, firmware int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls, f.subscribeCalls, f.firmwareCalls
}

// published is one recorded bus emission.
type published struct {
	channel string
	msg     bus.Message
}

// recordingBus captures every publish, safe for the node's deferred
// timer goroutines.
type recordingBus struct {
	mu   sync.Mutex
	logs []published
}

func (b *recordingBus) Publish(channel string, msg bus.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append(b.logs, published{channel: channel, msg: msg})
	return nil
}

func (b *recordingBus) all() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	cpy := make([]published, len(b.logs))
	copy(cpy, b.logs)
	return cpy
}

func (b *recordingBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.logs)
}

// fixedClock always reports the same instant.
type fixedClock struct{ now string }

func (c fixedClock) Now() string { return c.now }

const testNow = "2024-06-01T12:00:00Z"

func newTestNode(t *testing.T, cfg Config, fake *fakeBridge) (*Node, *recordingBus) {
	t.Helper()
	rec := &recordingBus{}
	n, err := NewNode(Options{
		Config: cfg,
		API:    fake,
		Bus:    rec,
		Clock:  fixedClock{now: testNow},
	})
	if err != nil {
		t.Fatalf("NewNode() error = %v", err)
	}
	t.Cleanup(n.Stop)
	return n, rec
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestNewNodeRequiresCollaborators(t *testing.T) {
	if _, err := NewNode(Options{Bus: &recordingBus{}}); err == nil {
		t.Error("NewNode() without API should fail")
	}
	if _, err := NewNode(Options{API: &fakeBridge{}}); err == nil {
		t.Error("NewNode() without bus should fail")
	}
}

func TestStartDisabledTouchesNothing(t *testing.T) {
	fake := &fakeBridge{}
	n, rec := newTestNode(t, Config{Enabled: false}, fake)

	ok, err := n.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if ok {
		t.Error("Start() on disabled node = true, want false")
	}

	init, subscribe, firmware := fake.calls()
	if init != 0 || subscribe != 0 || firmware != 0 {
		t.Errorf("disabled node touched collaborators: init=%d subscribe=%d firmware=%d",
			init, subscribe, firmware)
	}
	if rec.count() != 0 {
		t.Errorf("disabled node emitted %d notifications", rec.count())
	}
}

func TestStartConnectsAndSubscribes(t *testing.T) {
	fake := &fakeBridge{
		config: map[string]any{"name": "Bridge", "swversion": "1.60"},
		rules: map[string]map[string]any{
			"2": {"name": "rule two"},
			"1": {"name": "rule one"},
		},
		resources: []map[string]any{
			{"id": "light-1", "type": "light", "on": map[string]any{"on": true}},
			{
				"id":   "room-1",
				"type": "room",
				"services": []any{
					map[string]any{"rid": "light-1", "rtype": "light"},
				},
			},
		},
	}
	n, rec := newTestNode(t, Config{Enabled: true, FirmwareInterval: time.Hour}, fake)

	ok, err := n.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !ok {
		t.Fatal("Start() = false, want true")
	}

	// bridge + 2 rules + 2 graph resources
	if got := n.Store().Len(); got != 5 {
		t.Errorf("store holds %d resources, want 5", got)
	}

	status := n.Status()
	if !status.Enabled || !status.Subscribed {
		t.Errorf("Status() = %+v, want enabled and subscribed", status)
	}

	_, subscribe, firmware := fake.calls()
	if subscribe != 1 {
		t.Errorf("Subscribe called %d times, want 1", subscribe)
	}
	if firmware != 1 {
		t.Errorf("RequestFirmwareUpdate called %d times, want 1", firmware)
	}

	// Initial broadcast: two emissions per resource, all suppressed.
	waitFor(t, func() bool { return rec.count() == 10 }, "initial broadcast never completed")
	for _, p := range rec.all() {
		if !p.msg.Suppress {
			t.Errorf("initial broadcast on %q not suppressed", p.channel)
		}
	}
}

func TestStartSessionFailureRetries(t *testing.T) {
	fake := &fakeBridge{
		initErrs: []error{errTestUpstream},
	}
	cfg := Config{
		Enabled:           true,
		DisableUpdates:    true,
		ConnectRetryDelay: 10 * time.Millisecond,
		FirmwareInterval:  time.Hour,
	}
	n, _ := newTestNode(t, cfg, fake)

	ok, err := n.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if ok {
		t.Error("Start() = true while session init fails")
	}

	// The scheduled retry re-runs the whole operation and succeeds.
	waitFor(t, func() bool {
		init, _, _ := fake.calls()
		return init >= 2
	}, "connection retry never fired")

	waitFor(t, func() bool { return n.Status().Resources > 0 }, "retry never populated the store")
}

func TestStartEnumerationFailureRetries(t *testing.T) {
	fake := &fakeBridge{resourcesErr: errTestUpstream}
	cfg := Config{
		Enabled:           true,
		ConnectRetryDelay: 10 * time.Millisecond,
	}
	n, rec := newTestNode(t, cfg, fake)

	ok, err := n.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if ok {
		t.Error("Start() = true while enumeration fails")
	}
	if n.Store().Len() != 0 {
		t.Error("failed enumeration wrote to the store")
	}
	if rec.count() != 0 {
		t.Error("failed start emitted notifications")
	}
}

func TestStartDisableUpdatesSkipsSubscription(t *testing.T) {
	fake := &fakeBridge{}
	n, _ := newTestNode(t, Config{
		Enabled:          true,
		DisableUpdates:   true,
		FirmwareInterval: time.Hour,
	}, fake)

	ok, err := n.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !ok {
		t.Fatal("Start() = false, want true")
	}

	_, subscribe, _ := fake.calls()
	if subscribe != 0 {
		t.Errorf("Subscribe called %d times with updates disabled", subscribe)
	}
	if n.Status().Subscribed {
		t.Error("Status().Subscribed = true with updates disabled")
	}
}

func TestAutoUpdateFirmwareDisabled(t *testing.T) {
	off := false
	fake := &fakeBridge{}
	n, _ := newTestNode(t, Config{Enabled: true, AutoUpdates: &off}, fake)

	ok, err := n.AutoUpdateFirmware(context.Background())
	if err != nil {
		t.Fatalf("AutoUpdateFirmware() error = %v", err)
	}
	if ok {
		t.Error("AutoUpdateFirmware() = true with auto-updates off")
	}

	_, _, firmware := fake.calls()
	if firmware != 0 {
		t.Errorf("RequestFirmwareUpdate called %d times with auto-updates off", firmware)
	}
}

func TestAutoUpdateFirmwareNilMeansEnabled(t *testing.T) {
	fake := &fakeBridge{}
	n, _ := newTestNode(t, Config{Enabled: true, FirmwareInterval: time.Hour}, fake)

	ok, err := n.AutoUpdateFirmware(context.Background())
	if err != nil {
		t.Fatalf("AutoUpdateFirmware() error = %v", err)
	}
	if !ok {
		t.Error("AutoUpdateFirmware() = false with AutoUpdates unset")
	}
}

func TestAutoUpdateFirmwareFailureRetries(t *testing.T) {
	fake := &fakeBridge{
		firmwareErrs: []error{&bridge.FirmwareUpdateError{
			Entries: []bridge.UpdateError{
				{Type: 3, Address: "/config/swupdate2", Description: "not available"},
			},
		}},
	}
	n, _ := newTestNode(t, Config{
		Enabled:            true,
		FirmwareRetryDelay: 10 * time.Millisecond,
		FirmwareInterval:   time.Hour,
	}, fake)

	ok, err := n.AutoUpdateFirmware(context.Background())
	if err != nil {
		t.Fatalf("AutoUpdateFirmware() error = %v", err)
	}
	if ok {
		t.Error("AutoUpdateFirmware() = true on rejected request")
	}

	// Retry fires after the short delay and succeeds.
	waitFor(t, func() bool {
		_, _, firmware := fake.calls()
		return firmware >= 2
	}, "firmware retry never fired")
}

func TestStopCancelsPendingRetries(t *testing.T) {
	fake := &fakeBridge{
		initErrs: []error{errTestUpstream, errTestUpstream, errTestUpstream},
	}
	n, _ := newTestNode(t, Config{
		Enabled:           true,
		ConnectRetryDelay: 20 * time.Millisecond,
	}, fake)

	if _, err := n.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	n.Stop()

	init, _, _ := fake.calls()
	time.Sleep(100 * time.Millisecond)
	initAfter, _, _ := fake.calls()
	if initAfter != init {
		t.Errorf("retries continued after Stop(): %d -> %d", init, initAfter)
	}

	// Stop is idempotent.
	n.Stop()
}

func TestEmitInitialStatesIsDeferred(t *testing.T) {
	fake := &fakeBridge{}
	n, rec := newTestNode(t, Config{Enabled: true}, fake)
	n.Store().Put("light-1", testLight("light-1"))

	n.EmitInitialStates()
	// Deferred: the synchronous call itself emits nothing.
	// (The timer may fire immediately after, hence waitFor below.)
	waitFor(t, func() bool { return rec.count() == 2 }, "initial broadcast never fired")

	for _, p := range rec.all() {
		if !p.msg.Suppress {
			t.Errorf("initial broadcast on %q not suppressed", p.channel)
		}
	}
}
