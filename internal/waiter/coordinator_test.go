package waiter

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/waitroom/internal/errors"
	"github.com/Iron-Ham/waitroom/internal/event"
	"github.com/Iron-Ham/waitroom/internal/mailbox"
)

// fakeClock advances instantly. Sleep moves time forward by d plus jitter,
// stopping early at the first scheduled action, which it then runs.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	start   time.Time
	jitter  time.Duration
	actions []scheduled
	sleeps  int
}

type scheduled struct {
	at time.Duration
	fn func()
}

func newFakeClock() *fakeClock {
	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return &fakeClock{now: start, start: start}
}

// at schedules fn to run when the clock reaches offset from its start.
func (f *fakeClock) at(offset time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, scheduled{at: offset, fn: fn})
	sort.Slice(f.actions, func(i, j int) bool { return f.actions[i].at < f.actions[j].at })
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) elapsed() time.Duration {
	return f.Now().Sub(f.start)
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.sleeps++
	target := f.now.Add(d + f.jitter)
	var due []func()
	if len(f.actions) > 0 {
		if first := f.start.Add(f.actions[0].at); !first.After(target) {
			target = first
			for len(f.actions) > 0 && !f.start.Add(f.actions[0].at).After(target) {
				due = append(due, f.actions[0].fn)
				f.actions = f.actions[1:]
			}
		}
	}
	if target.After(f.now) {
		f.now = target
	}
	f.mu.Unlock()

	for _, fn := range due {
		fn()
	}
	return ctx.Err()
}

type heartbeat struct {
	at       time.Duration
	progress float64
	label    string
}

func recordHeartbeats(clock *fakeClock) (ProgressSink, func() []heartbeat) {
	var mu sync.Mutex
	var got []heartbeat
	sink := func(progress float64, label string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, heartbeat{at: clock.elapsed(), progress: progress, label: label})
	}
	return sink, func() []heartbeat {
		mu.Lock()
		defer mu.Unlock()
		return append([]heartbeat(nil), got...)
	}
}

func newTestCoordinator(t *testing.T, clock *fakeClock, opts ...Option) (*Coordinator, *mailbox.Mailbox) {
	t.Helper()
	mb := mailbox.New(mailbox.NewMemoryStore())
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(mb, Config{
		HeartbeatInterval: 30 * time.Second,
		PollInterval:      time.Second,
		DefaultTimeout:    120 * time.Second,
	}, opts...), mb
}

func TestWait_TimeoutHeartbeatCount(t *testing.T) {
	tests := []struct {
		name           string
		timeout        time.Duration
		wantHeartbeats int
	}{
		{"shorter than interval", 10 * time.Second, 0},
		{"just under one interval", 29 * time.Second, 0},
		{"exactly one interval", 30 * time.Second, 1},
		{"sixty five seconds", 65 * time.Second, 2},
		{"exactly two intervals", 60 * time.Second, 2},
		{"default timeout", 120 * time.Second, 4},
		{"one second", time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			c, _ := newTestCoordinator(t, clock)
			sink, heartbeats := recordHeartbeats(clock)

			res, err := c.Wait(context.Background(), "agent-1", tt.timeout, sink)
			if err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if res.Delivered || res.Canceled {
				t.Errorf("result = %+v, want timed out", res)
			}
			if res.Heartbeats != tt.wantHeartbeats {
				t.Errorf("Heartbeats = %d, want %d", res.Heartbeats, tt.wantHeartbeats)
			}
			if got := len(heartbeats()); got != tt.wantHeartbeats {
				t.Errorf("sink called %d times, want %d", got, tt.wantHeartbeats)
			}
			if res.Waited != tt.timeout {
				t.Errorf("Waited = %v, want %v", res.Waited, tt.timeout)
			}
			if want := int(tt.timeout / time.Second); res.WaitedSeconds() != want {
				t.Errorf("WaitedSeconds() = %d, want %d", res.WaitedSeconds(), want)
			}
		})
	}
}

func TestWait_SixtyFiveSecondScenario(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestCoordinator(t, clock)
	sink, heartbeats := recordHeartbeats(clock)

	res, err := c.Wait(context.Background(), "agent-1", 65*time.Second, sink)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}

	got := heartbeats()
	if len(got) != 2 {
		t.Fatalf("got %d heartbeats, want 2", len(got))
	}
	if got[0].at != 30*time.Second || got[1].at != 60*time.Second {
		t.Errorf("heartbeats at %v and %v, want 30s and 60s", got[0].at, got[1].at)
	}
	if got[0].label != "Heartbeat #1 - waiting for work (30s/65s)" {
		t.Errorf("label[0] = %q", got[0].label)
	}
	if got[1].label != "Heartbeat #2 - waiting for work (60s/65s)" {
		t.Errorf("label[1] = %q", got[1].label)
	}
	if math.Abs(got[0].progress-30.0/65.0) > 1e-9 {
		t.Errorf("progress[0] = %v", got[0].progress)
	}
	if res.Waited != 65*time.Second || res.Heartbeats != 2 || res.Delivered {
		t.Errorf("result = %+v", res)
	}
}

func TestWait_DepositDuringWait(t *testing.T) {
	clock := newFakeClock()
	c, mb := newTestCoordinator(t, clock)
	sink, heartbeats := recordHeartbeats(clock)

	clock.at(5*time.Second, func() {
		if err := mb.Deposit(mailbox.Message{Content: "work", Mode: mailbox.ModeChallenge, Origin: mailbox.OriginTool}); err != nil {
			t.Errorf("Deposit: %v", err)
		}
	})

	res, err := c.Wait(context.Background(), "agent-1", 120*time.Second, sink)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Delivered {
		t.Fatalf("result = %+v, want delivered", res)
	}
	if res.Message.Content != "work" || res.Message.Mode != mailbox.ModeChallenge {
		t.Errorf("Message = %+v", res.Message)
	}
	if res.Waited != 5*time.Second || res.WaitedSeconds() != 5 {
		t.Errorf("Waited = %v, want 5s", res.Waited)
	}
	if res.Heartbeats != 0 || len(heartbeats()) != 0 {
		t.Errorf("Heartbeats = %d, want 0", res.Heartbeats)
	}
	if mb.IsPending() {
		t.Error("delivered message should be consumed")
	}
}

func TestWait_DepositAfterHeartbeats(t *testing.T) {
	clock := newFakeClock()
	c, mb := newTestCoordinator(t, clock)

	clock.at(75*time.Second, func() {
		_ = mb.Deposit(mailbox.Message{Content: "late", Mode: mailbox.ModeInfo})
	})

	res, err := c.Wait(context.Background(), "agent-1", 120*time.Second, nil)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Delivered || res.Heartbeats != 2 || res.Waited != 75*time.Second {
		t.Errorf("result = %+v, want delivered at 75s after 2 heartbeats", res)
	}
}

func TestWait_MessageAlreadyPending(t *testing.T) {
	clock := newFakeClock()
	c, mb := newTestCoordinator(t, clock)
	_ = mb.Deposit(mailbox.Message{Content: "ready", Mode: mailbox.ModeInfo})

	res, err := c.Wait(context.Background(), "agent-1", 30*time.Second, nil)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Delivered || res.Waited != 0 || res.Heartbeats != 0 {
		t.Errorf("result = %+v, want immediate delivery", res)
	}
	if clock.sleeps != 0 {
		t.Errorf("slept %d times before delivering a pending message", clock.sleeps)
	}
}

func TestWait_MessageBeatsTimeoutOnSameTick(t *testing.T) {
	clock := newFakeClock()
	c, mb := newTestCoordinator(t, clock)

	clock.at(10*time.Second, func() {
		_ = mb.Deposit(mailbox.Message{Content: "photo finish", Mode: mailbox.ModeInfo})
	})

	res, err := c.Wait(context.Background(), "agent-1", 10*time.Second, nil)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Delivered {
		t.Errorf("result = %+v, want delivered", res)
	}
}

func TestWait_DepositAfterTimeoutStaysPending(t *testing.T) {
	clock := newFakeClock()
	c, mb := newTestCoordinator(t, clock)

	res, err := c.Wait(context.Background(), "agent-1", 5*time.Second, nil)
	if err != nil || res.Delivered {
		t.Fatalf("first Wait = %+v, %v", res, err)
	}

	_ = mb.Deposit(mailbox.Message{Content: "next time", Mode: mailbox.ModeInfo})

	res, err = c.Wait(context.Background(), "agent-1", 5*time.Second, nil)
	if err != nil {
		t.Fatalf("second Wait: %v", err)
	}
	if !res.Delivered || res.Message.Content != "next time" {
		t.Errorf("second Wait = %+v, want the pending message", res)
	}
}

func TestWait_HeartbeatsIgnoreJitter(t *testing.T) {
	clock := newFakeClock()
	clock.jitter = 300 * time.Millisecond
	c, _ := newTestCoordinator(t, clock)
	sink, heartbeats := recordHeartbeats(clock)

	res, err := c.Wait(context.Background(), "agent-1", 125*time.Second, sink)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}

	got := heartbeats()
	if len(got) != 4 {
		t.Fatalf("got %d heartbeats, want 4", len(got))
	}
	for i, hb := range got {
		target := time.Duration(i+1) * 30 * time.Second
		if hb.at < target || hb.at >= target+time.Second {
			t.Errorf("heartbeat #%d at %v, want within one poll interval of %v", i+1, hb.at, target)
		}
	}
	if res.Waited < 125*time.Second || res.Waited >= 126*time.Second {
		t.Errorf("Waited = %v, want about 125s", res.Waited)
	}
}

func TestWait_LargeJitterCatchesUpHeartbeats(t *testing.T) {
	clock := newFakeClock()
	// Every sleep overshoots by more than a full heartbeat interval.
	clock.jitter = 45 * time.Second
	c, _ := newTestCoordinator(t, clock)
	sink, heartbeats := recordHeartbeats(clock)

	res, err := c.Wait(context.Background(), "agent-1", 90*time.Second, sink)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Heartbeats != 3 {
		t.Errorf("Heartbeats = %d, want 3", res.Heartbeats)
	}
	got := heartbeats()
	for i, hb := range got {
		if !strings.HasPrefix(hb.label, "Heartbeat #"+string(rune('1'+i))+" ") {
			t.Errorf("label[%d] = %q, want sequential numbering", i, hb.label)
		}
		if hb.progress < 0 || hb.progress > 1 {
			t.Errorf("progress[%d] = %v, outside [0,1]", i, hb.progress)
		}
	}
}

func TestWait_InvalidTimeout(t *testing.T) {
	clock := newFakeClock()
	mb := mailbox.New(mailbox.NewMemoryStore())
	c := New(mb, Config{MaxTimeout: time.Hour}, WithClock(clock))

	for _, timeout := range []time.Duration{0, -time.Second, 2 * time.Hour} {
		res, err := c.Wait(context.Background(), "agent-1", timeout, nil)
		if !errors.Is(err, errors.ErrInvalidArgument) {
			t.Errorf("Wait(%v) error = %v, want ErrInvalidArgument", timeout, err)
		}
		var vErr *errors.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "timeout" {
			t.Errorf("Wait(%v) should return a timeout ValidationError", timeout)
		}
		if res.SessionID != "" {
			t.Errorf("rejected wait should not start a session: %+v", res)
		}
	}
	if clock.sleeps != 0 {
		t.Error("rejected waits should not sleep")
	}
}

func TestWait_Cancellation(t *testing.T) {
	clock := newFakeClock()
	c, mb := newTestCoordinator(t, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.at(40*time.Second, cancel)

	res, err := c.Wait(ctx, "agent-1", 120*time.Second, nil)
	if !errors.Is(err, errors.ErrCanceled) {
		t.Fatalf("error = %v, want ErrCanceled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, should also match context.Canceled", err)
	}
	if res.Delivered || !res.Canceled {
		t.Errorf("result = %+v, want canceled", res)
	}
	if res.Heartbeats != 1 || res.Waited != 40*time.Second {
		t.Errorf("result = %+v, want 1 heartbeat at 40s", res)
	}

	// A deposit after cancellation is left for the next waiter.
	_ = mb.Deposit(mailbox.Message{Content: "x", Mode: mailbox.ModeInfo})
	if !mb.IsPending() {
		t.Error("message should remain pending")
	}
}

func TestWait_PublishesEvents(t *testing.T) {
	clock := newFakeClock()
	bus := event.NewBus(nil)

	var mu sync.Mutex
	var beats []event.HeartbeatEvent
	var done []event.WaitCompletedEvent
	bus.Subscribe(event.TypeHeartbeat, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		beats = append(beats, e.(event.HeartbeatEvent))
	})
	bus.Subscribe(event.TypeWaitCompleted, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		done = append(done, e.(event.WaitCompletedEvent))
	})

	c, _ := newTestCoordinator(t, clock, WithBus(bus))
	res, err := c.Wait(context.Background(), "agent-7", 65*time.Second, nil)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(beats) != 2 {
		t.Fatalf("heartbeat events = %d, want 2", len(beats))
	}
	for i, b := range beats {
		if b.Number != i+1 || b.AgentName != "agent-7" || b.SessionID != res.SessionID {
			t.Errorf("heartbeat event %d = %+v", i, b)
		}
	}
	if len(done) != 1 {
		t.Fatalf("completed events = %d, want 1", len(done))
	}
	if done[0].Outcome != event.OutcomeTimedOut || done[0].Heartbeats != 2 || done[0].Waited != 65*time.Second {
		t.Errorf("completed event = %+v", done[0])
	}
}

func TestWait_SessionIDsAreUnique(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestCoordinator(t, clock)

	a, _ := c.Wait(context.Background(), "a", time.Second, nil)
	b, _ := c.Wait(context.Background(), "b", time.Second, nil)
	if a.SessionID == "" || a.SessionID == b.SessionID {
		t.Errorf("session IDs %q and %q should be distinct and non-empty", a.SessionID, b.SessionID)
	}
	if a.AgentName != "a" || b.AgentName != "b" {
		t.Errorf("agent names = %q, %q", a.AgentName, b.AgentName)
	}
}

func TestWait_RealClockWakesOnDeposit(t *testing.T) {
	mb := mailbox.New(mailbox.NewMemoryStore())
	// A long poll interval proves the wake comes from the deposit signal.
	c := New(mb, Config{HeartbeatInterval: time.Minute, PollInterval: 30 * time.Second})

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = mb.Deposit(mailbox.Message{Content: "now", Mode: mailbox.ModeInfo})
	}()

	start := time.Now()
	res, err := c.Wait(context.Background(), "agent-1", time.Minute, nil)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Delivered {
		t.Fatalf("result = %+v, want delivered", res)
	}
	if took := time.Since(start); took > 5*time.Second {
		t.Errorf("delivery took %v, deposit should wake the waiter", took)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(mailbox.New(mailbox.NewMemoryStore()), Config{})
	cfg := c.Config()
	if cfg.HeartbeatInterval != DefaultHeartbeatInterval ||
		cfg.PollInterval != DefaultPollInterval ||
		cfg.DefaultTimeout != DefaultTimeout {
		t.Errorf("Config() = %+v, want defaults", cfg)
	}
	if cfg.MaxTimeout != 0 {
		t.Errorf("MaxTimeout = %v, want 0", cfg.MaxTimeout)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		elapsed, timeout time.Duration
		want             float64
	}{
		{0, time.Minute, 0},
		{30 * time.Second, time.Minute, 0.5},
		{time.Minute, time.Minute, 1},
		{61 * time.Second, time.Minute, 1},
		{-time.Second, time.Minute, 0},
		{time.Second, 0, 1},
	}
	for _, tt := range tests {
		if got := Progress(tt.elapsed, tt.timeout); got != tt.want {
			t.Errorf("Progress(%v, %v) = %v, want %v", tt.elapsed, tt.timeout, got, tt.want)
		}
	}
}

func TestHeartbeatLabel(t *testing.T) {
	got := HeartbeatLabel(3, 90*time.Second+400*time.Millisecond, 120*time.Second)
	if want := "Heartbeat #3 - waiting for work (90s/120s)"; got != want {
		t.Errorf("HeartbeatLabel() = %q, want %q", got, want)
	}
}
