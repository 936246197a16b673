package navigation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"flockcore/internal/core"
	"flockcore/internal/payment"
	"flockcore/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDispatcherBroadcasts(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()
	a, cancelA := d.Subscribe()
	b, cancelB := d.Subscribe()
	defer cancelA()
	defer cancelB()

	n := d.Dispatch(domain.RouteNotFound{Route: "/fowls/x"})
	assert.Equal(t, 2, n)
	evA, evB := <-a, <-b
	assert.Equal(t, evA.Seq, evB.Seq)
	assert.Equal(t, "route_not_found", evA.Err.Kind())
	assert.Zero(t, d.Dispatch(nil))
}

func TestDispatcherNeverBlocksOnSlowSubscriber(t *testing.T) {
	obsCore, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(WithBuffer(1), WithLogger(zap.New(obsCore)))
	defer d.Close()
	slow, cancel := d.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Dispatch(domain.LoadFailed{Destination: fmt.Sprintf("/p/%d", i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full subscriber")
	}
	assert.EqualValues(t, 4, d.Dropped())
	assert.Equal(t, 4, logs.FilterMessage("navigation event dropped").Len())
	first := <-slow
	assert.Equal(t, "Could not load /p/0", first.Err.Message())
}

func TestDispatcherCancelAndClose(t *testing.T) {
	d := NewDispatcher()
	ch, cancel := d.Subscribe()
	require.Equal(t, 1, d.Subscribers())
	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, d.Subscribers())

	other, _ := d.Subscribe()
	d.Close()
	d.Close()
	_, ok = <-other
	assert.False(t, ok)
	assert.Zero(t, d.Dispatch(domain.RouteNotFound{Route: "/"}))

	late, _ := d.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestDispatcherConcurrentUse(t *testing.T) {
	d := NewDispatcher(WithBuffer(64))
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		ch, cancel := d.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			for range ch {
			}
		}()
	}
	for i := 0; i < 50; i++ {
		d.Dispatch(domain.NetworkUnavailable{Destination: "/"})
	}
	d.Close()
	wg.Wait()
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind string
	}{
		{"unauthenticated", fmt.Errorf("open: %w", ErrUnauthenticated), "authentication_required"},
		{"premium", ErrPremiumRequired, "premium_required"},
		{"unknown route", ErrUnknownRoute, "route_not_found"},
		{"missing document", fmt.Errorf("get: %w", domain.ErrDocumentNotFound), "route_not_found"},
		{"missing fowl", domain.ErrNotFound{Entity: domain.EntityFowl, ID: "x"}, "route_not_found"},
		{"argument", ArgumentError{Argument: "depth"}, "invalid_argument"},
		{"validation", fmt.Errorf("%w: name is required", core.ErrValidation), "invalid_argument"},
		{"bad charge", payment.ErrInvalidCharge, "invalid_argument"},
		{"rule violation", lineageBlock("dam_id"), "invalid_argument"},
		{"duplicate", fmt.Errorf("fowl x: %w", domain.ErrDuplicate), "invalid_argument"},
		{"offline", ErrOffline, "network_unavailable"},
		{"deadline", context.DeadlineExceeded, "network_unavailable"},
		{"net error", &net.OpError{Op: "dial", Err: timeoutErr{}}, "network_unavailable"},
		{"gateway", payment.ErrGatewayUnavailable, "network_unavailable"},
		{"other", errors.New("disk full"), "load_failed"},
		{"already classified", fmt.Errorf("wrap: %w", domain.PremiumRequired{Feature: "analytics"}), "premium_required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err, "/fowls")
			require.NotNil(t, got)
			assert.Equal(t, tc.kind, got.Kind())
		})
	}
	assert.Nil(t, Classify(nil, "/"))

	lf := Classify(errors.New("disk full"), "/fowls")
	assert.Equal(t, "Could not load /fowls: disk full", lf.Message())
	inv := Classify(fmt.Errorf("%w: name is required", core.ErrValidation), "/fowls")
	assert.Equal(t, "Invalid name for /fowls", inv.Message())
	rule := Classify(lineageBlock("sire_id"), "/fowls")
	assert.Equal(t, domain.InvalidArgument{Route: "/fowls", Argument: "sire_id"}, rule)
	unnamed := Classify(lineageBlock(""), "/fowls")
	assert.Equal(t, "Invalid input for /fowls", unnamed.Message())
	dup := Classify(domain.ErrDuplicate, "/fowls")
	assert.Equal(t, "Invalid id for /fowls", dup.Message())
	auth := Classify(ErrUnauthenticated, "/analytics")
	assert.Equal(t, domain.ActionRedirect, auth.Action())
}

func lineageBlock(field string) error {
	return domain.RuleViolationError{Result: domain.RuleResult{Violations: []domain.Violation{
		{Rule: "lineage_integrity", Severity: domain.SeverityWarn, Message: "unknown dam", Field: "dam_id"},
		{Rule: "lineage_integrity", Severity: domain.SeverityBlock, Message: "bad parent", Field: field},
	}}}
}

type scriptedNotifier struct {
	mu     sync.Mutex
	reply  domain.NavigationAction
	block  bool
	err    error
	shown  []Notification
	notify chan struct{}
}

func (s *scriptedNotifier) Notify(ctx context.Context, n Notification) (domain.NavigationAction, error) {
	s.mu.Lock()
	s.shown = append(s.shown, n)
	reply, block, err := s.reply, s.block, s.err
	s.mu.Unlock()
	defer func() { s.notify <- struct{}{} }()
	if block {
		<-ctx.Done()
		return domain.ActionNone, ctx.Err()
	}
	return reply, err
}

type recordingHandler struct {
	mu    sync.Mutex
	calls []domain.NavigationAction
	route string
}

func (h *recordingHandler) Handle(_ context.Context, action domain.NavigationAction, cause domain.NavigationError) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, action)
	if auth, ok := cause.(domain.AuthenticationRequired); ok {
		h.route = auth.RedirectTarget()
	}
	return nil
}

func (h *recordingHandler) snapshot() ([]domain.NavigationAction, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.NavigationAction(nil), h.calls...), h.route
}

func runPresenter(t *testing.T, n *scriptedNotifier, h ActionHandler) (*Dispatcher, func()) {
	t.Helper()
	d := NewDispatcher()
	p := NewPresenter(d, n, h, nil)
	p.SetAckTimeout(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	require.Eventually(t, func() bool { return d.Subscribers() == 1 }, time.Second, time.Millisecond)
	return d, func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
		d.Close()
	}
}

func TestPresenterRoutesOfferedAction(t *testing.T) {
	n := &scriptedNotifier{reply: domain.ActionRedirect, notify: make(chan struct{}, 4)}
	h := &recordingHandler{}
	d, stop := runPresenter(t, n, h)
	defer stop()

	d.Dispatch(domain.AuthenticationRequired{Destination: "/market"})
	<-n.notify
	require.Eventually(t, func() bool { calls, _ := h.snapshot(); return len(calls) == 1 }, time.Second, time.Millisecond)
	calls, route := h.snapshot()
	assert.Equal(t, []domain.NavigationAction{domain.ActionRedirect}, calls)
	assert.Equal(t, domain.LoginRoute, route)

	n.mu.Lock()
	shown := n.shown[0]
	n.mu.Unlock()
	assert.Equal(t, "Sign in", shown.ActionLabel)
	assert.Equal(t, domain.NavSeverityWarning, shown.Severity)
}

func TestPresenterIgnoresUnofferedAndDismissedActions(t *testing.T) {
	n := &scriptedNotifier{reply: domain.ActionRetry, notify: make(chan struct{}, 4)}
	h := &recordingHandler{}
	d, stop := runPresenter(t, n, h)

	d.Dispatch(domain.PremiumRequired{Feature: "Analytics"})
	<-n.notify
	n.mu.Lock()
	n.reply = domain.ActionNone
	n.mu.Unlock()
	d.Dispatch(domain.LoadFailed{Destination: "/fowls"})
	<-n.notify
	stop()

	calls, _ := h.snapshot()
	assert.Empty(t, calls)
}

func TestPresenterAckTimeout(t *testing.T) {
	n := &scriptedNotifier{block: true, notify: make(chan struct{}, 4)}
	h := &recordingHandler{}
	d, stop := runPresenter(t, n, h)

	d.Dispatch(domain.RouteNotFound{Route: "/nowhere"})
	select {
	case <-n.notify:
	case <-time.After(time.Second):
		t.Fatal("notification did not time out")
	}
	d.Dispatch(domain.RouteNotFound{Route: "/again"})
	<-n.notify
	stop()
	calls, _ := h.snapshot()
	assert.Empty(t, calls)
}

func TestPresenterStopsWhenDispatcherCloses(t *testing.T) {
	d := NewDispatcher()
	p := NewPresenter(d, LogNotifier{Log: zap.NewNop()}, nil, nil)
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()
	require.Eventually(t, func() bool { return d.Subscribers() == 1 }, time.Second, time.Millisecond)
	d.Dispatch(domain.InvalidArgument{Route: "/fowls", Argument: "id"})
	d.Close()
	require.NoError(t, <-done)
}

func TestLogNotifierLevels(t *testing.T) {
	obsCore, logs := observer.New(zap.DebugLevel)
	n := LogNotifier{Log: zap.New(obsCore)}
	for _, err := range []domain.NavigationError{
		domain.PremiumRequired{Feature: "Export"},
		domain.NetworkUnavailable{Destination: "/"},
		domain.LoadFailed{Destination: "/"},
	} {
		action, e := n.Notify(context.Background(), NotificationFor(err))
		require.NoError(t, e)
		assert.Equal(t, domain.ActionNone, action)
	}
	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
}
