package navigation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"flockcore/pkg/domain"
)

// DefaultAckTimeout bounds how long a notification waits for the user.
const DefaultAckTimeout = 10 * time.Second

// Notification is what a Notifier shows for one failure. Action is the only
// action the user may invoke; ActionNone means the message is dismiss-only.
type Notification struct {
	Kind        string                    `json:"kind"`
	Message     string                    `json:"message"`
	Severity    domain.NavigationSeverity `json:"severity"`
	Action      domain.NavigationAction   `json:"action,omitempty"`
	ActionLabel string                    `json:"action_label,omitempty"`
}

// NotificationFor renders a navigation error.
func NotificationFor(err domain.NavigationError) Notification {
	return Notification{
		Kind:        err.Kind(),
		Message:     err.Message(),
		Severity:    err.Severity(),
		Action:      err.Action(),
		ActionLabel: err.Action().Label(),
	}
}

// Notifier shows a notification and returns the action the user invoked, or
// ActionNone when it was dismissed.
type Notifier interface {
	Notify(ctx context.Context, n Notification) (domain.NavigationAction, error)
}

// ActionHandler carries out a recovery action for the error that offered it.
type ActionHandler interface {
	Handle(ctx context.Context, action domain.NavigationAction, cause domain.NavigationError) error
}

// ActionHandlerFunc adapts a function into an ActionHandler.
type ActionHandlerFunc func(ctx context.Context, action domain.NavigationAction, cause domain.NavigationError) error

// Handle implements ActionHandler.
func (f ActionHandlerFunc) Handle(ctx context.Context, action domain.NavigationAction, cause domain.NavigationError) error {
	return f(ctx, action, cause)
}

// Presenter drains a dispatcher subscription, shows each error and routes the
// chosen action.
type Presenter struct {
	dispatcher *Dispatcher
	notifier   Notifier
	handler    ActionHandler
	ackTimeout time.Duration
	log        *zap.Logger
}

// NewPresenter wires a presenter. A nil handler ignores invoked actions.
func NewPresenter(d *Dispatcher, n Notifier, h ActionHandler, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{dispatcher: d, notifier: n, handler: h, ackTimeout: DefaultAckTimeout, log: logger.Named("presenter")}
}

// SetAckTimeout overrides DefaultAckTimeout.
func (p *Presenter) SetAckTimeout(d time.Duration) {
	if d > 0 {
		p.ackTimeout = d
	}
}

// Run presents events until ctx ends or the dispatcher closes. It returns
// nil when the dispatcher closes and ctx.Err() on cancellation.
func (p *Presenter) Run(ctx context.Context) error {
	events, cancel := p.dispatcher.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.present(ctx, ev)
		}
	}
}

func (p *Presenter) present(ctx context.Context, ev Event) {
	n := NotificationFor(ev.Err)
	ackCtx, cancel := context.WithTimeout(ctx, p.ackTimeout)
	action, err := p.notifier.Notify(ackCtx, n)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.log.Debug("notification not acknowledged", zap.Uint64("seq", ev.Seq), zap.String("kind", n.Kind))
		} else {
			p.log.Warn("notify failed", zap.Uint64("seq", ev.Seq), zap.Error(err))
		}
		return
	}
	if action == domain.ActionNone || action == domain.ActionDismiss || p.handler == nil {
		return
	}
	if action != n.Action {
		p.log.Warn("ignoring action not offered", zap.String("action", string(action)), zap.String("offered", string(n.Action)))
		return
	}
	if err := p.handler.Handle(ctx, action, ev.Err); err != nil {
		p.log.Error("recovery action failed", zap.String("action", string(action)), zap.Error(err))
	}
}

// LogNotifier writes notifications to a zap logger at a level matching their
// severity and never invokes an action.
type LogNotifier struct {
	Log *zap.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, n Notification) (domain.NavigationAction, error) {
	fields := []zap.Field{zap.String("kind", n.Kind), zap.String("action", string(n.Action))}
	switch n.Severity {
	case domain.NavSeverityInfo:
		l.Log.Info(n.Message, fields...)
	case domain.NavSeverityWarning:
		l.Log.Warn(n.Message, fields...)
	default:
		l.Log.Error(n.Message, fields...)
	}
	return domain.ActionNone, nil
}
