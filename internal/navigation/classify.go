package navigation

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"flockcore/internal/core"
	"flockcore/internal/payment"
	"flockcore/pkg/domain"
)

// Sentinel causes recognised by Classify.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrPremiumRequired = errors.New("premium plan required")
	ErrUnknownRoute    = errors.New("unknown route")
	ErrOffline         = errors.New("network unavailable")
)

// ArgumentError reports a malformed route parameter.
type ArgumentError struct {
	Argument string
	Reason   string
}

func (e ArgumentError) Error() string {
	if e.Reason == "" {
		return "invalid " + e.Argument
	}
	return "invalid " + e.Argument + ": " + e.Reason
}

// Classify maps err, raised while opening destination, onto one of the
// navigation error variants. It returns nil for a nil err.
func Classify(err error, destination string) domain.NavigationError {
	if err == nil {
		return nil
	}
	var nav domain.NavigationError
	if errors.As(err, &nav) {
		return nav
	}
	var arg ArgumentError
	var rules domain.RuleViolationError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return domain.AuthenticationRequired{Destination: destination}
	case errors.Is(err, ErrPremiumRequired):
		return domain.PremiumRequired{Feature: destination}
	case errors.Is(err, ErrUnknownRoute), errors.Is(err, domain.ErrDocumentNotFound), isNotFound(err):
		return domain.RouteNotFound{Route: destination}
	case errors.As(err, &arg):
		return domain.InvalidArgument{Route: destination, Argument: arg.Argument}
	case errors.As(err, &rules):
		return domain.InvalidArgument{Route: destination, Argument: ruleArgument(rules)}
	case errors.Is(err, domain.ErrDuplicate):
		return domain.InvalidArgument{Route: destination, Argument: "id"}
	case errors.Is(err, core.ErrValidation), errors.Is(err, payment.ErrInvalidCharge):
		return domain.InvalidArgument{Route: destination, Argument: argumentFrom(err)}
	case isNetwork(err):
		return domain.NetworkUnavailable{Destination: destination}
	default:
		return domain.LoadFailed{Destination: destination, Reason: err.Error()}
	}
}

func isNotFound(err error) bool {
	var nf domain.ErrNotFound
	return errors.As(err, &nf)
}

func isNetwork(err error) bool {
	if errors.Is(err, ErrOffline) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, payment.ErrGatewayUnavailable) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// ruleArgument names the field behind the first blocking violation.
func ruleArgument(e domain.RuleViolationError) string {
	if v, ok := e.Result.FirstBlocking(); ok && v.Field != "" {
		return v.Field
	}
	return "input"
}

// argumentFrom extracts "name" from messages shaped "invalid fowl: name is required".
func argumentFrom(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if field, _, ok := strings.Cut(msg, " "); ok && field != "" {
		return field
	}
	return "input"
}
