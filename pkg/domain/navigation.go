package domain

import "fmt"

// NavigationAction is the recovery action suggested alongside a navigation
// failure.
type NavigationAction string

// Recovery actions offered to the user.
const (
	ActionNone          NavigationAction = ""
	ActionRedirect      NavigationAction = "redirect"
	ActionRetry         NavigationAction = "retry"
	ActionShowUpgrade   NavigationAction = "show_upgrade"
	ActionEnableOffline NavigationAction = "enable_offline"
	ActionGoHome        NavigationAction = "go_home"
	ActionDismiss       NavigationAction = "dismiss"
)

// Label returns the button caption for the action.
func (a NavigationAction) Label() string {
	switch a {
	case ActionRedirect:
		return "Sign in"
	case ActionRetry:
		return "Retry"
	case ActionShowUpgrade:
		return "Upgrade"
	case ActionEnableOffline:
		return "Go offline"
	case ActionGoHome:
		return "Home"
	case ActionDismiss:
		return "Dismiss"
	default:
		return ""
	}
}

// NavigationSeverity ranks how prominently a failure is shown.
type NavigationSeverity string

// Navigation severities.
const (
	NavSeverityInfo     NavigationSeverity = "info"
	NavSeverityWarning  NavigationSeverity = "warning"
	NavSeverityError    NavigationSeverity = "error"
	NavSeverityCritical NavigationSeverity = "critical"
)

// LoginRoute is the redirect target for AuthenticationRequired.
const LoginRoute = "/login"

// NavigationError is the closed set of classified navigation failures. Only
// the six variants in this package implement it.
type NavigationError interface {
	error
	Message() string
	Action() NavigationAction
	Severity() NavigationSeverity
	Kind() string
	navigationError()
}

// RouteNotFound reports a destination with no registered screen.
type RouteNotFound struct {
	Route string `json:"route"`
}

func (e RouteNotFound) Error() string { return e.Message() }
func (e RouteNotFound) Message() string { return fmt.Sprintf("Page %q could not be found", e.Route) }
func (RouteNotFound) Action() NavigationAction { return ActionGoHome }
func (RouteNotFound) Severity() NavigationSeverity { return NavSeverityWarning }
func (RouteNotFound) Kind() string { return "route_not_found" }
func (RouteNotFound) navigationError() {}

// AuthenticationRequired reports a destination that needs a signed-in user.
type AuthenticationRequired struct {
	Destination string `json:"destination"`
}

func (e AuthenticationRequired) Error() string { return e.Message() }
func (e AuthenticationRequired) Message() string {
	return fmt.Sprintf("Sign in to open %s", e.Destination)
}
func (AuthenticationRequired) Action() NavigationAction { return ActionRedirect }
func (AuthenticationRequired) Severity() NavigationSeverity { return NavSeverityWarning }
func (AuthenticationRequired) Kind() string { return "authentication_required" }
func (AuthenticationRequired) navigationError() {}

// RedirectTarget returns the route the redirect action should open.
func (AuthenticationRequired) RedirectTarget() string { return LoginRoute }

// NetworkUnavailable reports a destination that could not reach the remote store.
type NetworkUnavailable struct {
	Destination string `json:"destination"`
}

func (e NetworkUnavailable) Error() string { return e.Message() }
func (e NetworkUnavailable) Message() string {
	return fmt.Sprintf("No connection while opening %s", e.Destination)
}
func (NetworkUnavailable) Action() NavigationAction { return ActionEnableOffline }
func (NetworkUnavailable) Severity() NavigationSeverity { return NavSeverityWarning }
func (NetworkUnavailable) Kind() string { return "network_unavailable" }
func (NetworkUnavailable) navigationError() {}

// LoadFailed reports a destination whose data could not be loaded.
type LoadFailed struct {
	Destination string `json:"destination"`
	Reason      string `json:"reason"`
}

func (e LoadFailed) Error() string { return e.Message() }
func (e LoadFailed) Message() string {
	if e.Reason == "" {
		return fmt.Sprintf("Could not load %s", e.Destination)
	}
	return fmt.Sprintf("Could not load %s: %s", e.Destination, e.Reason)
}
func (LoadFailed) Action() NavigationAction { return ActionRetry }
func (LoadFailed) Severity() NavigationSeverity { return NavSeverityError }
func (LoadFailed) Kind() string { return "load_failed" }
func (LoadFailed) navigationError() {}

// PremiumRequired reports a feature gated behind a subscription.
type PremiumRequired struct {
	Feature string `json:"feature"`
}

func (e PremiumRequired) Error() string { return e.Message() }
func (e PremiumRequired) Message() string {
	return fmt.Sprintf("%s is available on the premium plan", e.Feature)
}
func (PremiumRequired) Action() NavigationAction { return ActionShowUpgrade }
func (PremiumRequired) Severity() NavigationSeverity { return NavSeverityInfo }
func (PremiumRequired) Kind() string { return "premium_required" }
func (PremiumRequired) navigationError() {}

// InvalidArgument reports a malformed route parameter.
type InvalidArgument struct {
	Route    string `json:"route"`
	Argument string `json:"argument"`
}

func (e InvalidArgument) Error() string { return e.Message() }
func (e InvalidArgument) Message() string {
	return fmt.Sprintf("Invalid %s for %s", e.Argument, e.Route)
}
func (InvalidArgument) Action() NavigationAction { return ActionDismiss }
func (InvalidArgument) Severity() NavigationSeverity { return NavSeverityError }
func (InvalidArgument) Kind() string { return "invalid_argument" }
func (InvalidArgument) navigationError() {}

var (
	_ NavigationError = RouteNotFound{}
	_ NavigationError = AuthenticationRequired{}
	_ NavigationError = NetworkUnavailable{}
	_ NavigationError = LoadFailed{}
	_ NavigationError = PremiumRequired{}
	_ NavigationError = InvalidArgument{}
)
