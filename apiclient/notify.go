package apiclient

import "time"

// Notifier surfaces conditions the user should see while a run is going.
type Notifier interface {
	// RateLimited is a non-blocking countdown notice.
	RateLimited(api string, wait time.Duration)
	// Deprecated is a blocking notice: the integration itself needs maintenance.
	Deprecated(api string)
	// Notice is a plain informational message.
	Notice(message string)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) RateLimited(string, time.Duration) {}
func (NopNotifier) Deprecated(string)                 {}
func (NopNotifier) Notice(string)                     {}
