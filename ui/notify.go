package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"mod-updater/apiclient"
)

// Level of a toast.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Toast is one user-facing notification.
type Toast struct {
	Level   Level
	Title   string
	Message string
	// Blocking toasts stay until dismissed.
	Blocking bool
}

func (t Toast) String() string {
	if t.Title == "" {
		return t.Message
	}
	return t.Title + ": " + t.Message
}

// Render styles the toast for the terminal.
func (t Toast) Render() string {
	switch t.Level {
	case LevelError:
		return Danger.Render("✗ " + t.String())
	case LevelWarning:
		return Warning.Render("! " + t.String())
	default:
		return Muted.Render("• " + t.String())
	}
}

func displayName(api string) string {
	switch strings.ToLower(api) {
	case "modrinth":
		return "Modrinth"
	case "curseforge":
		return "CurseForge"
	case "github":
		return "GitHub"
	case "mojang":
		return "Mojang"
	default:
		return api
	}
}

// RateLimitToast is the countdown notice for a rate-limited API.
func RateLimitToast(api string, wait time.Duration) Toast {
	return Toast{
		Level:   LevelWarning,
		Title:   "Rate Limit Exceeded",
		Message: fmt.Sprintf("%s rate limit was reached, please try again in %d seconds.", displayName(api), int(wait.Round(time.Second).Seconds())),
	}
}

// DeprecatedToast tells the user an integration needs maintenance.
func DeprecatedToast(api string) Toast {
	return Toast{
		Level:    LevelError,
		Title:    "API Deprecated",
		Message:  fmt.Sprintf("The %s API has been deprecated. Please notify the maintainer on GitHub.", displayName(api)),
		Blocking: true,
	}
}

// Notifier turns client notifications into toasts and hands them to Send.
// Repeated rate-limit toasts for one API are collapsed while the countdown
// from the first one is still running.
type Notifier struct {
	Send func(Toast)

	mu          sync.Mutex
	quietUntil  map[string]time.Time
	deprecation map[string]bool
	now         func() time.Time
}

var _ apiclient.Notifier = (*Notifier)(nil)

// NewNotifier creates a Notifier delivering to send.
func NewNotifier(send func(Toast)) *Notifier {
	return &Notifier{
		Send:        send,
		quietUntil:  make(map[string]time.Time),
		deprecation: make(map[string]bool),
		now:         time.Now,
	}
}

// WriterNotifier prints each toast as a line on w.
func WriterNotifier(w io.Writer) *Notifier {
	var mu sync.Mutex
	return NewNotifier(func(t Toast) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, t.Render())
	})
}

func (n *Notifier) RateLimited(api string, wait time.Duration) {
	n.mu.Lock()
	now := n.now()
	if until, ok := n.quietUntil[api]; ok && now.Before(until) {
		n.mu.Unlock()
		return
	}
	n.quietUntil[api] = now.Add(wait)
	n.mu.Unlock()
	n.Send(RateLimitToast(api, wait))
}

func (n *Notifier) Deprecated(api string) {
	n.mu.Lock()
	seen := n.deprecation[api]
	n.deprecation[api] = true
	n.mu.Unlock()
	if !seen {
		n.Send(DeprecatedToast(api))
	}
}

func (n *Notifier) Notice(message string) {
	n.Send(Toast{Level: LevelInfo, Message: message})
}
