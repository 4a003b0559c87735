// Package toast holds short-lived user notifications.
package toast

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Toast is one notification.
type Toast struct {
	ID        int64
	Kind      Kind
	Title     string
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Notifier receives notifications from the search session, the verifier
// and the report form.
type Notifier interface {
	Notify(kind Kind, title, message string)
}

// Center keeps the visible toasts. Only the newest max are kept and each
// expires after the configured duration. Safe for concurrent use.
type Center struct {
	mu       sync.Mutex
	toasts   []Toast
	nextID   int64
	duration time.Duration
	max      int
	now      func() time.Time
	onChange func()
}

// NewCenter creates a Center. Non-positive arguments take the defaults (5s, 3).
func NewCenter(duration time.Duration, max int) *Center {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	if max <= 0 {
		max = 3
	}
	return &Center{duration: duration, max: max, now: time.Now}
}

// SetClock replaces the time source.
func (c *Center) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// OnChange registers fn to run after a toast is added. fn runs without the lock held.
func (c *Center) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Notify implements Notifier.
func (c *Center) Notify(kind Kind, title, message string) {
	c.mu.Lock()
	c.nextID++
	now := c.now()
	c.toasts = append(c.toasts, Toast{
		ID:        c.nextID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.duration),
	})
	if over := len(c.toasts) - c.max; over > 0 {
		c.toasts = append([]Toast(nil), c.toasts[over:]...)
	}
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (c *Center) Success(title, message string) { c.Notify(KindSuccess, title, message) }
func (c *Center) Error(title, message string)   { c.Notify(KindError, title, message) }
func (c *Center) Warning(title, message string) { c.Notify(KindWarning, title, message) }
func (c *Center) Info(title, message string)    { c.Notify(KindInfo, title, message) }

// Active drops expired toasts and returns the rest, oldest first.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

// Prune drops expired toasts and reports how many remain.
func (c *Center) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	return len(c.toasts)
}

func (c *Center) pruneLocked() {
	now := c.now()
	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if now.Before(t.ExpiresAt) {
			kept = append(kept, t)
		}
	}
	c.toasts = kept
}

// Dismiss removes the toast with the given id.
func (c *Center) Dismiss(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			return
		}
	}
}

// Clear removes every toast.
func (c *Center) Clear() {
	c.mu.Lock()
	c.toasts = nil
	c.mu.Unlock()
}

// Printer writes each notification as one line, for the non-interactive commands.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter returns a Notifier that writes to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Notify implements Notifier.
func (p *Printer) Notify(kind Kind, title, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if message == "" {
		fmt.Fprintf(p.w, "[%s] %s\n", kind, title)
		return
	}
	fmt.Fprintf(p.w, "[%s] %s: %s\n", kind, title, message)
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Kind, string, string) {}
