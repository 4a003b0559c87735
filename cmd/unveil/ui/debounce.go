package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DebouncedMsg is delivered when a debounce period ends. Only the most
// recent one for a key is Ready.
type DebouncedMsg struct {
	Key string
	Seq uint64
}

// Debouncer collapses rapid events (keystrokes in the search box) into a
// single message delivered after the quiet period.
type Debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	seq      map[string]uint64
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		seq:      make(map[string]uint64),
	}
}

// Trigger restarts the quiet period for key and returns the command that
// delivers its DebouncedMsg. Earlier pending messages for key go stale.
func (d *Debouncer) Trigger(key string) tea.Cmd {
	d.mu.Lock()
	d.seq[key]++
	seq := d.seq[key]
	d.mu.Unlock()

	return tea.Tick(d.duration, func(time.Time) tea.Msg {
		return DebouncedMsg{Key: key, Seq: seq}
	})
}

// Ready reports whether msg is the latest trigger for its key.
func (d *Debouncer) Ready(msg DebouncedMsg) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq[msg.Key] == msg.Seq
}

// Cancel makes any pending message for key stale.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	d.seq[key]++
	d.mu.Unlock()
}

// DefaultSearchDebounce matches the search.debounce default.
const DefaultSearchDebounce = 300 * time.Millisecond
