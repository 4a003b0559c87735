package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"unveil/internal/toast"
)

func TestRenderToast(t *testing.T) {
	s := DefaultStyles()
	out := s.RenderToast(toast.Toast{Kind: toast.KindError, Title: "Vote Failed", Message: "Server error"})
	if !strings.Contains(out, "Vote Failed") || !strings.Contains(out, "Server error") {
		t.Errorf("toast missing content: %q", out)
	}
	if !strings.Contains(out, "✗") {
		t.Errorf("toast missing error icon: %q", out)
	}
}

func TestRenderToastsEmpty(t *testing.T) {
	if got := DefaultStyles().RenderToasts(nil); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestPlaceToasts(t *testing.T) {
	s := DefaultStyles()
	view := strings.Repeat("line\n", 9) + "line"

	if got := s.PlaceToasts(view, nil, 80); got != view {
		t.Error("view changed without toasts")
	}

	out := s.PlaceToasts(view, []toast.Toast{{Kind: toast.KindInfo, Title: "Last Page"}}, 80)
	if !strings.Contains(out, "Last Page") {
		t.Error("overlay missing toast")
	}
	if got := strings.Count(out, "\n"); got != 9 {
		t.Errorf("line count changed: %d newlines", got)
	}
	for _, line := range strings.Split(out, "\n") {
		if w := lipgloss.Width(line); w > 80 {
			t.Errorf("line wider than terminal: %d", w)
		}
	}
}
