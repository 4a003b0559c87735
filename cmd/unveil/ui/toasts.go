package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"unveil/internal/toast"
)

var toastIcons = map[toast.Kind]string{
	toast.KindSuccess: "✓",
	toast.KindError:   "✗",
	toast.KindWarning: "!",
	toast.KindInfo:    "i",
}

func (s Styles) toastColor(kind toast.Kind) lipgloss.Color {
	switch kind {
	case toast.KindSuccess:
		return Success
	case toast.KindError:
		return Destructive
	case toast.KindWarning:
		return Warning
	default:
		return Info
	}
}

// RenderToast draws one notification as a bordered box.
func (s Styles) RenderToast(t toast.Toast) string {
	color := s.toastColor(t.Kind)
	head := lipgloss.NewStyle().Foreground(color).Bold(true).
		Render(toastIcons[t.Kind] + " " + t.Title)
	body := head
	if t.Message != "" {
		body += "\n" + s.Body.Width(44).Render(t.Message)
	}
	return s.Toast.BorderForeground(color).Render(body)
}

// RenderToasts stacks the notifications, newest at the bottom.
func (s Styles) RenderToasts(toasts []toast.Toast) string {
	if len(toasts) == 0 {
		return ""
	}
	boxes := make([]string, 0, len(toasts))
	for _, t := range toasts {
		boxes = append(boxes, s.RenderToast(t))
	}
	return lipgloss.JoinVertical(lipgloss.Right, boxes...)
}

// PlaceToasts overlays the stack on the right of view. The result has the
// same line count as view when the stack fits.
func (s Styles) PlaceToasts(view string, toasts []toast.Toast, width int) string {
	stack := s.RenderToasts(toasts)
	if stack == "" {
		return view
	}
	lines := strings.Split(view, "\n")
	stackLines := strings.Split(stack, "\n")
	stackWidth := lipgloss.Width(stack)

	for i, sl := range stackLines {
		if i >= len(lines) {
			lines = append(lines, "")
		}
		left := Truncate(lines[i], width-stackWidth-1)
		pad := width - lipgloss.Width(left) - lipgloss.Width(sl)
		if pad < 1 {
			pad = 1
		}
		lines[i] = left + strings.Repeat(" ", pad) + sl
	}
	return strings.Join(lines, "\n")
}
