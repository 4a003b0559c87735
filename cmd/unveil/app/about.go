package app

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"unveil/internal/config"
)

//go:embed about.md
var aboutMarkdown string

// AboutMarkdown returns the About page, ending with the configured contact details.
func AboutMarkdown(contact config.ContactConfig) string {
	var sb strings.Builder
	sb.WriteString(aboutMarkdown)
	if contact.SupportEmail != "" || contact.HelpPhone != "" {
		sb.WriteString("\n## Contact\n\n")
		if contact.SupportEmail != "" {
			fmt.Fprintf(&sb, "- Support: %s\n", contact.SupportEmail)
		}
		if contact.HelpPhone != "" {
			fmt.Fprintf(&sb, "- Help line: %s\n", contact.HelpPhone)
		}
	}
	return sb.String()
}

// RenderMarkdown renders md for a terminal of the given width. A style
// of "dark" or "light" forces that glamour theme; anything else detects
// it. On renderer errors the source text is returned unchanged.
func RenderMarkdown(md string, width int, style string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = md
		}
	}()

	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	switch style {
	case "dark", "light":
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return md
	}
	rendered, err := r.Render(md)
	if err != nil {
		return md
	}
	return rendered
}
