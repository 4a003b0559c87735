package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"unveil/cmd/unveil/ui"
	"unveil/internal/report"
	"unveil/internal/search"
	"unveil/internal/types"
	"unveil/internal/verification"
)

const defaultWidth = 80

func (m *Model) viewWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

// resize fits the scrollable About page to the window.
func (m *Model) resize() {
	m.about.Width = m.viewWidth()
	h := m.height - 4
	if h < 5 {
		h = 5
	}
	m.about.Height = h
	m.description.SetWidth(min(60, m.viewWidth()-20))
	if m.page == PageAbout {
		m.refreshAbout()
	}
}

func (m *Model) refreshAbout() {
	md := AboutMarkdown(m.cfg.Contact)
	m.about.SetContent(RenderMarkdown(md, m.viewWidth()-2, m.cfg.UI.Theme))
	m.about.GotoTop()
}

// View implements tea.Model.
func (m *Model) View() string {
	w := m.viewWidth()

	var body string
	switch {
	case m.showVerify:
		body = m.renderVerify(w)
	case m.page == PageCase:
		body = m.renderCase(w)
	case m.page == PageReport:
		body = m.renderReport(w)
	case m.page == PageAbout:
		body = m.about.View()
	default:
		body = m.renderHome(w)
	}

	view := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(w),
		m.styles.Content.Render(body),
		m.renderFooter(w),
	)
	return m.styles.PlaceToasts(view, m.toasts.Active(), w)
}

func (m *Model) renderHeader(width int) string {
	title := m.styles.Title.Render("Unveil") + m.styles.Muted.Render(" · "+m.page.String())

	status := m.styles.Muted.Render("not verified")
	if st := m.verifier.State(); st.IsVerified {
		status = m.styles.Success.Render("✓ " + st.Email)
	}
	gap := width - lipgloss.Width(title) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}
	return m.styles.Header.Render(title+strings.Repeat(" ", gap)+status) + "\n" + m.styles.RenderDivider(width)
}

func (m *Model) renderFooter(width int) string {
	var keys string
	switch {
	case m.showVerify:
		keys = "enter submit • esc cancel"
		if m.flow.Step() == verification.StepCode {
			keys = "enter verify • r resend • ctrl+b change email • esc cancel"
		}
	case m.page == PageCase:
		keys = "esc back"
		if m.cfg.Features.EnableVoting {
			keys = "g vote guilty • n vote not guilty • esc back"
		}
	case m.page == PageReport:
		keys = "tab next • shift+tab prev • ←/→ scam type • ctrl+s submit • esc back"
	case m.page == PageAbout:
		keys = "↑/↓ scroll • esc back"
	case m.focus == focusList:
		keys = "↑/↓ select • enter open • ←/→ page • tab search"
	default:
		keys = "enter search • ctrl+f filter • tab results • ctrl+r report • ctrl+a about • ctrl+o verify • ctrl+c quit"
	}
	return m.styles.RenderDivider(width) + "\n" + m.styles.Footer.Render(ui.Truncate(keys, width))
}

// =============================================================================
// HOME
// =============================================================================

func (m *Model) renderHome(width int) string {
	st := m.session.State()
	var sb strings.Builder

	sb.WriteString(m.styles.Label.Render("Filter") + m.styles.Bold.Render(st.Filter.Label()) + "\n")
	sb.WriteString(m.query.View() + "\n")
	if m.hint != "" {
		sb.WriteString(m.styles.Error.Render(m.hint) + "\n")
	}
	sb.WriteString("\n")

	switch {
	case m.searching:
		sb.WriteString(m.spinner.View() + " Searching...\n")
	case st.Error != "":
		sb.WriteString(m.styles.Error.Render(st.Error) + "\n")
	case st.HasSearched:
		sb.WriteString(m.renderResults(st, width))
	default:
		sb.WriteString(m.renderHistory(width))
	}
	return sb.String()
}

func (m *Model) renderResults(st search.State, width int) string {
	if len(st.Results) == 0 {
		msg := st.LastSearchMessage
		if msg == "" {
			msg = "No matching cases found."
		}
		return m.styles.Muted.Render(msg) + "\n"
	}

	t := ui.NewSimpleTable("", []string{"#", "Name", "Email", "Phone", "Company", "Type", "Verdict", "Votes"})
	t.MaxWidth = []int{6, 18, 24, 16, 18, 18, 13, 5}
	if width < 120 {
		t.MaxWidth = []int{6, 14, 18, 14, 12, 12, 13, 5}
	}
	for _, c := range st.Results {
		t.AddRow(fmt.Sprint(c.ID), orDash(c.Name), orDash(c.Email), orDash(c.Phone), orDash(c.Company),
			c.Actions, c.Verdict(), fmt.Sprint(c.TotalVotes))
	}
	if m.focus == focusList {
		t.Selected = m.selected
	}

	var sb strings.Builder
	if st.LastSearchMessage != "" {
		sb.WriteString(m.styles.Subtitle.Render(st.LastSearchMessage) + "\n")
	}
	sb.WriteString(t.View(m.styles))
	if p := st.Pagination; p != nil {
		from, to := p.Range()
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("Showing %d-%d of %d · Page %d of %d",
			from, to, p.TotalElements, p.CurrentPage+1, max(p.TotalPages, 1))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderHistory(width int) string {
	if m.booting {
		return m.spinner.View() + " Loading history...\n"
	}
	var sb strings.Builder
	if len(m.searches) > 0 {
		t := ui.NewSimpleTable("Recent searches", []string{"Query", "Filter", "Results", "When"})
		t.MaxWidth = []int{max(width/3, 10), 12, 8, 16}
		for _, s := range m.searches {
			t.AddRow(s.Query, s.Filter.Label(), fmt.Sprint(s.TotalResults), s.SearchedAt.Local().Format("Jan 2 15:04"))
		}
		if m.focus == focusList {
			t.Selected = m.selected
		}
		sb.WriteString(t.View(m.styles) + "\n")
	}
	if len(m.reports) > 0 {
		t := ui.NewSimpleTable("Your reports", []string{"Case", "Subject", "Type", "Submitted"})
		t.MaxWidth = []int{8, max(width/3, 10), 18, 16}
		for _, r := range m.reports {
			t.AddRow(fmt.Sprintf("#%d", r.CaseID), r.Subject, r.Actions, r.SubmittedAt.Local().Format("Jan 2 15:04"))
		}
		sb.WriteString(t.View(m.styles))
	}
	if sb.Len() == 0 {
		sb.WriteString(m.styles.Muted.Render("Search the community database before you trust a contact."))
		sb.WriteString("\n")
	}
	return sb.String()
}

// =============================================================================
// CASE DETAIL
// =============================================================================

func (m *Model) renderCase(width int) string {
	c, ok := m.session.Case(m.caseID)
	if !ok {
		return m.styles.Muted.Render(fmt.Sprintf("Case #%d is no longer in the results.", m.caseID))
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(fmt.Sprintf("Case #%d", c.ID)) + "  " + m.styles.VerdictBadge(c.Verdict()) + "\n\n")
	row := func(label, value string) {
		if value == "" {
			return
		}
		sb.WriteString(m.styles.Label.Render(label) + m.styles.Body.Render(value) + "\n")
	}
	row("Name", c.Name)
	row("Email", c.Email)
	row("Phone", c.Phone)
	row("Company", c.Company)
	row("Scam type", c.Actions)
	if !c.CreatedAt.IsZero() {
		row("Reported", c.CreatedAt.Local().Format("Jan 2, 2006"))
	}
	row("Votes", fmt.Sprintf("%d guilty · %d not guilty (%d total)", c.GuiltyVotes, c.NotGuiltyVotes, c.TotalVotes))
	if c.TotalVotes > 0 {
		row("Confidence", fmt.Sprintf("%d%%", c.Confidence()))
	}
	if c.LastVotedAt != nil {
		row("Last vote", c.LastVotedAt.Local().Format("Jan 2 15:04"))
	}
	if c.Description != "" {
		sb.WriteString("\n" + m.styles.Card.Width(min(width-4, 76)).Render(c.Description) + "\n")
	}

	if m.cfg.Features.EnableVoting {
		sb.WriteString("\n")
		if m.session.IsVotingInProgress(c.ID) {
			sb.WriteString(m.spinner.View() + " Voting...")
		} else {
			sb.WriteString(m.styles.Button.Render("g Guilty") + " " + m.styles.Button.Render("n Not Guilty"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// =============================================================================
// REPORT FORM
// =============================================================================

func (m *Model) renderReport(width int) string {
	var sb strings.Builder
	sb.WriteString(m.styles.Subtitle.Render("Provide at least one of the scammer's name, email or phone.") + "\n\n")

	for i, f := range report.Fields {
		focused := i == m.fieldIdx
		label := m.styles.Label.Render(f.Label())
		if focused {
			label = m.styles.Focused.Width(16).Render(f.Label())
		}

		var input string
		switch f {
		case report.FieldDescription:
			input = "\n" + m.description.View()
		case report.FieldActions:
			input = m.styles.Muted.Render("← choose →")
			if m.actionIdx >= 0 {
				input = "‹ " + m.styles.Bold.Render(types.ScamTypes[m.actionIdx]) + " ›"
			}
		default:
			input = m.fields[f].View()
		}
		sb.WriteString(label + input + "\n")
		if msg := m.form.Error(f); msg != "" {
			sb.WriteString(m.styles.FieldError.Render(msg) + "\n")
		}
	}

	sb.WriteString("\n")
	switch {
	case m.submitting:
		sb.WriteString(m.spinner.View() + " Submitting...")
	case m.fieldIdx == submitIdx:
		sb.WriteString(m.styles.ActiveButton.Render("Submit Report"))
	default:
		sb.WriteString(m.styles.Button.Render("Submit Report"))
	}
	return sb.String() + "\n"
}

// =============================================================================
// VERIFICATION DIALOG
// =============================================================================

func (m *Model) renderVerify(width int) string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Verify your email") + "\n\n")

	switch m.flow.Step() {
	case verification.StepEmail:
		sb.WriteString(m.styles.Body.Render("We'll send a 6-digit code to confirm it's you.") + "\n\n")
		sb.WriteString(m.styles.Label.Render("Email") + m.email.View() + "\n")
		if msg := m.flow.EmailError(); msg != "" {
			sb.WriteString(m.styles.FieldError.Render(msg) + "\n")
		}
		if m.flowBusy {
			sb.WriteString("\n" + m.spinner.View() + " Sending code...\n")
		}

	case verification.StepCode:
		sb.WriteString(m.styles.Body.Render("Enter the code sent to "+m.flow.Email()) + "\n\n")
		sb.WriteString(m.styles.Label.Render("Code") + m.code.View() + "\n\n")
		switch remaining := m.flow.ResendRemaining(); {
		case m.flowBusy:
			sb.WriteString(m.spinner.View() + " Checking...")
		case remaining > 0:
			sb.WriteString(m.styles.Muted.Render("Resend available in " + verification.FormatCountdown(remaining)))
		default:
			sb.WriteString(m.styles.Muted.Render("Didn't get it? Press r to resend."))
		}
		sb.WriteString("\n")
		if st := m.verifier.State(); st.Error != "" {
			sb.WriteString(m.styles.Error.Render(st.Error) + "\n")
		}

	case verification.StepSuccess:
		sb.WriteString(m.styles.Success.Render("✓ Email verified") + "\n")
		sb.WriteString(m.styles.Muted.Render("Press enter to continue.") + "\n")
	}

	box := m.styles.Modal.Width(min(width-4, 60)).Render(sb.String())
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, box)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
