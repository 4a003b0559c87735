package app

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"unveil/cmd/unveil/ui"
	"unveil/internal/logging"
	"unveil/internal/report"
	"unveil/internal/search"
	"unveil/internal/toast"
	"unveil/internal/types"
	"unveil/internal/verification"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case toastTickMsg:
		m.toasts.Prune()
		return m, tickToasts()

	case bootMsg:
		m.booting = false
		if msg.err != nil {
			logging.Get(logging.CategoryBoot).Warn("Failed to load local history: %v", msg.err)
			m.toasts.Warning("History Unavailable", "Recent searches could not be loaded.")
		}
		m.searches, m.reports = msg.searches, msg.reports
		logging.Boot("Loaded %d recent searches and %d reports", len(m.searches), len(m.reports))
		return m, nil

	case historyMsg:
		if msg.err != nil {
			logging.Get(logging.CategoryUI).Warn("Failed to refresh history: %v", msg.err)
			return m, nil
		}
		m.searches, m.reports = msg.searches, msg.reports
		return m, nil

	case ui.DebouncedMsg:
		if msg.Key == debounceQuery && m.debounce.Ready(msg) {
			m.hint = ""
			if m.query.Value() != "" {
				if err := m.session.ValidateQuery(); err != nil {
					m.hint = err.Error()
				}
			}
		}
		return m, nil

	case searchDoneMsg:
		m.searching = false
		m.selected = 0
		if msg.err == nil {
			return m, m.historyCmd()
		}
		return m, nil

	case voteDoneMsg:
		return m, nil

	case reportDoneMsg:
		return m, m.handleReportDone(msg)

	case flowMsg:
		return m, m.handleFlowDone(msg)

	case verifiedMsg:
		if m.showVerify && m.flow.Step() == verification.StepSuccess {
			return m, m.closeVerify(true)
		}
		return m, nil

	case countdownMsg:
		if m.showVerify && m.flow.Step() == verification.StepCode && m.flow.ResendRemaining() > 0 {
			return m, tickCountdown()
		}
		return m, nil

	case ConfigReloadedMsg:
		m.applyConfig(msg)
		return m, waitForReload(m.reloads)
	}

	return m, m.updateInputs(msg)
}

// updateInputs forwards non-key messages (cursor blink) to the focused input.
func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case m.showVerify && m.flow.Step() == verification.StepEmail:
		m.email, cmd = m.email.Update(msg)
	case m.showVerify:
		m.code, cmd = m.code.Update(msg)
	case m.page == PageHome:
		m.query, cmd = m.query.Update(msg)
	case m.page == PageReport:
		cmd = m.updateReportInput(msg)
	case m.page == PageAbout:
		m.about, cmd = m.about.Update(msg)
	}
	return cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		m.Close()
		return tea.Quit
	}
	if m.showVerify {
		return m.handleVerifyKey(msg)
	}

	switch msg.String() {
	case "ctrl+r":
		return m.openReport()
	case "ctrl+a":
		m.page = PageAbout
		m.refreshAbout()
		return nil
	case "ctrl+o":
		m.openVerify(pendingAction{})
		return textinput.Blink
	case "ctrl+x":
		if !m.verifier.IsVerificationRequired() {
			m.verifier.Clear()
		}
		return nil
	}

	switch m.page {
	case PageCase:
		return m.handleCaseKey(msg)
	case PageReport:
		return m.handleReportKey(msg)
	case PageAbout:
		if msg.Type == tea.KeyEsc {
			m.goHome()
			return nil
		}
		var cmd tea.Cmd
		m.about, cmd = m.about.Update(msg)
		return cmd
	default:
		return m.handleHomeKey(msg)
	}
}

func (m *Model) goHome() {
	m.page = PageHome
	m.focus = focusQuery
	m.query.Focus()
}

// =============================================================================
// HOME
// =============================================================================

// listLen is the number of rows the home list currently shows.
// listLen counts the rows of the list drawn for st.
func (m *Model) listLen(st search.State) int {
	if st.HasSearched {
		return len(st.Results)
	}
	return len(m.searches)
}

func (m *Model) handleHomeKey(msg tea.KeyMsg) tea.Cmd {
	if m.focus == focusList {
		return m.handleListKey(msg)
	}

	switch msg.String() {
	case "enter":
		return m.startSearch(0, 0)
	case "ctrl+f":
		m.cycleFilter()
		return m.debounce.Trigger(debounceQuery)
	case "tab", "down":
		if m.listLen(m.session.State()) > 0 {
			m.focus = focusList
			m.query.Blur()
		}
		return nil
	}

	before := m.query.Value()
	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	if v := m.query.Value(); v != before {
		m.session.UpdateQuery(v)
		m.hint = ""
		return tea.Batch(cmd, m.debounce.Trigger(debounceQuery))
	}
	return cmd
}

func (m *Model) handleListKey(msg tea.KeyMsg) tea.Cmd {
	st := m.session.State()
	n := m.listLen(st)

	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < n-1 {
			m.selected++
		}
	case "right", "l", "n":
		if st.HasSearched {
			return m.pageCmd(true)
		}
	case "left", "h", "p":
		if st.HasSearched {
			return m.pageCmd(false)
		}
	case "enter":
		if m.selected >= n {
			return nil
		}
		if st.HasSearched {
			m.caseID = st.Results[m.selected].ID
			m.page = PageCase
			logging.UI("Opened case %d", m.caseID)
			return nil
		}
		entry := m.searches[m.selected]
		m.query.SetValue(entry.Query)
		m.session.UpdateQuery(entry.Query)
		m.session.UpdateFilter(entry.Filter)
		m.focus = focusQuery
		m.query.Focus()
		return m.startSearch(0, 0)
	case "tab", "esc":
		m.focus = focusQuery
		m.query.Focus()
	}
	return nil
}

func (m *Model) cycleFilter() {
	current := m.session.State().Filter
	next := types.FilterOptions[0].Value
	for i, opt := range types.FilterOptions {
		if opt.Value == current {
			next = types.FilterOptions[(i+1)%len(types.FilterOptions)].Value
			break
		}
	}
	m.session.UpdateFilter(next)
}

func (m *Model) startSearch(page, size int) tea.Cmd {
	if m.searching {
		return nil
	}
	m.debounce.Cancel(debounceQuery)
	if err := m.session.ValidateQuery(); err != nil {
		// PerformSearch raises the toast; no request is made.
		_ = m.session.PerformSearch(m.ctx, page, size)
		m.hint = err.Error()
		return nil
	}
	m.hint = ""
	m.searching = true
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return searchDoneMsg{err: session.PerformSearch(ctx, page, size)}
	}
}

func (m *Model) pageCmd(next bool) tea.Cmd {
	if m.searching {
		return nil
	}
	st := m.session.State()
	p := st.Pagination
	if next && (p == nil || !p.HasNext) || !next && (p == nil || !p.HasPrevious) {
		// The session raises the "Last Page" / "First Page" toast.
		if next {
			_ = m.session.LoadNextPage(m.ctx)
		} else {
			_ = m.session.LoadPreviousPage(m.ctx)
		}
		return nil
	}
	m.searching = true
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		if next {
			return searchDoneMsg{err: session.LoadNextPage(ctx)}
		}
		return searchDoneMsg{err: session.LoadPreviousPage(ctx)}
	}
}

// =============================================================================
// CASE DETAIL
// =============================================================================

func (m *Model) handleCaseKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "backspace", "q":
		m.goHome()
		m.focus = focusList
		m.query.Blur()
	case "g":
		return m.startVote(m.caseID, types.VoteGuilty)
	case "n":
		return m.startVote(m.caseID, types.VoteNotGuilty)
	}
	return nil
}

func (m *Model) startVote(caseID int64, vote types.Vote) tea.Cmd {
	if !m.cfg.Features.EnableVoting {
		m.toasts.Info("Voting Disabled", "Voting is turned off in this configuration.")
		return nil
	}
	if m.session.IsVotingInProgress(caseID) {
		return nil
	}
	if m.session.CheckVerificationRequired() {
		m.openVerify(pendingAction{kind: pendingVote, caseID: caseID, vote: string(vote)})
		return textinput.Blink
	}
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return voteDoneMsg{caseID: caseID, ok: session.CastVote(ctx, caseID, vote)}
	}
}

// =============================================================================
// REPORT
// =============================================================================

func (m *Model) openReport() tea.Cmd {
	if !m.cfg.Features.EnableReports {
		m.toasts.Info("Reports Disabled", "Reporting is turned off in this configuration.")
		return nil
	}
	m.page = PageReport
	m.query.Blur()
	return m.focusField(m.fieldIdx)
}

func (m *Model) submitReport() tea.Cmd {
	if m.submitting {
		return nil
	}
	m.submitting = true
	form, ctx := m.form, m.ctx
	return func() tea.Msg {
		id, err := form.Submit(ctx)
		return reportDoneMsg{caseID: id, err: err}
	}
}

func (m *Model) handleReportDone(msg reportDoneMsg) tea.Cmd {
	m.submitting = false
	switch {
	case msg.err == nil:
		m.resetReportInputs()
		return m.historyCmd()
	case errors.Is(msg.err, report.ErrVerificationRequired):
		m.openVerify(pendingAction{kind: pendingReport})
		return textinput.Blink
	}
	return nil
}

// =============================================================================
// VERIFICATION DIALOG
// =============================================================================

func (m *Model) openVerify(p pendingAction) {
	m.showVerify = true
	m.pending = p
	m.flow.Reset()
	m.email.SetValue("")
	m.code.SetValue("")
	m.email.Focus()
	m.code.Blur()
	m.query.Blur()
}

// closeVerify hides the dialog. After a successful verification the
// pending vote or report is replayed.
func (m *Model) closeVerify(verified bool) tea.Cmd {
	m.showVerify = false
	m.flowBusy = false
	p := m.pending
	m.pending = pendingAction{}
	m.flow.Reset()
	if m.page == PageHome {
		m.query.Focus()
	}
	if m.page == PageReport {
		m.focusField(m.fieldIdx)
	}

	if !verified {
		return nil
	}
	switch p.kind {
	case pendingVote:
		logging.UI("Replaying vote on case %d after verification", p.caseID)
		return m.startVote(p.caseID, types.Vote(p.vote))
	case pendingReport:
		logging.UI("Replaying report submission after verification")
		return m.submitReport()
	}
	return nil
}

func (m *Model) handleVerifyKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEsc {
		return m.closeVerify(false)
	}
	if m.flowBusy {
		return nil
	}

	flow, ctx := m.flow, m.ctx
	switch m.flow.Step() {
	case verification.StepEmail:
		if msg.Type == tea.KeyEnter {
			flow.SetEmail(m.email.Value())
			m.flowBusy = true
			return func() tea.Msg {
				return flowMsg{step: verification.StepEmail, ok: flow.SubmitEmail(ctx)}
			}
		}
		var cmd tea.Cmd
		m.email, cmd = m.email.Update(msg)
		flow.SetEmail(m.email.Value())
		return cmd

	case verification.StepCode:
		switch msg.String() {
		case "enter":
			if !flow.CodeComplete() {
				return nil
			}
			m.flowBusy = true
			return func() tea.Msg {
				return flowMsg{step: verification.StepCode, ok: flow.SubmitCode(ctx)}
			}
		case "r":
			if flow.ResendRemaining() > 0 {
				return nil
			}
			m.flowBusy = true
			return func() tea.Msg {
				return flowMsg{step: verification.StepCode, ok: flow.Resend(ctx), resend: true}
			}
		case "ctrl+b":
			flow.Back()
			m.code.SetValue("")
			m.code.Blur()
			m.email.Focus()
			return nil
		}
		var cmd tea.Cmd
		m.code, cmd = m.code.Update(msg)
		flow.SetCode(m.code.Value())
		m.code.SetValue(flow.Code())
		m.code.CursorEnd()
		return cmd

	case verification.StepSuccess:
		if msg.Type == tea.KeyEnter {
			return m.closeVerify(true)
		}
	}
	return nil
}

func (m *Model) handleFlowDone(msg flowMsg) tea.Cmd {
	m.flowBusy = false
	if !m.showVerify {
		return nil
	}
	switch m.flow.Step() {
	case verification.StepCode:
		if msg.step == verification.StepEmail && msg.ok {
			m.email.Blur()
			m.code.SetValue("")
			m.code.Focus()
			return tea.Batch(textinput.Blink, tickCountdown())
		}
		if msg.resend && msg.ok {
			m.code.SetValue("")
			return tickCountdown()
		}
	case verification.StepSuccess:
		m.code.Blur()
		return tea.Tick(800*time.Millisecond, func(time.Time) tea.Msg { return verifiedMsg{} })
	}
	return nil
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func (m *Model) applyConfig(msg ConfigReloadedMsg) {
	if msg.Err != nil {
		logging.Get(logging.CategoryConfig).Warn("Config reload rejected: %v", msg.Err)
		m.toasts.Warning("Config Not Reloaded", msg.Err.Error())
		return
	}
	if msg.Config == nil {
		return
	}
	m.cfg.UI = msg.Config.UI
	m.cfg.Features = msg.Config.Features
	m.cfg.Contact = msg.Config.Contact
	m.cfg.Search.HistoryLimit = msg.Config.Search.HistoryLimit
	m.styles = ui.NewStyles(ui.ThemeFor(m.cfg.UI.Theme))
	m.spinner.Style = m.styles.Spinner
	if m.page == PageAbout {
		m.refreshAbout()
	}
	logging.Get(logging.CategoryConfig).Info("Applied reloaded configuration")
	m.toasts.Notify(toast.KindInfo, "Configuration Reloaded", "Theme, features and contact details were updated.")
}
