// Package app is the interactive unveil terminal interface: search with
// results and case details, the report form, the verification dialog and
// the About page, with notifications drawn over the current page.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"unveil/cmd/unveil/ui"
	"unveil/internal/config"
	"unveil/internal/logging"
	"unveil/internal/report"
	"unveil/internal/search"
	"unveil/internal/store"
	"unveil/internal/toast"
	"unveil/internal/verification"
)

// Backend is every backend call the interface makes. *api.Client implements it.
type Backend interface {
	search.Backend
	verification.OTPService
	report.Submitter
}

// Options wires the model to its collaborators.
type Options struct {
	Config  *config.Config
	Backend Backend
	Store   *store.Store // optional; disables history and "your reports" when nil

	// ConfigReloads delivers configurations from a config.Watcher. Optional.
	ConfigReloads <-chan ConfigReloadedMsg
}

// Page is the screen currently shown.
type Page int

const (
	PageHome Page = iota
	PageCase
	PageReport
	PageAbout
)

func (p Page) String() string {
	switch p {
	case PageHome:
		return "Search"
	case PageCase:
		return "Case"
	case PageReport:
		return "Report a Scam"
	case PageAbout:
		return "About"
	default:
		return fmt.Sprintf("Page(%d)", int(p))
	}
}

// homeFocus is the part of the home page receiving keys.
type homeFocus int

const (
	focusQuery homeFocus = iota
	focusList
)

// pendingKind is the action waiting on a successful verification.
type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingVote
	pendingReport
)

type pendingAction struct {
	kind   pendingKind
	caseID int64
	vote   string
}

const (
	debounceQuery = "query"
	toastTick     = 250 * time.Millisecond
)

// =============================================================================
// MESSAGES
// =============================================================================

type (
	// bootMsg carries the local history loaded at startup.
	bootMsg struct {
		searches []store.SearchEntry
		reports  []store.ReportEntry
		err      error
	}

	historyMsg struct {
		searches []store.SearchEntry
		reports  []store.ReportEntry
		err      error
	}

	searchDoneMsg struct{ err error }

	voteDoneMsg struct {
		caseID int64
		ok     bool
	}

	reportDoneMsg struct {
		caseID int64
		err    error
	}

	// flowMsg reports the end of a verification dialog step.
	flowMsg struct {
		step   verification.Step
		ok     bool
		resend bool
	}

	// verifiedMsg closes the dialog after the success screen was shown.
	verifiedMsg struct{}

	countdownMsg struct{}

	toastTickMsg struct{}
)

// ConfigReloadedMsg is sent when the config file changed on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// Model is the bubbletea model for the whole interface.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg      *config.Config
	backend  Backend
	store    *store.Store
	reloads  <-chan ConfigReloadedMsg
	styles   ui.Styles
	toasts   *toast.Center
	verifier *verification.Verifier
	flow     *verification.Flow
	session  *search.Session
	form     *report.Form
	debounce *ui.Debouncer

	width, height int
	page          Page
	booting       bool
	spinner       spinner.Model

	// home
	query     textinput.Model
	focus     homeFocus
	selected  int
	hint      string
	searching bool
	searches  []store.SearchEntry
	reports   []store.ReportEntry

	// case detail
	caseID int64

	// report form
	fields      map[report.Field]*textinput.Model
	description textarea.Model
	fieldIdx    int
	actionIdx   int // index into types.ScamTypes; -1 when unset
	submitting  bool

	// verification dialog
	showVerify bool
	email      textinput.Model
	code       textinput.Model
	flowBusy   bool
	pending    pendingAction

	// about
	about viewport.Model
}

// New builds the model and its collaborators from opts.
func New(opts Options) *Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	rules := cfg.ValidationRules()
	center := toast.NewCenter(cfg.GetToastDuration(), cfg.UI.MaxToasts)

	verifier := verification.NewVerifier(opts.Backend, center)
	var history search.HistoryRecorder
	var recorder report.Recorder
	if opts.Store != nil {
		history = opts.Store
		recorder = opts.Store
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		backend:  opts.Backend,
		store:    opts.Store,
		reloads:  opts.ConfigReloads,
		styles:   ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)),
		toasts:   center,
		verifier: verifier,
		flow:     verification.NewFlow(verifier, rules, cfg.GetResendCooldown()),
		session: search.NewSession(opts.Backend, verifier, center, search.Options{
			Rules:    rules,
			PageSize: cfg.Search.DefaultPageSize,
			History:  history,
		}),
		form:      report.NewForm(opts.Backend, verifier, center, rules, recorder),
		debounce:  ui.NewDebouncer(cfg.GetSearchDebounce()),
		booting:   opts.Store != nil,
		actionIdx: -1,
	}

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = m.styles.Spinner

	m.query = textinput.New()
	m.query.Placeholder = "Search by name, email, phone or company"
	m.query.Prompt = "› "
	m.query.CharLimit = rules.MaxQueryLength
	m.query.Focus()

	m.initReportInputs()

	m.email = textinput.New()
	m.email.Placeholder = "you@example.com"
	m.email.CharLimit = rules.EmailMaxLength
	m.code = textinput.New()
	m.code.Placeholder = "123456"
	m.code.CharLimit = rules.OTPLength

	m.about = viewport.New(80, 20)
	return m
}

// Verifier exposes the verification state, e.g. to restore a remembered one.
func (m *Model) Verifier() *verification.Verifier { return m.verifier }

// Toasts exposes the notification center.
func (m *Model) Toasts() *toast.Center { return m.toasts }

// Close cancels requests still in flight.
func (m *Model) Close() { m.cancel() }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, tickToasts()}
	if m.store != nil {
		cmds = append(cmds, m.bootCmd())
	}
	if m.reloads != nil {
		cmds = append(cmds, waitForReload(m.reloads))
	}
	return tea.Batch(cmds...)
}

// bootCmd loads recent searches and submitted reports concurrently.
func (m *Model) bootCmd() tea.Cmd {
	st, ctx, limit := m.store, m.ctx, m.cfg.Search.HistoryLimit
	return func() tea.Msg {
		timer := logging.StartTimer(logging.CategoryBoot, "load local history")
		defer timer.Stop()

		var msg bootMsg
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			msg.searches, err = st.RecentSearches(gctx, limit)
			return err
		})
		g.Go(func() error {
			var err error
			msg.reports, err = st.Reports(gctx, limit)
			return err
		})
		msg.err = g.Wait()
		return msg
	}
}

func (m *Model) historyCmd() tea.Cmd {
	if m.store == nil {
		return nil
	}
	st, ctx, limit := m.store, m.ctx, m.cfg.Search.HistoryLimit
	return func() tea.Msg {
		searches, err := st.RecentSearches(ctx, limit)
		if err != nil {
			return historyMsg{err: err}
		}
		reports, err := st.Reports(ctx, limit)
		return historyMsg{searches: searches, reports: reports, err: err}
	}
}

func waitForReload(ch <-chan ConfigReloadedMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func tickToasts() tea.Cmd {
	return tea.Tick(toastTick, func(time.Time) tea.Msg { return toastTickMsg{} })
}

func tickCountdown() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return countdownMsg{} })
}
