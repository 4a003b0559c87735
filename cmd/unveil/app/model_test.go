package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unveil/internal/api"
	"unveil/internal/config"
	"unveil/internal/report"
	"unveil/internal/toast"
	"unveil/internal/types"
	"unveil/internal/verification"
)

type voteCall struct {
	caseID       int64
	vote         types.Vote
	email, token string
}

type fakeBackend struct {
	mu        sync.Mutex
	resp      *types.SearchResponse
	searches  []api.SearchParams
	votes     []voteCall
	reports   []types.ReportRequest
	tokens    []string
	otpSent   []string
	reportErr error
}

func (f *fakeBackend) Search(_ context.Context, p api.SearchParams) (*types.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, p)
	return f.resp, nil
}

func (f *fakeBackend) Vote(_ context.Context, caseID int64, vote types.Vote, email, token string) (*types.VoteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, voteCall{caseID, vote, email, token})
	return &types.VoteResponse{
		Success: true,
		CaseID:  caseID,
		Vote:    vote,
		Verdict: types.VerdictSummary{Score: 1, TotalVotes: 1, GuiltyVotes: 1},
	}, nil
}

func (f *fakeBackend) SendOTP(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.otpSent = append(f.otpSent, email)
	return nil
}

func (f *fakeBackend) VerifyOTP(_ context.Context, _, otp string) (*types.OTPVerifyResponse, error) {
	if otp != "123456" {
		return nil, &api.APIError{Status: 400, Message: "Invalid OTP"}
	}
	return &types.OTPVerifyResponse{Token: "tok"}, nil
}

func (f *fakeBackend) ReportCase(_ context.Context, req types.ReportRequest, token string) (*types.ReportResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	f.reports = append(f.reports, req)
	f.tokens = append(f.tokens, token)
	return &types.ReportResponse{CaseID: 42}, nil
}

func twoCases() *types.SearchResponse {
	return &types.SearchResponse{
		Filter:  "all",
		Value:   "acme",
		Found:   true,
		Message: "Found 2 cases",
		Results: []types.Case{
			{ID: 7, Name: "John Smith", Company: "Acme Corp", Actions: "Phone Scam"},
			{ID: 8, Email: "billing@acme.example", Actions: "Phishing"},
		},
		Pagination: &types.Pagination{CurrentPage: 0, PageSize: 20, TotalPages: 1, TotalElements: 2, IsFirst: true, IsLast: true},
	}
}

func newTestModel(t *testing.T, b *fakeBackend, cfg *config.Config) *Model {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	m := New(Options{Config: cfg, Backend: b})
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }
func runes(s string) tea.KeyMsg    { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// send delivers msg and returns the follow-up command.
func send(m *Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

// settle runs an asynchronous command and delivers its result.
func settle(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	return send(m, cmd())
}

func toastTitles(c *toast.Center) []string {
	var titles []string
	for _, t := range c.Active() {
		titles = append(titles, t.Title)
	}
	return titles
}

func verify(t *testing.T, m *Model) {
	t.Helper()
	ctx := context.Background()
	require.True(t, m.Verifier().RequestVerification(ctx, "me@example.com"))
	require.True(t, m.Verifier().VerifyCode(ctx, "123456"))
}

func TestSearchShowsResults(t *testing.T) {
	b := &fakeBackend{resp: twoCases()}
	m := newTestModel(t, b, nil)

	send(m, runes("acme"))
	settle(t, m, send(m, key(tea.KeyEnter)))

	st := m.session.State()
	require.Len(t, st.Results, 2)
	assert.False(t, m.searching)
	require.Len(t, b.searches, 1)
	assert.Equal(t, "acme", b.searches[0].Value)

	view := m.View()
	assert.Contains(t, view, "Showing 1-2 of 2")
	assert.Contains(t, view, "Search Complete")
}

func TestInvalidQueryShowsHintWithoutRequest(t *testing.T) {
	b := &fakeBackend{resp: twoCases()}
	m := newTestModel(t, b, nil)

	send(m, runes("a"))
	cmd := send(m, key(tea.KeyEnter))

	assert.Nil(t, cmd)
	assert.Empty(t, b.searches)
	assert.NotEmpty(t, m.hint)
	assert.Contains(t, toastTitles(m.toasts), "Invalid Search")
}

func TestCycleFilter(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, nil)

	send(m, key(tea.KeyCtrlF))
	assert.Equal(t, types.FilterName, m.session.State().Filter)
	assert.Contains(t, m.View(), "Name")
}

func TestStaleSelectionAfterResultsShrink(t *testing.T) {
	b := &fakeBackend{resp: twoCases()}
	m := newTestModel(t, b, nil)

	send(m, runes("acme"))
	settle(t, m, send(m, key(tea.KeyEnter)))
	send(m, key(tea.KeyTab))
	send(m, key(tea.KeyDown))
	require.Equal(t, 1, m.selected)

	// A search that lands outside the update loop leaves the selection
	// pointing past the new results.
	one := twoCases()
	one.Results = one.Results[:1]
	b.mu.Lock()
	b.resp = one
	b.mu.Unlock()
	require.NoError(t, m.session.PerformSearch(context.Background(), 0, 0))

	assert.NotPanics(t, func() { send(m, key(tea.KeyEnter)) })
	assert.Equal(t, PageHome, m.page)
	assert.Zero(t, m.caseID)
}

func TestVoteOpensVerificationAndReplays(t *testing.T) {
	b := &fakeBackend{resp: twoCases()}
	m := newTestModel(t, b, nil)

	send(m, runes("acme"))
	settle(t, m, send(m, key(tea.KeyEnter)))
	send(m, key(tea.KeyTab))
	send(m, key(tea.KeyEnter))
	require.Equal(t, PageCase, m.page)
	require.Equal(t, int64(7), m.caseID)

	send(m, runes("g"))
	require.True(t, m.showVerify)
	assert.Equal(t, pendingVote, m.pending.kind)
	assert.Empty(t, b.votes)

	send(m, runes("me@example.com"))
	settle(t, m, send(m, key(tea.KeyEnter)))
	require.Equal(t, verification.StepCode, m.flow.Step())
	assert.Equal(t, []string{"me@example.com"}, b.otpSent)
	assert.Contains(t, m.View(), "Resend available in")

	send(m, runes("123456"))
	settle(t, m, send(m, key(tea.KeyEnter)))
	require.Equal(t, verification.StepSuccess, m.flow.Step())

	settle(t, m, send(m, verifiedMsg{}))
	assert.False(t, m.showVerify)

	require.Len(t, b.votes, 1)
	assert.Equal(t, voteCall{7, types.VoteGuilty, "me@example.com", "tok"}, b.votes[0])

	c, ok := m.session.Case(7)
	require.True(t, ok)
	assert.Equal(t, types.VerdictGuilty, c.Verdict())
	other, _ := m.session.Case(8)
	assert.Zero(t, other.TotalVotes)
}

func TestCancelVerificationDropsPendingVote(t *testing.T) {
	b := &fakeBackend{resp: twoCases()}
	m := newTestModel(t, b, nil)

	send(m, runes("acme"))
	settle(t, m, send(m, key(tea.KeyEnter)))
	send(m, key(tea.KeyTab))
	send(m, key(tea.KeyEnter))
	send(m, runes("n"))
	require.True(t, m.showVerify)

	assert.Nil(t, send(m, key(tea.KeyEsc)))
	assert.False(t, m.showVerify)
	assert.Equal(t, pendingNone, m.pending.kind)
	assert.Empty(t, b.votes)
}

func TestWrongCodeStaysOnCodeStep(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, nil)

	send(m, key(tea.KeyCtrlO))
	send(m, runes("me@example.com"))
	settle(t, m, send(m, key(tea.KeyEnter)))
	send(m, runes("999999"))
	settle(t, m, send(m, key(tea.KeyEnter)))

	assert.Equal(t, verification.StepCode, m.flow.Step())
	assert.True(t, m.verifier.IsVerificationRequired())
	assert.Contains(t, toastTitles(m.toasts), "Verification Failed")
}

func fillReport(m *Model) {
	send(m, runes("John Smith"))
	for i := 0; i < 4; i++ {
		send(m, key(tea.KeyTab))
	}
	send(m, key(tea.KeyRight))
	send(m, key(tea.KeyTab))
	send(m, runes("He called pretending to be my bank and asked for my codes."))
	send(m, key(tea.KeyTab))
	send(m, runes("me@example.com"))
	send(m, key(tea.KeyTab))
	send(m, runes("Jane Doe"))
}

func TestReportSubmit(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(t, b, nil)
	verify(t, m)

	send(m, key(tea.KeyCtrlR))
	require.Equal(t, PageReport, m.page)
	fillReport(m)
	settle(t, m, send(m, key(tea.KeyCtrlS)))

	require.Len(t, b.reports, 1)
	got := b.reports[0]
	require.NotNil(t, got.Name)
	assert.Equal(t, "John Smith", *got.Name)
	assert.Nil(t, got.Email)
	assert.Equal(t, types.ScamTypes[0], got.Actions)
	assert.Equal(t, "Jane Doe", got.ReporterName)
	assert.Equal(t, []string{"tok"}, b.tokens)

	assert.False(t, m.submitting)
	assert.Empty(t, m.fields[report.FieldName].Value())
	assert.Equal(t, -1, m.actionIdx)
	assert.Contains(t, toastTitles(m.toasts), "Report Submitted")
}

func TestReportRequiresVerification(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(t, b, nil)

	send(m, key(tea.KeyCtrlR))
	fillReport(m)
	settle(t, m, send(m, key(tea.KeyCtrlS)))

	assert.Empty(t, b.reports)
	assert.True(t, m.showVerify)
	assert.Equal(t, pendingReport, m.pending.kind)
}

func TestInvalidReportShowsFieldErrors(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(t, b, nil)
	verify(t, m)

	send(m, key(tea.KeyCtrlR))
	settle(t, m, send(m, key(tea.KeyCtrlS)))

	assert.Empty(t, b.reports)
	assert.NotEmpty(t, m.form.Error(report.FieldName))
	assert.Equal(t, "Scam type is required", m.form.Error(report.FieldActions))
	assert.Contains(t, m.View(), "Scam type is required")
	assert.Contains(t, toastTitles(m.toasts), "Form Validation Failed")
}

func TestReportServerError(t *testing.T) {
	b := &fakeBackend{reportErr: &api.APIError{Status: 503}}
	m := newTestModel(t, b, nil)
	verify(t, m)

	send(m, key(tea.KeyCtrlR))
	fillReport(m)
	settle(t, m, send(m, key(tea.KeyCtrlS)))

	assert.False(t, m.showVerify)
	assert.Equal(t, "John Smith", m.fields[report.FieldName].Value())
	assert.Contains(t, toastTitles(m.toasts), "Server Error")
}

func TestFeatureFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Features.EnableReports = false
	cfg.Features.EnableVoting = false
	b := &fakeBackend{resp: twoCases()}
	m := newTestModel(t, b, cfg)

	send(m, key(tea.KeyCtrlR))
	assert.Equal(t, PageHome, m.page)
	assert.Contains(t, toastTitles(m.toasts), "Reports Disabled")

	send(m, runes("acme"))
	settle(t, m, send(m, key(tea.KeyEnter)))
	send(m, key(tea.KeyTab))
	send(m, key(tea.KeyEnter))
	send(m, runes("g"))

	assert.False(t, m.showVerify)
	assert.Empty(t, b.votes)
	assert.Contains(t, toastTitles(m.toasts), "Voting Disabled")
	assert.NotContains(t, m.View(), "g Guilty")
}

func TestConfigReload(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, nil)

	next := config.DefaultConfig()
	next.UI.Theme = "dark"
	next.Features.EnableVoting = false
	next.Contact.SupportEmail = "help@example.org"

	assert.Nil(t, send(m, ConfigReloadedMsg{Config: next}))
	assert.Equal(t, "dark", m.cfg.UI.Theme)
	assert.False(t, m.cfg.Features.EnableVoting)
	assert.Equal(t, "help@example.org", m.cfg.Contact.SupportEmail)
	assert.Contains(t, toastTitles(m.toasts), "Configuration Reloaded")

	send(m, ConfigReloadedMsg{Err: errors.New("yaml: line 3: bad indentation")})
	assert.Equal(t, "dark", m.cfg.UI.Theme)
	assert.Contains(t, toastTitles(m.toasts), "Config Not Reloaded")
}

func TestAboutPage(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, nil)

	send(m, key(tea.KeyCtrlA))
	require.Equal(t, PageAbout, m.page)
	assert.Contains(t, m.View(), "Mission")

	send(m, key(tea.KeyEsc))
	assert.Equal(t, PageHome, m.page)
}

func TestAboutMarkdownContact(t *testing.T) {
	md := AboutMarkdown(config.ContactConfig{SupportEmail: "help@example.org"})
	assert.Contains(t, md, "## Contact")
	assert.Contains(t, md, "help@example.org")
	assert.NotContains(t, md, "Help line")

	assert.NotContains(t, AboutMarkdown(config.ContactConfig{}), "## Contact")
}

func TestToastOverlay(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, nil)
	m.Toasts().Error("Boom", "Something broke")

	assert.Contains(t, m.View(), "Boom")
}

func TestCtrlCQuits(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, nil)

	cmd := send(m, key(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Error(t, m.ctx.Err())
}
