// Package search holds the state behind the search page: the query and
// filter being edited, the current page of results, and the votes that
// are still on their way to the backend.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"unveil/internal/api"
	"unveil/internal/logging"
	"unveil/internal/toast"
	"unveil/internal/types"
	"unveil/internal/validation"
)

// Backend is the part of the REST client a session needs. *api.Client implements it.
type Backend interface {
	Search(ctx context.Context, p api.SearchParams) (*types.SearchResponse, error)
	Vote(ctx context.Context, caseID int64, vote types.Vote, email, token string) (*types.VoteResponse, error)
}

// VerificationSource reports whether the user has proven their email.
// *verification.Verifier implements it.
type VerificationSource interface {
	IsVerificationRequired() bool
	Credentials() (email, token string)
}

// HistoryRecorder records successful searches. *store.Store implements it.
type HistoryRecorder interface {
	RecordSearch(ctx context.Context, query string, filter types.Filter, found bool, total int64) error
}

// Options configures a Session.
type Options struct {
	Rules    validation.Rules
	PageSize int             // default page size; 20 when zero
	History  HistoryRecorder // optional
}

// State is a snapshot of the session. Results and Pagination are copies.
type State struct {
	Query             string
	Filter            types.Filter
	Loading           bool
	Results           []types.Case
	Pagination        *types.Pagination
	Error             string
	HasSearched       bool
	LastSearchMessage string
	VotingInProgress  []int64
}

// Session is the search page state. Safe for concurrent use; the lock is
// never held across a backend call.
type Session struct {
	mu          sync.Mutex
	backend     Backend
	verify      VerificationSource
	notify      toast.Notifier
	history     HistoryRecorder
	rules       validation.Rules
	pageSize    int
	now         func() time.Time
	query       string
	filter      types.Filter
	inflight    int // searches awaiting a response
	results     []types.Case
	pagination  *types.Pagination
	err         string
	hasSearched bool
	lastMessage string
	voting      map[int64]bool
}

// NewSession creates an empty session with the filter set to "all".
func NewSession(backend Backend, verify VerificationSource, notify toast.Notifier, opts Options) *Session {
	if notify == nil {
		notify = toast.Discard
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.Rules == (validation.Rules{}) {
		opts.Rules = validation.DefaultRules()
	}
	return &Session{
		backend:  backend,
		verify:   verify,
		notify:   notify,
		history:  opts.History,
		rules:    opts.Rules,
		pageSize: opts.PageSize,
		now:      time.Now,
		filter:   types.FilterAll,
		voting:   make(map[int64]bool),
	}
}

// SetClock replaces the time source used for lastVotedAt.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Query:             s.query,
		Filter:            s.filter,
		Loading:           s.inflight > 0,
		Error:             s.err,
		HasSearched:       s.hasSearched,
		LastSearchMessage: s.lastMessage,
	}
	if s.results != nil {
		st.Results = append([]types.Case(nil), s.results...)
	}
	if s.pagination != nil {
		p := *s.pagination
		st.Pagination = &p
	}
	for id := range s.voting {
		st.VotingInProgress = append(st.VotingInProgress, id)
	}
	return st
}

// Case returns the result with the given id.
func (s *Session) Case(id int64) (types.Case, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.results {
		if c.ID == id {
			return c, true
		}
	}
	return types.Case{}, false
}

// UpdateQuery stores the sanitised query and clears the error.
func (s *Session) UpdateQuery(q string) {
	s.mu.Lock()
	s.query = validation.SanitizeInput(q)
	s.err = ""
	s.mu.Unlock()
}

// UpdateFilter stores the filter and clears the error.
func (s *Session) UpdateFilter(f types.Filter) {
	s.mu.Lock()
	s.filter = f
	s.err = ""
	s.mu.Unlock()
}

// ValidateQuery checks the current query against the current filter
// without searching. Used for the live hint under the search box.
func (s *Session) ValidateQuery() error {
	s.mu.Lock()
	query, filter := s.query, s.filter
	s.mu.Unlock()
	return s.rules.ValidateSearchQuery(query, filter)
}

// PerformSearch runs the current query. A zero size uses the default page
// size. Invalid input raises an "Invalid Search" toast and returns the
// validation error without contacting the backend.
func (s *Session) PerformSearch(ctx context.Context, page, size int) error {
	s.mu.Lock()
	query, filter := s.query, s.filter
	if size <= 0 {
		size = s.pageSize
	}
	if page < 0 {
		page = 0
	}
	if err := s.rules.ValidateSearchQuery(query, filter); err != nil {
		s.mu.Unlock()
		s.notify.Notify(toast.KindError, "Invalid Search", err.Error())
		return err
	}
	s.inflight++
	s.err = ""
	s.mu.Unlock()

	timer := logging.StartTimer(logging.CategorySearch, "PerformSearch")
	defer timer.StopWithThreshold(2 * time.Second)

	logging.Search("Searching filter=%s page=%d size=%d", filter, page, size)
	resp, err := s.backend.Search(ctx, api.SearchParams{
		Filter: filter,
		Value:  strings.TrimSpace(query),
		Page:   page,
		Size:   size,
	})

	s.mu.Lock()
	s.inflight--
	s.hasSearched = true
	if err != nil {
		s.err = api.Message(err)
		s.results = nil
		s.pagination = nil
		s.lastMessage = ""
		s.mu.Unlock()
		logging.Get(logging.CategorySearch).Warn("Search failed: %v", err)
		return fmt.Errorf("search failed: %w", err)
	}
	s.results = resp.Results
	s.pagination = resp.Pagination
	s.lastMessage = resp.Message
	s.mu.Unlock()

	if len(resp.Results) > 0 {
		s.notify.Notify(toast.KindSuccess, "Search Complete", resp.Message)
	} else {
		s.notify.Notify(toast.KindInfo, "Search Complete", "No matching cases found")
	}

	if s.history != nil {
		total := int64(len(resp.Results))
		if resp.Pagination != nil {
			total = resp.Pagination.TotalElements
		}
		if herr := s.history.RecordSearch(ctx, strings.TrimSpace(query), filter, resp.Found, total); herr != nil {
			logging.Get(logging.CategorySearch).Warn("Failed to record search history: %v", herr)
		}
	}
	return nil
}

// LoadNextPage searches the page after the current one. At the last page
// it raises an info toast and does nothing.
func (s *Session) LoadNextPage(ctx context.Context) error {
	s.mu.Lock()
	p := s.pagination
	if p == nil || !p.HasNext {
		s.mu.Unlock()
		s.notify.Notify(toast.KindInfo, "Last Page", "You are already on the last page of results.")
		return nil
	}
	page, size := p.CurrentPage+1, p.PageSize
	s.mu.Unlock()
	return s.PerformSearch(ctx, page, size)
}

// LoadPreviousPage searches the page before the current one. At the first
// page it raises an info toast and does nothing.
func (s *Session) LoadPreviousPage(ctx context.Context) error {
	s.mu.Lock()
	p := s.pagination
	if p == nil || !p.HasPrevious {
		s.mu.Unlock()
		s.notify.Notify(toast.KindInfo, "First Page", "You are already on the first page of results.")
		return nil
	}
	page, size := p.CurrentPage-1, p.PageSize
	s.mu.Unlock()
	return s.PerformSearch(ctx, page, size)
}

// Reset restores the initial state. Votes in flight stay tracked.
func (s *Session) Reset() {
	s.mu.Lock()
	s.query = ""
	s.filter = types.FilterAll
	s.results = nil
	s.pagination = nil
	s.err = ""
	s.hasSearched = false
	s.lastMessage = ""
	s.mu.Unlock()
}

// CheckVerificationRequired reports whether votes need a verified email first.
func (s *Session) CheckVerificationRequired() bool {
	return s.verify == nil || s.verify.IsVerificationRequired()
}

// IsVotingInProgress reports whether a vote for caseID is awaiting a response.
func (s *Session) IsVotingInProgress(caseID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voting[caseID]
}

// CastVote records a vote on caseID. It refuses when the user is not
// verified or a vote for the same case is already in flight. On success
// only the matching case in the results is updated.
func (s *Session) CastVote(ctx context.Context, caseID int64, vote types.Vote) bool {
	if s.CheckVerificationRequired() {
		s.notify.Notify(toast.KindWarning, "Verification Required", "Please verify your email address to vote on cases.")
		return false
	}

	s.mu.Lock()
	if s.voting[caseID] {
		s.mu.Unlock()
		s.notify.Notify(toast.KindWarning, "Vote in Progress", "Please wait for your previous vote to complete.")
		return false
	}
	s.voting[caseID] = true
	s.mu.Unlock()

	email, token := s.verify.Credentials()
	logging.Search("Casting %s vote on case %d", vote, caseID)
	resp, err := s.backend.Vote(ctx, caseID, vote, email, token)

	s.mu.Lock()
	delete(s.voting, caseID)
	if err != nil {
		s.mu.Unlock()
		logging.Get(logging.CategorySearch).Warn("Vote on case %d failed: %v", caseID, err)
		s.notify.Notify(toast.KindError, "Vote Failed", api.Message(err))
		return false
	}
	at := s.now()
	for i := range s.results {
		if s.results[i].ID == caseID {
			s.results[i].ApplyVerdict(resp.Verdict, at)
		}
	}
	s.mu.Unlock()

	method := resp.VerificationMethod
	if method == "" {
		method = "email"
	}
	s.notify.Notify(toast.KindSuccess, "Vote Recorded",
		fmt.Sprintf("Your %q vote has been recorded successfully via %s verification.", vote.Label(), method))
	return true
}
