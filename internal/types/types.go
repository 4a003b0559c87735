// Package types holds the data shapes exchanged with the Unveil backend.
// These mirror the backend JSON; the client does not own or enforce them
// beyond shape checks.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// =============================================================================
// SEARCH
// =============================================================================

// Filter selects which case field a search query is matched against.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterName    Filter = "name"
	FilterEmail   Filter = "email"
	FilterPhone   Filter = "phone"
	FilterCompany Filter = "company"
)

// FilterOption pairs a filter with its display label.
type FilterOption struct {
	Value Filter
	Label string
}

// FilterOptions lists the filters in display order.
var FilterOptions = []FilterOption{
	{FilterAll, "All Fields"},
	{FilterName, "Name"},
	{FilterEmail, "Email"},
	{FilterPhone, "Phone"},
	{FilterCompany, "Company"},
}

// Label returns the display label, or the raw value for unknown filters.
func (f Filter) Label() string {
	for _, opt := range FilterOptions {
		if opt.Value == f {
			return opt.Label
		}
	}
	return string(f)
}

// ParseFilter maps a user-supplied string to a Filter. ok is false for
// anything outside FilterOptions.
func ParseFilter(s string) (Filter, bool) {
	for _, opt := range FilterOptions {
		if string(opt.Value) == s {
			return opt.Value, true
		}
	}
	return "", false
}

// Pagination is the page cursor returned with every search.
// CurrentPage is zero-based.
type Pagination struct {
	CurrentPage   int   `json:"currentPage"`
	PageSize      int   `json:"pageSize"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	HasNext       bool  `json:"hasNext"`
	HasPrevious   bool  `json:"hasPrevious"`
	IsFirst       bool  `json:"isFirst"`
	IsLast        bool  `json:"isLast"`
}

// Range returns the 1-based inclusive range of elements on the current page.
func (p Pagination) Range() (from, to int64) {
	if p.TotalElements == 0 {
		return 0, 0
	}
	from = int64(p.CurrentPage)*int64(p.PageSize) + 1
	to = int64(p.CurrentPage+1) * int64(p.PageSize)
	if to > p.TotalElements {
		to = p.TotalElements
	}
	return from, to
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	Filter     string      `json:"filter"`
	Value      string      `json:"value"`
	Found      bool        `json:"found"`
	Message    string      `json:"message"`
	Results    []Case      `json:"results"`
	Pagination *Pagination `json:"pagination"`
}

// =============================================================================
// CASES
// =============================================================================

// Case is a reported bad actor together with its community vote tallies.
type Case struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name,omitempty"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Company        string          `json:"company,omitempty"`
	Actions        string          `json:"actions"` // scam type tag
	Description    string          `json:"description,omitempty"`
	ReportedBy     string          `json:"reportedBy,omitempty"`
	CreatedAt      Timestamp       `json:"createdAt"`
	VerdictScore   int             `json:"verdictScore"`
	TotalVotes     int             `json:"totalVotes"`
	GuiltyVotes    int             `json:"guiltyVotes"`
	NotGuiltyVotes int             `json:"notGuiltyVotes"`
	LastVotedAt    *Timestamp      `json:"lastVotedAt,omitempty"`
	VerdictSummary *VerdictSummary `json:"verdictSummary,omitempty"`
}

// Verdict labels derived from the verdict score.
const (
	VerdictGuilty        = "Guilty"
	VerdictNotGuilty     = "Not Guilty"
	VerdictControversial = "Controversial"
)

// Verdict derives the display label from the verdict score.
func (c Case) Verdict() string {
	switch {
	case c.VerdictScore > 0:
		return VerdictGuilty
	case c.VerdictScore < 0:
		return VerdictNotGuilty
	default:
		return VerdictControversial
	}
}

// Confidence is the share of the dominant side, as a rounded percentage.
func (c Case) Confidence() int {
	if c.TotalVotes == 0 {
		return 0
	}
	dominant := c.GuiltyVotes
	if c.NotGuiltyVotes > dominant {
		dominant = c.NotGuiltyVotes
	}
	return int(math.Round(float64(dominant) / float64(c.TotalVotes) * 100))
}

// ApplyVerdict copies server-side tallies onto the case.
func (c *Case) ApplyVerdict(v VerdictSummary, at time.Time) {
	c.VerdictScore = v.Score
	c.TotalVotes = v.TotalVotes
	c.GuiltyVotes = v.GuiltyVotes
	c.NotGuiltyVotes = v.NotGuiltyVotes
	summary := v
	c.VerdictSummary = &summary
	c.LastVotedAt = &Timestamp{Time: at}
}

// Timestamp decodes backend timestamps, which may omit the zone offset.
// Zone-less values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		ts.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

// VerdictSummary is the server's view of a case's voting outcome.
type VerdictSummary struct {
	Status         string  `json:"status"`
	Score          int     `json:"score"`
	TotalVotes     int     `json:"totalVotes"`
	GuiltyVotes    int     `json:"guiltyVotes"`
	NotGuiltyVotes int     `json:"notGuiltyVotes"`
	Confidence     float64 `json:"confidence"`
}

// ScamTypes is the fixed list of values accepted for Case.Actions.
var ScamTypes = []string{
	"Phone Scam",
	"Email Fraud",
	"Investment Scam",
	"Romance Scam",
	"Tech Support Scam",
	"Identity Theft",
	"Online Shopping Fraud",
	"Phishing",
	"Cryptocurrency Scam",
	"Job Interview Scam",
	"Tax Refund Scam",
	"Charity Scam",
	"Other",
}

// =============================================================================
// VOTING
// =============================================================================

// Vote is a community verdict on a case.
type Vote string

const (
	VoteGuilty    Vote = "guilty"
	VoteNotGuilty Vote = "not_guilty"
)

// Valid reports whether v is one of the two accepted votes.
func (v Vote) Valid() bool {
	return v == VoteGuilty || v == VoteNotGuilty
}

// Label is the human-readable form used in notifications.
func (v Vote) Label() string {
	if v == VoteGuilty {
		return "Guilty"
	}
	return "Not Guilty"
}

// VoteRequest is the body of POST /api/v1/case/{id}/vote.
type VoteRequest struct {
	Vote  Vote   `json:"vote"`
	Email string `json:"email,omitempty"`
}

// VoteResponse is returned after a vote is recorded.
type VoteResponse struct {
	Success            bool           `json:"success"`
	Message            string         `json:"message"`
	CaseID             int64          `json:"caseId"`
	Vote               Vote           `json:"vote"`
	VerificationMethod string         `json:"verificationMethod,omitempty"`
	Verdict            VerdictSummary `json:"verdict"`
}

// =============================================================================
// REPORTS
// =============================================================================

// ReportRequest is the body of POST /api/v1/case/report. Optional contact
// fields are sent as null when blank.
type ReportRequest struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Company       *string `json:"company"`
	Actions       string  `json:"actions"`
	Description   string  `json:"description"`
	ReporterEmail string  `json:"reporterEmail"`
	ReporterName  string  `json:"reporterName"`
}

// ReportResponse carries the id of the newly created case.
type ReportResponse struct {
	CaseID int64 `json:"caseId"`
}

// =============================================================================
// OTP
// =============================================================================

// OTPSendRequest asks the backend to email a one-time code.
type OTPSendRequest struct {
	Email string `json:"email"`
}

// OTPVerifyRequest exchanges a one-time code for a verification token.
type OTPVerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// OTPVerifyResponse carries the bearer token used for votes and reports.
type OTPVerifyResponse struct {
	Token string `json:"token"`
}

// ErrorBody is the JSON error envelope returned by the backend.
// Code is kept raw because backends send it as either a string or a number.
type ErrorBody struct {
	Error string          `json:"error"`
	Code  json.RawMessage `json:"code,omitempty"`
}
