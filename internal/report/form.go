// Package report implements the "report a scam" form: per-field
// validation, submission with the verification token, and the mapping of
// backend responses to notifications.
package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"unveil/internal/api"
	"unveil/internal/logging"
	"unveil/internal/toast"
	"unveil/internal/types"
	"unveil/internal/validation"
)

var (
	// ErrVerificationRequired is returned when the report needs a verified
	// email first. The caller opens the verification flow and submits again.
	ErrVerificationRequired = errors.New("email verification required")

	// ErrSubmitting is returned while an earlier submission is still running.
	ErrSubmitting = errors.New("report submission already in progress")
)

// Field names a form input.
type Field string

const (
	FieldName          Field = "name"
	FieldEmail         Field = "email"
	FieldPhone         Field = "phone"
	FieldCompany       Field = "company"
	FieldActions       Field = "actions"
	FieldDescription   Field = "description"
	FieldReporterEmail Field = "reporterEmail"
	FieldReporterName  Field = "reporterName"
)

// Fields lists the inputs in display order.
var Fields = []Field{
	FieldName, FieldEmail, FieldPhone, FieldCompany,
	FieldActions, FieldDescription, FieldReporterEmail, FieldReporterName,
}

// Label is the caption shown next to the input.
func (f Field) Label() string {
	switch f {
	case FieldName:
		return "Scammer name"
	case FieldEmail:
		return "Scammer email"
	case FieldPhone:
		return "Scammer phone"
	case FieldCompany:
		return "Company"
	case FieldActions:
		return "Scam type"
	case FieldDescription:
		return "Description"
	case FieldReporterEmail:
		return "Your email"
	case FieldReporterName:
		return "Your name"
	default:
		return string(f)
	}
}

const contactRequired = "At least one of: name, email, or phone is required"

// FieldErrors maps each invalid field to its message.
type FieldErrors map[Field]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for f := range e {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[Field(k)])
	}
	return "invalid report: " + strings.Join(parts, "; ")
}

// Is matches validation.ErrInvalidInput.
func (e FieldErrors) Is(target error) bool { return target == validation.ErrInvalidInput }

// Submitter posts reports. *api.Client implements it.
type Submitter interface {
	ReportCase(ctx context.Context, req types.ReportRequest, token string) (*types.ReportResponse, error)
}

// VerificationSource supplies the verified email token.
// *verification.Verifier implements it.
type VerificationSource interface {
	IsVerificationRequired() bool
	Credentials() (email, token string)
}

// Recorder keeps a local list of submitted reports. *store.Store implements it.
type Recorder interface {
	RecordReport(ctx context.Context, caseID int64, req types.ReportRequest) error
}

// Form holds the report being edited. Safe for concurrent use.
type Form struct {
	mu         sync.Mutex
	values     map[Field]string
	errs       FieldErrors
	submitting bool

	submitter Submitter
	verify    VerificationSource
	notify    toast.Notifier
	rules     validation.Rules
	recorder  Recorder
}

// NewForm creates an empty form. recorder may be nil.
func NewForm(s Submitter, verify VerificationSource, notify toast.Notifier, rules validation.Rules, recorder Recorder) *Form {
	if notify == nil {
		notify = toast.Discard
	}
	if rules == (validation.Rules{}) {
		rules = validation.DefaultRules()
	}
	return &Form{
		values:    make(map[Field]string),
		errs:      make(FieldErrors),
		submitter: s,
		verify:    verify,
		notify:    notify,
		rules:     rules,
		recorder:  recorder,
	}
}

// UpdateField sets a value and clears that field's error.
func (f *Form) UpdateField(field Field, value string) {
	f.mu.Lock()
	f.values[field] = value
	delete(f.errs, field)
	f.mu.Unlock()
}

// Value returns the current value of field.
func (f *Form) Value(field Field) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[field]
}

// Error returns the current error for field, or "".
func (f *Form) Error(field Field) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[field]
}

// Errors returns a copy of the current field errors.
func (f *Form) Errors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(FieldErrors, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

// Submitting reports whether a submission is running.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Reset clears every value and error.
func (f *Form) Reset() {
	f.mu.Lock()
	f.values = make(map[Field]string)
	f.errs = make(FieldErrors)
	f.mu.Unlock()
}

// Validate checks every field and stores the errors. It returns nil when
// the form can be submitted.
func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = f.validateLocked()
	if len(f.errs) == 0 {
		return nil
	}
	return f.copyErrsLocked()
}

func (f *Form) copyErrsLocked() FieldErrors {
	out := make(FieldErrors, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

func (f *Form) validateLocked() FieldErrors {
	errs := make(FieldErrors)
	present := func(field Field) bool { return strings.TrimSpace(f.values[field]) != "" }
	check := func(field Field, err error) {
		if err != nil {
			errs[field] = err.Error()
		}
	}

	if !present(FieldName) && !present(FieldEmail) && !present(FieldPhone) {
		errs[FieldName] = contactRequired
		errs[FieldEmail] = contactRequired
		errs[FieldPhone] = contactRequired
	}
	if present(FieldName) {
		check(FieldName, f.rules.ValidateName(f.values[FieldName]))
	}
	if present(FieldEmail) {
		check(FieldEmail, f.rules.ValidateEmail(strings.TrimSpace(f.values[FieldEmail])))
	}
	if present(FieldPhone) {
		check(FieldPhone, f.rules.ValidatePhone(f.values[FieldPhone]))
	}
	if present(FieldCompany) {
		check(FieldCompany, f.rules.ValidateCompany(f.values[FieldCompany]))
	}

	if !present(FieldActions) {
		errs[FieldActions] = "Scam type is required"
	}
	check(FieldDescription, f.rules.ValidateDescription(f.values[FieldDescription]))

	if !present(FieldReporterEmail) {
		errs[FieldReporterEmail] = "Your email is required"
	} else {
		check(FieldReporterEmail, f.rules.ValidateEmail(strings.TrimSpace(f.values[FieldReporterEmail])))
	}
	if !present(FieldReporterName) {
		errs[FieldReporterName] = "Your name is required"
	} else {
		check(FieldReporterName, f.rules.ValidateName(f.values[FieldReporterName]))
	}
	return errs
}

// Request builds the request body from the current values. Blank optional
// contact fields become null.
func (f *Form) Request() types.ReportRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requestLocked()
}

func (f *Form) requestLocked() types.ReportRequest {
	optional := func(field Field) *string {
		v := strings.TrimSpace(f.values[field])
		if v == "" {
			return nil
		}
		return &v
	}
	return types.ReportRequest{
		Name:          optional(FieldName),
		Email:         optional(FieldEmail),
		Phone:         optional(FieldPhone),
		Company:       optional(FieldCompany),
		Actions:       strings.TrimSpace(f.values[FieldActions]),
		Description:   strings.TrimSpace(f.values[FieldDescription]),
		ReporterEmail: strings.TrimSpace(f.values[FieldReporterEmail]),
		ReporterName:  strings.TrimSpace(f.values[FieldReporterName]),
	}
}

// Submit validates and posts the report, returning the new case id.
//
// An invalid form raises "Form Validation Failed" and returns FieldErrors.
// Without a verified email it returns ErrVerificationRequired before any
// request is made. A 401 from the backend also yields ErrVerificationRequired.
// On success the report is recorded locally and the form is cleared.
func (f *Form) Submit(ctx context.Context) (int64, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return 0, ErrSubmitting
	}
	f.errs = f.validateLocked()
	if len(f.errs) > 0 {
		errs := f.copyErrsLocked()
		f.mu.Unlock()
		f.notify.Notify(toast.KindError, "Form Validation Failed", "Please correct the errors below and try again.")
		return 0, errs
	}
	if f.verify == nil || f.verify.IsVerificationRequired() {
		f.mu.Unlock()
		return 0, ErrVerificationRequired
	}
	req := f.requestLocked()
	f.submitting = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	_, token := f.verify.Credentials()
	timer := logging.StartTimer(logging.CategoryReport, "SubmitReport")
	resp, err := f.submitter.ReportCase(ctx, req, token)
	timer.Stop()
	if err != nil {
		logging.Get(logging.CategoryReport).Warn("Report submission failed: %v", err)
		return 0, f.handleError(err)
	}

	logging.Report("Report submitted as case #%d", resp.CaseID)
	f.notify.Notify(toast.KindSuccess, "Report Submitted",
		fmt.Sprintf("Case #%d has been created successfully. Thank you for helping protect the community!", resp.CaseID))

	if f.recorder != nil {
		if rerr := f.recorder.RecordReport(ctx, resp.CaseID, req); rerr != nil {
			logging.Get(logging.CategoryReport).Warn("Failed to record report locally: %v", rerr)
		}
	}
	f.Reset()
	return resp.CaseID, nil
}

func (f *Form) handleError(err error) error {
	status := api.StatusOf(err)
	switch {
	case status == http.StatusBadRequest:
		msg := api.ServerMessage(err)
		if msg == "" {
			msg = "Invalid report data. Please check your input and try again."
		}
		f.notify.Notify(toast.KindError, "Submission Failed", msg)
	case status == http.StatusUnauthorized:
		f.notify.Notify(toast.KindError, "Verification Required", "Please verify your email to submit a report.")
		return fmt.Errorf("report rejected: %w: %w", ErrVerificationRequired, err)
	case status == http.StatusConflict:
		f.notify.Notify(toast.KindWarning, "Duplicate Report", "A similar case already exists in our database.")
	case status == http.StatusTooManyRequests:
		f.notify.Notify(toast.KindWarning, "Rate Limited", "Too many reports submitted. Please wait before submitting another.")
	case status >= http.StatusInternalServerError:
		f.notify.Notify(toast.KindError, "Server Error", "Unable to submit report due to server issues. Please try again later.")
	default:
		f.notify.Notify(toast.KindError, "Submission Failed", "An unexpected error occurred. Please try again.")
	}
	return fmt.Errorf("report submission failed: %w", err)
}
