package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unveil/internal/api"
	"unveil/internal/store"
	"unveil/internal/toast"
	"unveil/internal/types"
	"unveil/internal/validation"
)

type fakeSubmitter struct {
	calls  []types.ReportRequest
	tokens []string
	caseID int64
	err    error
}

func (f *fakeSubmitter) ReportCase(_ context.Context, req types.ReportRequest, token string) (*types.ReportResponse, error) {
	f.calls = append(f.calls, req)
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return &types.ReportResponse{CaseID: f.caseID}, nil
}

type fakeVerifier struct{ required bool }

func (v fakeVerifier) IsVerificationRequired() bool  { return v.required }
func (v fakeVerifier) Credentials() (string, string) { return "me@x.com", "tok" }

type recorder struct{ toasts []toast.Toast }

func (r *recorder) Notify(kind toast.Kind, title, message string) {
	r.toasts = append(r.toasts, toast.Toast{Kind: kind, Title: title, Message: message})
}

func (r *recorder) last() toast.Toast {
	if len(r.toasts) == 0 {
		return toast.Toast{}
	}
	return r.toasts[len(r.toasts)-1]
}

func fillValid(f *Form) {
	f.UpdateField(FieldPhone, "(555) 123-4567")
	f.UpdateField(FieldActions, "Phone Scam")
	f.UpdateField(FieldDescription, "  Called pretending to be the bank and asked for my PIN.  ")
	f.UpdateField(FieldReporterEmail, " me@x.com ")
	f.UpdateField(FieldReporterName, "Jane Doe")
}

func newForm(s *fakeSubmitter, verified bool) (*Form, *recorder) {
	rec := &recorder{}
	return NewForm(s, fakeVerifier{required: !verified}, rec, validation.DefaultRules(), nil), rec
}

func TestValidateEmptyForm(t *testing.T) {
	f, _ := newForm(&fakeSubmitter{}, true)
	err := f.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, validation.ErrInvalidInput))

	want := FieldErrors{
		FieldName:          contactRequired,
		FieldEmail:         contactRequired,
		FieldPhone:         contactRequired,
		FieldActions:       "Scam type is required",
		FieldDescription:   "Description is required",
		FieldReporterEmail: "Your email is required",
		FieldReporterName:  "Your name is required",
	}
	assert.Equal(t, want, f.Errors())
}

func TestValidatePresentFields(t *testing.T) {
	f, _ := newForm(&fakeSubmitter{}, true)
	fillValid(f)
	f.UpdateField(FieldEmail, "not-an-email")
	f.UpdateField(FieldCompany, "X")
	f.UpdateField(FieldDescription, "too short")
	f.UpdateField(FieldReporterName, "J4ne")

	require.Error(t, f.Validate())
	errs := f.Errors()
	assert.Equal(t, "Please enter a valid email address", errs[FieldEmail])
	assert.Equal(t, "Company name must be at least 2 characters long", errs[FieldCompany])
	assert.Equal(t, "Description must be at least 20 characters long", errs[FieldDescription])
	assert.Equal(t, "Name contains invalid characters", errs[FieldReporterName])
	assert.NotContains(t, errs, FieldName)
	assert.NotContains(t, errs, FieldPhone)
}

func TestUpdateFieldClearsItsError(t *testing.T) {
	f, _ := newForm(&fakeSubmitter{}, true)
	require.Error(t, f.Validate())
	assert.NotEmpty(t, f.Error(FieldActions))

	f.UpdateField(FieldActions, "Phishing")
	assert.Empty(t, f.Error(FieldActions))
	assert.NotEmpty(t, f.Error(FieldReporterName))
}

func TestValidForm(t *testing.T) {
	f, _ := newForm(&fakeSubmitter{}, true)
	fillValid(f)
	assert.NoError(t, f.Validate())
	assert.Empty(t, f.Errors())
}

func TestRequestNullsBlankFields(t *testing.T) {
	f, _ := newForm(&fakeSubmitter{}, true)
	fillValid(f)
	f.UpdateField(FieldName, "   ")

	req := f.Request()
	assert.Nil(t, req.Name)
	assert.Nil(t, req.Email)
	assert.Nil(t, req.Company)
	require.NotNil(t, req.Phone)
	assert.Equal(t, "(555) 123-4567", *req.Phone)
	assert.Equal(t, "Called pretending to be the bank and asked for my PIN.", req.Description)
	assert.Equal(t, "me@x.com", req.ReporterEmail)
}

func TestSubmitInvalidSendsNothing(t *testing.T) {
	s := &fakeSubmitter{}
	f, rec := newForm(s, true)

	_, err := f.Submit(context.Background())
	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Empty(t, s.calls)
	assert.Equal(t, toast.Toast{Kind: toast.KindError, Title: "Form Validation Failed", Message: "Please correct the errors below and try again."}, rec.last())
}

func TestSubmitUnverified(t *testing.T) {
	s := &fakeSubmitter{}
	f, _ := newForm(s, false)
	fillValid(f)

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrVerificationRequired)
	assert.Empty(t, s.calls)
	assert.Equal(t, "Jane Doe", f.Value(FieldReporterName), "form is kept for the retry")
}

func TestSubmitSuccess(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(store.DriverModernc, filepath.Join(t.TempDir(), "unveil.db"))
	require.NoError(t, err)
	defer db.Close()

	s := &fakeSubmitter{caseID: 314}
	rec := &recorder{}
	f := NewForm(s, fakeVerifier{}, rec, validation.DefaultRules(), db)
	fillValid(f)

	id, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(314), id)
	assert.Equal(t, []string{"tok"}, s.tokens)
	assert.Equal(t, toast.Toast{
		Kind:    toast.KindSuccess,
		Title:   "Report Submitted",
		Message: "Case #314 has been created successfully. Thank you for helping protect the community!",
	}, rec.last())

	assert.Empty(t, f.Value(FieldPhone), "form is reset")
	assert.False(t, f.Submitting())

	reports, err := db.Reports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(314), reports[0].CaseID)
	assert.Equal(t, "(555) 123-4567", reports[0].Subject)
}

func TestSubmitStatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  toast.Kind
		wantTitle string
		wantMsg   string
		wantAuth  bool
	}{
		{"bad request with message", &api.APIError{Status: 400, Message: "Description contains a URL"}, toast.KindError, "Submission Failed", "Description contains a URL", false},
		{"bad request", &api.APIError{Status: 400}, toast.KindError, "Submission Failed", "Invalid report data. Please check your input and try again.", false},
		{"unauthorized", &api.APIError{Status: 401}, toast.KindError, "Verification Required", "Please verify your email to submit a report.", true},
		{"duplicate", &api.APIError{Status: 409}, toast.KindWarning, "Duplicate Report", "A similar case already exists in our database.", false},
		{"rate limited", &api.APIError{Status: 429}, toast.KindWarning, "Rate Limited", "Too many reports submitted. Please wait before submitting another.", false},
		{"server", &api.APIError{Status: 503}, toast.KindError, "Server Error", "Unable to submit report due to server issues. Please try again later.", false},
		{"teapot", &api.APIError{Status: 418}, toast.KindError, "Submission Failed", "An unexpected error occurred. Please try again.", false},
		{"network", errors.New("connection refused"), toast.KindError, "Submission Failed", "An unexpected error occurred. Please try again.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSubmitter{err: tt.err}
			f, rec := newForm(s, true)
			fillValid(f)

			_, err := f.Submit(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.wantAuth, errors.Is(err, ErrVerificationRequired))
			assert.Equal(t, toast.Toast{Kind: tt.wantKind, Title: tt.wantTitle, Message: tt.wantMsg}, rec.last())
			assert.Equal(t, "Jane Doe", f.Value(FieldReporterName), "failed submissions keep the form")
			assert.False(t, f.Submitting())
		})
	}
}

func TestFieldErrorsMessage(t *testing.T) {
	err := FieldErrors{FieldActions: "Scam type is required", FieldDescription: "Description is required"}
	assert.Equal(t, "invalid report: actions: Scam type is required; description: Description is required", err.Error())
}

func TestFieldLabels(t *testing.T) {
	for _, f := range Fields {
		assert.NotEqual(t, string(f), f.Label(), "field %s has no label", f)
	}
}
