package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"unveil/internal/logging"
	"unveil/internal/validation"
)

// Step is the current screen of the verification dialog.
type Step int

const (
	StepEmail Step = iota
	StepCode
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepEmail:
		return "email"
	case StepCode:
		return "code"
	case StepSuccess:
		return "success"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Requester is the part of *Verifier the dialog drives.
type Requester interface {
	RequestVerification(ctx context.Context, email string) bool
	VerifyCode(ctx context.Context, code string) bool
}

// Flow is the email -> code -> success dialog. Safe for concurrent use;
// the lock is not held across network calls.
type Flow struct {
	mu         sync.Mutex
	verifier   Requester
	rules      validation.Rules
	cooldown   time.Duration
	now        func() time.Time
	step       Step
	email      string
	code       string
	emailError string
	resendAt   time.Time // resend allowed from this instant
}

// NewFlow creates a dialog starting at StepEmail. A non-positive cooldown uses 60s.
func NewFlow(v Requester, rules validation.Rules, cooldown time.Duration) *Flow {
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &Flow{verifier: v, rules: rules, cooldown: cooldown, now: time.Now}
}

// SetClock replaces the time source.
func (f *Flow) SetClock(now func() time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *Flow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

func (f *Flow) Code() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

// EmailError is the local validation message for the email field.
func (f *Flow) EmailError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emailError
}

// SetEmail updates the email field and clears its error.
func (f *Flow) SetEmail(email string) {
	f.mu.Lock()
	f.email = email
	f.emailError = ""
	f.mu.Unlock()
}

// SetCode keeps only digits, up to the code length.
func (f *Flow) SetCode(code string) {
	digits := validation.DigitsOnly(code)
	f.mu.Lock()
	if len(digits) > f.rules.OTPLength {
		digits = digits[:f.rules.OTPLength]
	}
	f.code = digits
	f.mu.Unlock()
}

// CodeComplete reports whether the code field holds a full code.
func (f *Flow) CodeComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.code) == f.rules.OTPLength
}

// SubmitEmail validates the email and requests a code. On success the
// dialog moves to StepCode and the resend cooldown starts.
func (f *Flow) SubmitEmail(ctx context.Context) bool {
	f.mu.Lock()
	email := f.email
	if err := f.rules.ValidateEmail(email); err != nil {
		f.emailError = err.Error()
		f.mu.Unlock()
		return false
	}
	f.emailError = ""
	f.mu.Unlock()

	if !f.verifier.RequestVerification(ctx, email) {
		return false
	}

	f.mu.Lock()
	f.step = StepCode
	f.resendAt = f.now().Add(f.cooldown)
	f.mu.Unlock()
	logging.Verification("Verification dialog: code requested, cooldown %v", f.cooldown)
	return true
}

// SubmitCode verifies the entered code. Incomplete codes are not sent.
func (f *Flow) SubmitCode(ctx context.Context) bool {
	f.mu.Lock()
	code := f.code
	complete := len(code) == f.rules.OTPLength
	f.mu.Unlock()

	if !complete {
		return false
	}
	if !f.verifier.VerifyCode(ctx, code) {
		return false
	}

	f.mu.Lock()
	f.step = StepSuccess
	f.mu.Unlock()
	return true
}

// Resend requests a new code once the cooldown has passed.
func (f *Flow) Resend(ctx context.Context) bool {
	f.mu.Lock()
	if f.now().Before(f.resendAt) {
		f.mu.Unlock()
		return false
	}
	email := f.email
	f.mu.Unlock()

	if !f.verifier.RequestVerification(ctx, email) {
		return false
	}

	f.mu.Lock()
	f.resendAt = f.now().Add(f.cooldown)
	f.code = ""
	f.mu.Unlock()
	return true
}

// ResendRemaining is the time left before Resend is allowed, rounded up to whole seconds.
func (f *Flow) ResendRemaining() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	left := f.resendAt.Sub(f.now())
	if left <= 0 {
		return 0
	}
	return left.Truncate(time.Second) + roundUp(left)
}

func roundUp(d time.Duration) time.Duration {
	if d%time.Second == 0 {
		return 0
	}
	return time.Second
}

// Back returns from StepCode to StepEmail, keeping the entered email.
func (f *Flow) Back() {
	f.mu.Lock()
	if f.step == StepCode {
		f.step = StepEmail
		f.code = ""
	}
	f.mu.Unlock()
}

// Reset returns to StepEmail with every field cleared.
func (f *Flow) Reset() {
	f.mu.Lock()
	f.step = StepEmail
	f.email = ""
	f.code = ""
	f.emailError = ""
	f.resendAt = time.Time{}
	f.mu.Unlock()
}

// FormatCountdown renders d as m:ss.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
