// Package verification proves email ownership with one-time codes.
// The Verifier holds the verified email and token used for votes and
// reports; Flow drives the email -> code -> success dialog on top of it.
package verification

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"unveil/internal/api"
	"unveil/internal/logging"
	"unveil/internal/store"
	"unveil/internal/toast"
	"unveil/internal/types"
	"unveil/internal/validation"
)

// OTPService sends and checks one-time codes. *api.Client implements it.
type OTPService interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) (*types.OTPVerifyResponse, error)
}

// Persister remembers a verification across runs. *store.Store implements it.
type Persister interface {
	SaveVerification(ctx context.Context, v store.RememberedVerification) error
	LoadVerification(ctx context.Context) (*store.RememberedVerification, error)
	ClearVerification(ctx context.Context) error
}

// State is a snapshot of the verification status.
type State struct {
	IsVerified bool
	Email      string
	Token      string
	Loading    bool
	Error      string
}

// Verifier holds the verification state. Safe for concurrent use.
type Verifier struct {
	mu      sync.RWMutex
	state   State
	otp     OTPService
	notify  toast.Notifier
	persist Persister // nil keeps state in memory only
}

// NewVerifier creates an unverified Verifier.
func NewVerifier(otp OTPService, notify toast.Notifier) *Verifier {
	if notify == nil {
		notify = toast.Discard
	}
	return &Verifier{otp: otp, notify: notify}
}

// Remember enables persistence and restores a previously saved verification.
func (v *Verifier) Remember(ctx context.Context, p Persister) error {
	v.mu.Lock()
	v.persist = p
	v.mu.Unlock()

	saved, err := p.LoadVerification(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore verification: %w", err)
	}
	if saved == nil || saved.Token == "" {
		return nil
	}

	v.mu.Lock()
	v.state = State{IsVerified: true, Email: saved.Email, Token: saved.Token}
	v.mu.Unlock()
	logging.Verification("Restored verification for %s", saved.Email)
	return nil
}

// State returns a snapshot.
func (v *Verifier) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// IsVerificationRequired reports whether votes and reports still need a verified email.
func (v *Verifier) IsVerificationRequired() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.state.IsVerified
}

// Credentials returns the verified email and token, empty when unverified.
func (v *Verifier) Credentials() (email, token string) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.state.IsVerified {
		return "", ""
	}
	return v.state.Email, v.state.Token
}

func (v *Verifier) setLoading() {
	v.mu.Lock()
	v.state.Loading = true
	v.state.Error = ""
	v.mu.Unlock()
}

func (v *Verifier) fail(kind toast.Kind, title, message string) bool {
	v.mu.Lock()
	v.state.Loading = false
	v.state.Error = message
	v.mu.Unlock()
	v.notify.Notify(kind, title, message)
	return false
}

// RequestVerification asks the backend to email a code to email.
// Requesting a code for a different address drops the current verification.
func (v *Verifier) RequestVerification(ctx context.Context, email string) bool {
	v.setLoading()
	normalized := validation.NormalizeEmail(email)

	logging.Verification("Requesting OTP for %s", normalized)
	if err := v.otp.SendOTP(ctx, normalized); err != nil {
		logging.Get(logging.CategoryVerification).Warn("OTP request failed: %v", err)
		switch api.StatusOf(err) {
		case http.StatusBadRequest:
			return v.fail(toast.KindError, "Invalid Email", orDefault(api.ServerMessage(err), "Invalid email address"))
		case http.StatusTooManyRequests:
			return v.fail(toast.KindWarning, "Rate Limited", orDefault(api.ServerMessage(err),
				"Too many verification requests. Please wait before requesting another code."))
		default:
			return v.fail(toast.KindError, "OTP Failed", "Failed to send verification code. Please try again.")
		}
	}

	v.mu.Lock()
	if v.state.Email != normalized {
		v.state.IsVerified = false
		v.state.Token = ""
	}
	v.state.Email = normalized
	v.state.Loading = false
	v.state.Error = ""
	v.mu.Unlock()

	v.notify.Notify(toast.KindSuccess, "OTP Sent",
		fmt.Sprintf("Check your email at %s for the verification code.", strings.TrimSpace(email)))
	return true
}

// VerifyCode exchanges code for a token for the email a code was requested for.
func (v *Verifier) VerifyCode(ctx context.Context, code string) bool {
	v.mu.RLock()
	email := v.state.Email
	v.mu.RUnlock()

	if email == "" {
		v.notify.Notify(toast.KindError, "No Email", "Please request a verification code first.")
		return false
	}

	v.setLoading()
	resp, err := v.otp.VerifyOTP(ctx, email, strings.TrimSpace(code))
	if err != nil {
		logging.Get(logging.CategoryVerification).Warn("OTP verification failed for %s: %v", email, err)
		if api.StatusOf(err) == http.StatusBadRequest {
			return v.fail(toast.KindError, "Verification Failed", classifyCodeError(api.ServerMessage(err)))
		}
		return v.fail(toast.KindError, "Verification Failed", "Verification failed. Please try again.")
	}

	v.mu.Lock()
	v.state.IsVerified = true
	v.state.Token = resp.Token
	v.state.Loading = false
	v.state.Error = ""
	persist := v.persist
	v.mu.Unlock()

	if persist != nil {
		if err := persist.SaveVerification(ctx, store.RememberedVerification{Email: email, Token: resp.Token}); err != nil {
			logging.Get(logging.CategoryVerification).Error("Failed to remember verification: %v", err)
		}
	}

	logging.Verification("Verified %s", email)
	v.notify.Notify(toast.KindSuccess, "Verified!", "Email verified successfully. You can now vote on cases.")
	return true
}

// Resume targets a code that was requested earlier, e.g. by another
// process, so VerifyCode can be called without RequestVerification.
func (v *Verifier) Resume(email string) {
	normalized := validation.NormalizeEmail(email)
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Email != normalized {
		v.state = State{Email: normalized}
	}
}

// Clear forgets the verification.
func (v *Verifier) Clear() {
	v.mu.Lock()
	v.state = State{}
	persist := v.persist
	v.mu.Unlock()

	if persist != nil {
		if err := persist.ClearVerification(context.Background()); err != nil {
			logging.Get(logging.CategoryVerification).Error("Failed to clear remembered verification: %v", err)
		}
	}
	v.notify.Notify(toast.KindInfo, "Verification Cleared", "Please verify your email again to vote.")
}

// classifyCodeError turns the backend's 400 message into user guidance.
func classifyCodeError(msg string) string {
	switch {
	case strings.Contains(msg, "expired"):
		return "Verification code has expired. Please request a new one."
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "Invalid OTP"):
		return "Invalid verification code. Please check and try again."
	case strings.Contains(msg, "attempts"):
		return "Too many failed attempts. Please request a new verification code."
	case msg != "":
		return msg
	default:
		return "Invalid verification code"
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
