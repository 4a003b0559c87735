// Package validation checks user input before it is sent to the backend.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"

	"unveil/internal/types"
)

// ErrInvalidInput matches every *FieldError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// FieldError is a user-facing validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// Is reports ErrInvalidInput as a match.
func (e *FieldError) Is(target error) bool { return target == ErrInvalidInput }

func fieldErr(field, format string, args ...interface{}) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var (
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nameRegex   = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)
	nonDigits   = regexp.MustCompile(`\D`)
	angleBraces = strings.NewReplacer("<", "", ">", "")
)

// Rules holds the length limits. The zero value is not useful; start from DefaultRules.
type Rules struct {
	MinQueryLength       int
	MaxQueryLength       int
	EmailMaxLength       int
	PhoneMinDigits       int
	PhoneMaxDigits       int
	NameMinLength        int
	NameMaxLength        int
	CompanyMinLength     int
	CompanyMaxLength     int
	DescriptionMinLength int
	DescriptionMaxLength int
	OTPLength            int
}

// DefaultRules returns the limits the backend enforces.
func DefaultRules() Rules {
	return Rules{
		MinQueryLength:       2,
		MaxQueryLength:       200,
		EmailMaxLength:       254,
		PhoneMinDigits:       10,
		PhoneMaxDigits:       15,
		NameMinLength:        2,
		NameMaxLength:        100,
		CompanyMinLength:     2,
		CompanyMaxLength:     200,
		DescriptionMinLength: 20,
		DescriptionMaxLength: 2000,
		OTPLength:            6,
	}
}

var defaultRules = DefaultRules()

func length(s string) int { return utf8.RuneCountInString(s) }

// ValidateEmail requires a well-formed address of at most EmailMaxLength characters.
func (r Rules) ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fieldErr("email", "Email is required")
	}
	if !emailRegex.MatchString(email) {
		return fieldErr("email", "Please enter a valid email address")
	}
	if length(email) > r.EmailMaxLength {
		return fieldErr("email", "Email is too long (max %d characters)", r.EmailMaxLength)
	}
	return nil
}

// ValidatePhone counts digits only, ignoring formatting characters.
func (r Rules) ValidatePhone(phone string) error {
	if strings.TrimSpace(phone) == "" {
		return fieldErr("phone", "Phone number is required")
	}
	digits := DigitsOnly(phone)
	if len(digits) < r.PhoneMinDigits {
		return fieldErr("phone", "Phone number must be at least %d digits", r.PhoneMinDigits)
	}
	if len(digits) > r.PhoneMaxDigits {
		return fieldErr("phone", "Phone number is too long")
	}
	return nil
}

// ValidateName allows letters, spaces, hyphens, apostrophes and periods.
func (r Rules) ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fieldErr("name", "Name is required")
	}
	if length(trimmed) < r.NameMinLength {
		return fieldErr("name", "Name must be at least %d characters long", r.NameMinLength)
	}
	if length(trimmed) > r.NameMaxLength {
		return fieldErr("name", "Name is too long (max %d characters)", r.NameMaxLength)
	}
	if !nameRegex.MatchString(trimmed) {
		return fieldErr("name", "Name contains invalid characters")
	}
	return nil
}

func (r Rules) ValidateCompany(company string) error {
	trimmed := strings.TrimSpace(company)
	if trimmed == "" {
		return fieldErr("company", "Company name is required")
	}
	if length(trimmed) < r.CompanyMinLength {
		return fieldErr("company", "Company name must be at least %d characters long", r.CompanyMinLength)
	}
	if length(trimmed) > r.CompanyMaxLength {
		return fieldErr("company", "Company name is too long (max %d characters)", r.CompanyMaxLength)
	}
	return nil
}

func (r Rules) ValidateDescription(description string) error {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return fieldErr("description", "Description is required")
	}
	if length(trimmed) < r.DescriptionMinLength {
		return fieldErr("description", "Description must be at least %d characters long", r.DescriptionMinLength)
	}
	if length(trimmed) > r.DescriptionMaxLength {
		return fieldErr("description", "Description is too long (max %d characters)", r.DescriptionMaxLength)
	}
	return nil
}

// ValidateSearchQuery applies the field validator matching the filter.
// Unknown filters are accepted.
func (r Rules) ValidateSearchQuery(query string, filter types.Filter) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fieldErr("query", "Please enter a search term")
	}

	switch filter {
	case types.FilterEmail:
		return r.ValidateEmail(query)
	case types.FilterPhone:
		return r.ValidatePhone(query)
	case types.FilterName:
		return r.ValidateName(query)
	case types.FilterCompany:
		return r.ValidateCompany(query)
	case types.FilterAll:
		if length(trimmed) < r.MinQueryLength {
			return fieldErr("query", "Search term must be at least %d characters long", r.MinQueryLength)
		}
		if length(trimmed) > r.MaxQueryLength {
			return fieldErr("query", "Search term is too long (max %d characters)", r.MaxQueryLength)
		}
	}
	return nil
}

// ValidateOTP requires exactly OTPLength ASCII digits.
func (r Rules) ValidateOTP(code string) error {
	code = strings.TrimSpace(code)
	if len(code) != r.OTPLength || DigitsOnly(code) != code {
		return fieldErr("otp", "Please enter a valid %d-digit code", r.OTPLength)
	}
	return nil
}

// Package-level helpers use DefaultRules.

func ValidateEmail(email string) error      { return defaultRules.ValidateEmail(email) }
func ValidatePhone(phone string) error      { return defaultRules.ValidatePhone(phone) }
func ValidateName(name string) error        { return defaultRules.ValidateName(name) }
func ValidateCompany(company string) error  { return defaultRules.ValidateCompany(company) }
func ValidateDescription(desc string) error { return defaultRules.ValidateDescription(desc) }
func ValidateOTP(code string) error         { return defaultRules.ValidateOTP(code) }
func ValidateSearchQuery(query string, filter types.Filter) error {
	return defaultRules.ValidateSearchQuery(query, filter)
}

// DigitsOnly strips every non-digit character.
func DigitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// SanitizeInput trims whitespace and removes angle brackets.
func SanitizeInput(input string) string {
	return angleBraces.Replace(strings.TrimSpace(input))
}

// NormalizeEmail trims and lower-cases the address and converts an
// internationalized domain to its ASCII form. Input without a single @
// is only trimmed and lower-cased.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return email
	}
	return local + "@" + ascii
}

// FormatPhoneNumber renders North American numbers; anything else is returned unchanged.
func FormatPhoneNumber(phone string) string {
	d := DigitsOnly(phone)
	switch {
	case len(d) == 10:
		return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
	case len(d) == 11 && d[0] == '1':
		return fmt.Sprintf("+1 (%s) %s-%s", d[1:4], d[4:7], d[7:])
	default:
		return phone
	}
}
