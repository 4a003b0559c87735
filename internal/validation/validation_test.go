package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unveil/internal/types"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		input   string
		wantErr string
	}{
		{"user@example.com", ""},
		{"first.last+tag@sub.example.co", ""},
		{"", "Email is required"},
		{"   ", "Email is required"},
		{"userexample.com", "Please enter a valid email address"},
		{"user@example", "Please enter a valid email address"},
		{"user @example.com", "Please enter a valid email address"},
		{"@example.com", "Please enter a valid email address"},
		{strings.Repeat("a", 250) + "@x.io", "Email is too long (max 254 characters)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateEmail(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("(555) 123-4567"))
	assert.NoError(t, ValidatePhone("+44 20 7946 0958 12"))
	assert.EqualError(t, ValidatePhone(""), "Phone number is required")
	assert.EqualError(t, ValidatePhone("555-1234"), "Phone number must be at least 10 digits")
	assert.EqualError(t, ValidatePhone("1234567890123456"), "Phone number is too long")
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Mary-Jane O'Neil Jr."))
	assert.EqualError(t, ValidateName(" "), "Name is required")
	assert.EqualError(t, ValidateName("A"), "Name must be at least 2 characters long")
	assert.EqualError(t, ValidateName(strings.Repeat("a", 101)), "Name is too long (max 100 characters)")
	assert.EqualError(t, ValidateName("R2D2"), "Name contains invalid characters")
}

func TestValidateCompanyAndDescription(t *testing.T) {
	assert.NoError(t, ValidateCompany("Acme Inc."))
	assert.EqualError(t, ValidateCompany("A"), "Company name must be at least 2 characters long")
	assert.EqualError(t, ValidateCompany(strings.Repeat("c", 201)), "Company name is too long (max 200 characters)")

	assert.EqualError(t, ValidateDescription(""), "Description is required")
	assert.EqualError(t, ValidateDescription("too short"), "Description must be at least 20 characters long")
	assert.NoError(t, ValidateDescription("Called claiming to be from the bank."))
	assert.EqualError(t, ValidateDescription(strings.Repeat("d", 2001)), "Description is too long (max 2000 characters)")
}

func TestValidateSearchQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		filter  types.Filter
		wantErr string
	}{
		{"empty", "  ", types.FilterAll, "Please enter a search term"},
		{"all too short", "a", types.FilterAll, "Search term must be at least 2 characters long"},
		{"all too long", strings.Repeat("q", 201), types.FilterAll, "Search term is too long (max 200 characters)"},
		{"all ok", "acme", types.FilterAll, ""},
		{"email delegates", "not-an-email", types.FilterEmail, "Please enter a valid email address"},
		{"phone delegates", "12345", types.FilterPhone, "Phone number must be at least 10 digits"},
		{"name delegates", "J0hn", types.FilterName, "Name contains invalid characters"},
		{"company delegates", "x", types.FilterCompany, "Company name must be at least 2 characters long"},
		{"unknown filter accepts", "x", types.Filter("zip"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearchQuery(tt.query, tt.filter)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestCustomRules(t *testing.T) {
	r := DefaultRules()
	r.MaxQueryLength = 5
	assert.Error(t, r.ValidateSearchQuery("abcdef", types.FilterAll))
	assert.NoError(t, ValidateSearchQuery("abcdef", types.FilterAll))
}

func TestValidateOTP(t *testing.T) {
	assert.NoError(t, ValidateOTP("123456"))
	assert.NoError(t, ValidateOTP(" 123456 "))
	assert.Error(t, ValidateOTP("12345"))
	assert.Error(t, ValidateOTP("1234567"))
	assert.Error(t, ValidateOTP("12a456"))
	assert.Error(t, ValidateOTP("١٢٣٤٥٦"))
}

func TestFieldErrorIsInvalidInput(t *testing.T) {
	err := ValidateEmail("nope")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "email", fe.Field)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "scriptalert(1)/script", SanitizeInput("  <script>alert(1)</script> "))
	assert.Equal(t, "plain", SanitizeInput("plain"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
	assert.Equal(t, "hans@xn--mnchen-3ya.de", NormalizeEmail("Hans@München.de"))
	assert.Equal(t, "no-at-sign", NormalizeEmail("No-At-Sign"))
}

func TestFormatPhoneNumber(t *testing.T) {
	assert.Equal(t, "(555) 123-4567", FormatPhoneNumber("5551234567"))
	assert.Equal(t, "+1 (555) 123-4567", FormatPhoneNumber("1-555-123-4567"))
	assert.Equal(t, "+44 20 7946 0958", FormatPhoneNumber("+44 20 7946 0958"))
	assert.Equal(t, "12345", FormatPhoneNumber("12345"))
}
