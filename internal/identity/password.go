package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"easemyday/internal/models"

	"github.com/go-playground/validator/v10"
)

// PasswordPolicy is checked before any provider call that sets a password:
// sign-up, reset confirmation and password change.
type PasswordPolicy struct {
	MinLength    int
	RequireUpper bool
	RequireLower bool
	RequireDigit bool
}

func NewPasswordPolicy(config models.PasswordConfiguration) PasswordPolicy {
	return PasswordPolicy{
		MinLength:    config.MinLength,
		RequireUpper: config.RequireUpper,
		RequireLower: config.RequireLower,
		RequireDigit: config.RequireDigit,
	}
}

// DefaultPasswordPolicy is 8 characters with upper, lower and digit.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, RequireUpper: true, RequireLower: true, RequireDigit: true}
}

func (p PasswordPolicy) Validate(password string) error {
	if len([]rune(password)) < p.MinLength {
		return Wrap(KindWeakPassword, fmt.Errorf("shorter than %d characters", p.MinLength))
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case p.RequireUpper && !upper:
		return Wrap(KindWeakPassword, errors.New("missing an upper-case letter"))
	case p.RequireLower && !lower:
		return Wrap(KindWeakPassword, errors.New("missing a lower-case letter"))
	case p.RequireDigit && !digit:
		return Wrap(KindWeakPassword, errors.New("missing a digit"))
	}
	return nil
}

// Describe renders the policy for inline form errors.
func (p PasswordPolicy) Describe() string {
	var parts []string
	if p.RequireUpper {
		parts = append(parts, "an upper-case letter")
	}
	if p.RequireLower {
		parts = append(parts, "a lower-case letter")
	}
	if p.RequireDigit {
		parts = append(parts, "a number")
	}

	desc := fmt.Sprintf("Password must be at least %d characters", p.MinLength)
	if len(parts) > 0 {
		desc += " and include " + strings.Join(parts, ", ")
	}
	return desc + "."
}

var emailValidator = validator.New()

// ValidateEmail applies the same rule as request body validation.
func ValidateEmail(email string) error {
	if err := emailValidator.Var(email, "required,email,max=254"); err != nil {
		return Wrap(KindInvalidEmail, err)
	}
	return nil
}
