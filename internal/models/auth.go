package models

type ProviderType string

const (
	LocalProviderType ProviderType = "local"
	OIDCProviderType  ProviderType = "oidc"
)

type AuthSignUpBody struct {
	Email       string `json:"email"        validate:"required,email,max=254"`
	Password    string `json:"password"     validate:"required,max=72"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

type AuthLoginBody struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type ProviderResponse struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Type    ProviderType `json:"type"`
	Domains []string     `json:"domains"`
}

type PasswordResetRequestBody struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// PasswordResetConfirmBody carries both fields so the reset screen can
// reject a mismatch before the code is spent.
type PasswordResetConfirmBody struct {
	NewPassword     string `json:"new_password"     validate:"required,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,max=72"`
}

type PasswordChangeBody struct {
	CurrentPassword string `json:"current_password" validate:"required,max=72"`
	NewPassword     string `json:"new_password"     validate:"required,max=72"`
}

type ProfileUpdateBody struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

type ActivityQueryParams struct {
	Action string `json:"action" validate:"omitempty,max=64"`
	Days   int    `json:"days"   validate:"omitempty,gte=1,lte=90"`
}

// ActionCodeQueryParams is the code a screen may carry from an action link.
type ActionCodeQueryParams struct {
	OobCode string `json:"oobCode" validate:"omitempty,max=512"`
}
