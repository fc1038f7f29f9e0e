package models

type UserClaimKey struct{}

// UserClaims is what the access gate hands to protected handlers. It is
// derived from the visitor's session state, never from a client token.
type UserClaims struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	EmailVerified bool   `json:"email_verified"`
}

type VisitorKey struct{}
