package domain

import "time"

// ResetToken is a single-use password reset credential.
// ExpiresAtUnix mirrors ExpiresAt for stores with native TTL support (DynamoDB).
type ResetToken struct {
	Token         string    `json:"token" dynamodbav:"token"`
	Email         string    `json:"email" dynamodbav:"email"`
	ExpiresAt     time.Time `json:"expires_at" dynamodbav:"expires_at"`
	ExpiresAtUnix int64     `json:"-" dynamodbav:"expires_at_unix"`
}

// Expired reports whether the token is no longer usable at now.
func (t *ResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
