package identity

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrInvalidOTP         = errors.New("token has expired or is invalid")
	ErrOAuthDisabled      = errors.New("oauth provider is not configured")
)

const minPasswordLength = 6

// OTPType is the purpose an emailed verification link was issued for.
type OTPType string

const (
	OTPSignup      OTPType = "signup"
	OTPInvite      OTPType = "invite"
	OTPMagicLink   OTPType = "magiclink"
	OTPRecovery    OTPType = "recovery"
	OTPEmailChange OTPType = "email_change"
	OTPEmail       OTPType = "email"
)

// ParseOTPType validates a type query parameter.
func ParseOTPType(s string) (OTPType, bool) {
	switch t := OTPType(s); t {
	case OTPSignup, OTPInvite, OTPMagicLink, OTPRecovery, OTPEmailChange, OTPEmail:
		return t, true
	}
	return "", false
}

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// Account is the stored identity record. PasswordHash is empty for
// accounts created through an OAuth provider.
type Account struct {
	ID           string
	Email        string
	Phone        string
	PasswordHash string
	Provider     string
	Metadata     map[string]string
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User is the public view of an account handed to the rest of the
// application. Metadata carries the self-reported fields attached at signup
// (first_name, last_name, display_name, phone, role).
type User struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Provider    string            `json:"provider"`
	Metadata    map[string]string `json:"user_metadata,omitempty"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (a Account) User() User {
	meta := make(map[string]string, len(a.Metadata))
	for k, v := range a.Metadata {
		meta[k] = v
	}
	return User{
		ID:          a.ID,
		Email:       a.Email,
		Phone:       a.Phone,
		Provider:    a.Provider,
		Metadata:    meta,
		ConfirmedAt: a.ConfirmedAt,
		CreatedAt:   a.CreatedAt,
	}
}

// OTP is a single-use verification token. Only the hash is stored and sent.
type OTP struct {
	TokenHash string
	AccountID string
	Type      OTPType
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}
