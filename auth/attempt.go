package auth

import (
	"strings"
	"time"
)

// AttemptKind distinguishes sign-in from sign-up.
type AttemptKind string

const (
	SignIn AttemptKind = "sign_in"
	SignUp AttemptKind = "sign_up"
)

// AttemptStatus is the local status of an attempt, driven only by provider
// responses.
type AttemptStatus string

const (
	StatusNeedsInput           AttemptStatus = "needs_input"
	StatusRequiresVerification AttemptStatus = "requires_verification"
	StatusComplete             AttemptStatus = "complete"
	StatusFailed               AttemptStatus = "failed"
)

// Credentials are what the user typed. DisplayName is only sent on sign-up.
type Credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"name,omitempty"`
}

// Presence is the only client-side check; the provider decides validity.
func (c Credentials) validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Attempt is one in-flight request to the identity provider. ID is local and
// identifies the attempt for stale-response checks; ProviderAttemptID is
// assigned by the provider once it has created the attempt.
type Attempt struct {
	ID                string
	Kind              AttemptKind
	Credentials       Credentials
	ProviderAttemptID string
	Status            AttemptStatus
	CreatedAt         time.Time
}

// Terminal reports whether the attempt reached complete or failed.
func (a Attempt) Terminal() bool {
	return a.Status == StatusComplete || a.Status == StatusFailed
}

// Outcome is the result of a successful submission. SessionToken is set for
// a completed sign-in; a sign-up outcome carries an attempt that requires
// verification.
type Outcome struct {
	Attempt      Attempt
	SessionToken string
}
