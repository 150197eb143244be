// Package provider defines the contract of the external identity provider the
// client drives: sign-in and sign-up attempts, email-code verification and
// session activation.
package provider

import "context"

// Status is the state the provider reports for a sign-in or sign-up attempt.
type Status string

const (
	StatusComplete            Status = "complete"
	StatusNeedsIdentifier     Status = "needs_identifier"
	StatusNeedsFirstFactor    Status = "needs_first_factor"
	StatusNeedsSecondFactor   Status = "needs_second_factor"
	StatusNeedsNewPassword    Status = "needs_new_password"
	StatusMissingRequirements Status = "missing_requirements"
	StatusAbandoned           Status = "abandoned"
)

// Strategy selects how a verification is delivered and checked.
type Strategy string

const (
	StrategyEmailCode Strategy = "email_code"
	StrategyPassword  Strategy = "password"
)

// SignInAttempt is the provider's view of a sign-in.
type SignInAttempt struct {
	ID               string `json:"id"`
	Status           Status `json:"status"`
	CreatedSessionID string `json:"created_session_id"`
}

// SignUpAttempt is the provider's view of a sign-up.
type SignUpAttempt struct {
	ID               string   `json:"id"`
	Status           Status   `json:"status"`
	EmailAddress     string   `json:"email_address"`
	FirstName        string   `json:"first_name"`
	UnverifiedFields []string `json:"unverified_fields"`
	CreatedSessionID string   `json:"created_session_id"`
	CreatedUserID    string   `json:"created_user_id"`
}

// Client is the identity provider as consumed by the orchestrator. Every call
// is a network round trip; failures reported by the provider arrive as
// *APIError.
type Client interface {
	CreateSignIn(ctx context.Context, identifier, password string) (*SignInAttempt, error)
	CreateSignUp(ctx context.Context, emailAddress, password, firstName string) (*SignUpAttempt, error)
	PrepareEmailVerification(ctx context.Context, signUpID string, strategy Strategy) (*SignUpAttempt, error)
	AttemptEmailVerification(ctx context.Context, signUpID, code string) (*SignUpAttempt, error)
	SetActiveSession(ctx context.Context, sessionID string) error
}

// Readiness is implemented by clients that need to load before accepting
// requests.
type Readiness interface {
	Loaded() bool
}

// IsLoaded reports whether c is ready. Clients without a readiness notion are
// always ready.
func IsLoaded(c Client) bool {
	if r, ok := c.(Readiness); ok {
		return r.Loaded()
	}
	return true
}
