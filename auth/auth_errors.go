package auth

import (
	"errors"
	"fmt"
)

// Guard and validation errors. None of them involve the identity provider.
var (
	ErrMissingCredentials   = errors.New("email and password are required")
	ErrUnsupportedKind      = errors.New("unsupported attempt kind")
	ErrProviderNotReady     = errors.New("identity provider is not ready")
	ErrSubmissionInFlight   = errors.New("a submission is already in flight")
	ErrStaleResponse        = errors.New("response belongs to an abandoned attempt")
	ErrAttemptNotVerifiable = errors.New("attempt does not require verification")
	ErrChallengeExists      = errors.New("verification challenge already issued for this attempt")
	ErrChallengeNotPending  = errors.New("no verification challenge awaiting a code")
	ErrChallengeTerminal    = errors.New("verification challenge already succeeded")
	ErrEmptyCode            = errors.New("verification code is required")
	ErrInvalidTransition    = errors.New("invalid verification state transition")
	ErrNoPendingActivation  = errors.New("no session awaiting activation")
)

// ErrorKind classifies failures that involve the provider or the backend.
type ErrorKind string

const (
	ProviderRejected ErrorKind = "provider_rejected" // credentials or code rejected, message from provider
	IncompleteFlow   ErrorKind = "incomplete_flow"   // provider status this flow does not model
	ChallengeFailed  ErrorKind = "challenge_failed"  // wrong or expired code
	SyncFailed       ErrorKind = "sync_failed"       // backend record creation failed
	Defect           ErrorKind = "defect"            // collaborator broke its response contract
	Unavailable      ErrorKind = "unavailable"       // transport failure without a structured answer
)

// User-facing messages that do not come from the provider.
const (
	verificationFailedMessage = "Verification failed. Please try again."
	signInIncompleteMessage   = "Log in failed. Please try again."
	signUpIncompleteMessage   = "Sign up failed. Please try again."
	syncFailedMessage         = "We could not finish setting up your account. Please try again."
	defectMessage             = "Something went wrong on our side. Please try again later."
	unavailableMessage        = "Unable to reach the sign-in service. Check your connection and try again."
)

// FlowError is a classified failure with a message fit for the user.
type FlowError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrProviderRejected = &FlowError{Kind: ProviderRejected}
	ErrIncompleteFlow   = &FlowError{Kind: IncompleteFlow}
	ErrChallengeFailed  = &FlowError{Kind: ChallengeFailed}
	ErrSyncFailed       = &FlowError{Kind: SyncFailed}
	ErrDefect           = &FlowError{Kind: Defect}
	ErrUnavailable      = &FlowError{Kind: Unavailable}
)

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is matches any FlowError of the same kind.
func (e *FlowError) Is(target error) bool {
	t, ok := target.(*FlowError)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the outermost FlowError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr.Kind, true
	}
	return "", false
}

// UserMessage returns the text to show for err. Every error yields a message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var flowErr *FlowError
	if errors.As(err, &flowErr) && flowErr.Message != "" {
		return flowErr.Message
	}
	return err.Error()
}
