package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/provider"
	"github.com/pkg/errors"
)

// ChallengeState is the lifecycle of an email-code challenge.
type ChallengeState string

const (
	StateUnstarted ChallengeState = "unstarted"
	StatePending   ChallengeState = "pending"
	StateSuccess   ChallengeState = "success"
	StateFailed    ChallengeState = "failed"
)

// challengeTransitions lists the allowed moves; success has none.
var challengeTransitions = map[ChallengeState][]ChallengeState{
	StateUnstarted: {StatePending},
	StatePending:   {StateSuccess, StateFailed},
	StateFailed:    {StatePending},
}

// Challenge is the email-code step of a sign-up attempt. AttemptID refers
// back to the attempt that spawned it without owning it.
type Challenge struct {
	ID                string         `json:"id"`
	AttemptID         string         `json:"attempt_id"`
	ProviderAttemptID string         `json:"-"`
	State             ChallengeState `json:"state"`
	Code              string         `json:"code"`
	Error             string         `json:"error,omitempty"`
	Attempts          int            `json:"attempts"`
	IssuedAt          time.Time      `json:"issued_at"`
}

func (c *Challenge) transition(to ChallengeState) error {
	for _, allowed := range challengeTransitions[c.State] {
		if allowed == to {
			c.State = to
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidTransition, "%s -> %s", c.State, to)
}

// ChallengeOutcome is what a successful verification yields.
type ChallengeOutcome struct {
	ChallengeID  string
	AttemptID    string
	UserID       string
	SessionToken string
}

// Verification owns the verification challenge of the current sign-up.
type Verification struct {
	provider provider.Client
	opts     options

	mu         sync.Mutex
	challenge  *Challenge
	submitting *Challenge // challenge whose code is with the provider
}

// NewVerification creates the challenge state machine. Provider is required.
func NewVerification(p provider.Client, opts ...Option) (*Verification, error) {
	if p == nil {
		return nil, errors.New("[NewVerification] provider is required")
	}
	return &Verification{
		provider: p,
		opts:     newOptions(opts),
	}, nil
}

// Issue opens the challenge for an attempt awaiting verification. The email
// was already sent when the attempt was submitted. A challenge belonging to
// another attempt is superseded.
func (v *Verification) Issue(attempt Attempt) (Challenge, error) {
	if attempt.Kind != SignUp || attempt.Status != StatusRequiresVerification {
		return Challenge{}, ErrAttemptNotVerifiable
	}
	if attempt.ProviderAttemptID == "" {
		return Challenge{}, defect(v.opts.logger, "Issue", "attempt %s has no provider attempt id", attempt.ID)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.challenge != nil && v.challenge.AttemptID == attempt.ID {
		return Challenge{}, ErrChallengeExists
	}

	challenge := &Challenge{
		ID:                v.opts.newID(),
		AttemptID:         attempt.ID,
		ProviderAttemptID: attempt.ProviderAttemptID,
		State:             StateUnstarted,
		IssuedAt:          v.opts.nowTime(),
	}
	if err := challenge.transition(StatePending); err != nil {
		return Challenge{}, err
	}
	v.challenge = challenge
	v.submitting = nil

	v.opts.logger.Debug().
		Str("challenge_id", challenge.ID).
		Str("attempt_id", attempt.ID).
		Msg("verification challenge issued")
	return *challenge, nil
}

// SetCode stores the code as the user types it.
func (v *Verification) SetCode(code string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.acceptingCode(); err != nil {
		return err
	}
	v.challenge.Code = code
	return nil
}

func (v *Verification) acceptingCode() error {
	if v.challenge == nil {
		return ErrChallengeNotPending
	}
	switch v.challenge.State {
	case StatePending, StateFailed:
		return nil
	case StateSuccess:
		return ErrChallengeTerminal
	default:
		return ErrChallengeNotPending
	}
}

// SubmitCode asks the provider to verify code. It is accepted while the
// challenge is pending, or failed (which re-enters pending). A non-complete
// status fails the challenge with a fixed message; a provider error fails it
// with the provider's own message.
func (v *Verification) SubmitCode(ctx context.Context, code string) (ChallengeOutcome, error) {
	v.mu.Lock()
	if err := v.acceptingCode(); err != nil {
		v.mu.Unlock()
		return ChallengeOutcome{}, err
	}
	if code == "" {
		v.mu.Unlock()
		return ChallengeOutcome{}, ErrEmptyCode
	}
	challenge := v.challenge
	if v.submitting == challenge {
		v.mu.Unlock()
		return ChallengeOutcome{}, ErrSubmissionInFlight
	}
	if challenge.State == StateFailed {
		if err := challenge.transition(StatePending); err != nil {
			v.mu.Unlock()
			return ChallengeOutcome{}, err
		}
	}
	challenge.Code = code
	challenge.Error = ""
	challenge.Attempts++
	v.submitting = challenge
	signUpID := challenge.ProviderAttemptID
	logger := v.opts.logger.With().Str("challenge_id", challenge.ID).Int("submission", challenge.Attempts).Logger()
	v.mu.Unlock()

	res, err := v.provider.AttemptEmailVerification(ctx, signUpID, code)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.submitting == challenge {
		v.submitting = nil
	}
	if v.challenge != challenge {
		logger.Info().Msg("discarding verification response for abandoned challenge")
		return ChallengeOutcome{}, ErrStaleResponse
	}

	if err != nil {
		cause := normalizeProviderError(logger, "AttemptEmailVerification", err)
		failure := cause
		if cause.Kind == ProviderRejected {
			failure = &FlowError{Kind: ChallengeFailed, Message: cause.Message, Err: cause}
		}
		return ChallengeOutcome{}, v.fail(challenge, failure)
	}
	if res == nil {
		return ChallengeOutcome{}, v.fail(challenge, defect(logger, "AttemptEmailVerification", "empty verification response"))
	}

	if res.Status != provider.StatusComplete {
		logger.Debug().Str("provider_status", string(res.Status)).Msg("verification did not complete")
		return ChallengeOutcome{}, v.fail(challenge, &FlowError{
			Kind:    ChallengeFailed,
			Message: verificationFailedMessage,
			Err:     errors.Errorf("provider status %q", res.Status),
		})
	}
	if res.CreatedUserID == "" || res.CreatedSessionID == "" {
		return ChallengeOutcome{}, v.fail(challenge, defect(logger, "AttemptEmailVerification",
			"verification of %s complete without user id or session id", res.ID))
	}

	if err := challenge.transition(StateSuccess); err != nil {
		return ChallengeOutcome{}, err
	}
	logger.Debug().Str("user_id", res.CreatedUserID).Msg("email verified")

	return ChallengeOutcome{
		ChallengeID:  challenge.ID,
		AttemptID:    challenge.AttemptID,
		UserID:       res.CreatedUserID,
		SessionToken: res.CreatedSessionID,
	}, nil
}

// fail moves the challenge to failed with the error's user message.
func (v *Verification) fail(challenge *Challenge, flowErr *FlowError) error {
	if err := challenge.transition(StateFailed); err != nil {
		return err
	}
	challenge.Error = flowErr.Message
	return flowErr
}

// Current returns a copy of the challenge, if one was issued.
func (v *Verification) Current() (Challenge, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.challenge == nil {
		return Challenge{}, false
	}
	return *v.challenge, true
}

// InFlight reports whether a code is awaiting the provider.
func (v *Verification) InFlight() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.submitting != nil
}

// Discard drops the challenge; an outstanding verification becomes stale.
func (v *Verification) Discard() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.challenge = nil
	v.submitting = nil
}
