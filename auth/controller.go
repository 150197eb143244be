package auth

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-client/provider"
	"github.com/pkg/errors"
)

// Controller submits credentials to the identity provider and owns the
// resulting Attempt for its lifetime.
type Controller struct {
	provider provider.Client
	opts     options

	mu       sync.Mutex
	attempt  *Attempt
	inFlight *Attempt // attempt whose provider call is outstanding
}

// NewController creates a Controller. Provider is required.
func NewController(p provider.Client, opts ...Option) (*Controller, error) {
	if p == nil {
		return nil, errors.New("[NewController] provider is required")
	}
	return &Controller{
		provider: p,
		opts:     newOptions(opts),
	}, nil
}

// submission is what a provider round trip resolved to.
type submission struct {
	providerAttemptID string
	status            AttemptStatus
	sessionToken      string
	err               error
}

// Submit starts a new attempt. A sign-in resolves to a session token; a
// sign-up resolves to an attempt awaiting email verification, the provider
// having been asked to send the code. Nothing is retried.
func (c *Controller) Submit(ctx context.Context, kind AttemptKind, creds Credentials) (Outcome, error) {
	if kind != SignIn && kind != SignUp {
		return Outcome{}, errors.Wrapf(ErrUnsupportedKind, "[Controller.Submit] %q", kind)
	}
	if err := creds.validate(); err != nil {
		return Outcome{}, err
	}
	if !provider.IsLoaded(c.provider) {
		return Outcome{}, ErrProviderNotReady
	}

	c.mu.Lock()
	if c.inFlight != nil {
		c.mu.Unlock()
		return Outcome{}, ErrSubmissionInFlight
	}
	attempt := &Attempt{
		ID:          c.opts.newID(),
		Kind:        kind,
		Credentials: creds,
		Status:      StatusNeedsInput,
		CreatedAt:   c.opts.nowTime(),
	}
	c.attempt = attempt
	c.inFlight = attempt
	c.mu.Unlock()

	logger := c.opts.logger.With().Str("attempt_id", attempt.ID).Str("kind", string(kind)).Logger()
	logger.Debug().Msg("submitting credentials")

	var result submission
	switch kind {
	case SignIn:
		result = c.signIn(ctx, creds)
	case SignUp:
		result = c.signUp(ctx, creds)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight == attempt {
		c.inFlight = nil
	}
	if c.attempt != attempt {
		logger.Info().Msg("discarding response for abandoned attempt")
		return Outcome{}, ErrStaleResponse
	}

	attempt.ProviderAttemptID = result.providerAttemptID
	attempt.Status = result.status
	if result.err != nil {
		return Outcome{}, result.err
	}
	return Outcome{Attempt: *attempt, SessionToken: result.sessionToken}, nil
}

func (c *Controller) signIn(ctx context.Context, creds Credentials) submission {
	const op = "CreateSignIn"
	logger := c.opts.logger

	res, err := c.provider.CreateSignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		return submission{status: StatusFailed, err: normalizeProviderError(logger, op, err)}
	}
	if res == nil {
		return submission{status: StatusFailed, err: defect(logger, op, "empty sign-in response")}
	}

	if res.Status != provider.StatusComplete {
		logger.Debug().
			Str("provider_attempt_id", res.ID).
			Str("provider_status", string(res.Status)).
			Msg("sign-in did not complete")
		return submission{
			providerAttemptID: res.ID,
			status:            StatusFailed,
			err:               &FlowError{Kind: IncompleteFlow, Message: signInIncompleteMessage, Err: errors.Errorf("provider status %q", res.Status)},
		}
	}
	if res.CreatedSessionID == "" {
		return submission{
			providerAttemptID: res.ID,
			status:            StatusFailed,
			err:               defect(logger, op, "sign-in %s complete without a session id", res.ID),
		}
	}

	return submission{
		providerAttemptID: res.ID,
		status:            StatusComplete,
		sessionToken:      res.CreatedSessionID,
	}
}

// signUp creates the provider sign-up and asks for the email code; the two
// requests form one submission and dispatch exactly one email.
func (c *Controller) signUp(ctx context.Context, creds Credentials) submission {
	logger := c.opts.logger

	created, err := c.provider.CreateSignUp(ctx, creds.Email, creds.Password, creds.DisplayName)
	if err != nil {
		return submission{status: StatusFailed, err: normalizeProviderError(logger, "CreateSignUp", err)}
	}
	if created == nil || created.ID == "" {
		return submission{status: StatusFailed, err: defect(logger, "CreateSignUp", "sign-up response without an id")}
	}

	prepared, err := c.provider.PrepareEmailVerification(ctx, created.ID, provider.StrategyEmailCode)
	if err != nil {
		return submission{
			providerAttemptID: created.ID,
			status:            StatusFailed,
			err:               normalizeProviderError(logger, "PrepareEmailVerification", err),
		}
	}
	if prepared == nil {
		return submission{
			providerAttemptID: created.ID,
			status:            StatusFailed,
			err:               defect(logger, "PrepareEmailVerification", "empty prepare response for %s", created.ID),
		}
	}

	if prepared.Status != provider.StatusMissingRequirements {
		logger.Debug().
			Str("provider_attempt_id", created.ID).
			Str("provider_status", string(prepared.Status)).
			Msg("sign-up is not awaiting verification")
		return submission{
			providerAttemptID: created.ID,
			status:            StatusFailed,
			err:               &FlowError{Kind: IncompleteFlow, Message: signUpIncompleteMessage, Err: errors.Errorf("provider status %q", prepared.Status)},
		}
	}

	return submission{
		providerAttemptID: created.ID,
		status:            StatusRequiresVerification,
	}
}

// Current returns a copy of the attempt the controller owns, if any.
func (c *Controller) Current() (Attempt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt == nil {
		return Attempt{}, false
	}
	return *c.attempt, true
}

// InFlight reports whether a submission is awaiting the provider.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight != nil
}

// Discard drops the current attempt. A response still outstanding for it
// will be discarded when it arrives.
func (c *Controller) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempt = nil
	c.inFlight = nil
}

// complete records the provider's verdict that attemptID finished, reported
// through the verification step.
func (c *Controller) complete(attemptID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt == nil || c.attempt.ID != attemptID {
		return ErrStaleResponse
	}
	c.attempt.Status = StatusComplete
	return nil
}
