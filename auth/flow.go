package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/provider"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
)

// Dependencies are the collaborators a Flow drives.
type Dependencies struct {
	Provider provider.Client
	Users    users.Store
	Sessions sessions.Store
}

// pendingActivation is a session the provider issued but the process has not
// made active yet, because the user record or the activation itself failed.
type pendingActivation struct {
	name         string
	email        string
	userID       string
	sessionToken string
	synced       bool
}

// Flow runs the sign-in and sign-up pipelines one step at a time. Only one
// operation runs at once; Reset abandons whatever is running.
type Flow struct {
	controller   *Controller
	verification *Verification
	synchronizer *UserSynchronizer
	activator    *Activator
	sessions     sessions.Store
	opts         options

	mu         sync.Mutex
	running    bool
	generation uint64
	pending    *pendingActivation
}

// NewFlow wires the components over deps.
func NewFlow(deps Dependencies, opts ...Option) (*Flow, error) {
	if deps.Provider == nil {
		return nil, errors.New("[NewFlow] provider is required")
	}
	if deps.Users == nil {
		return nil, errors.New("[NewFlow] user store is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("[NewFlow] session store is required")
	}

	controller, err := NewController(deps.Provider, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewFlow]")
	}
	verification, err := NewVerification(deps.Provider, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewFlow]")
	}
	synchronizer, err := NewUserSynchronizer(deps.Users, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewFlow]")
	}
	activator, err := NewActivator(deps.Provider, deps.Sessions, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewFlow]")
	}

	return &Flow{
		controller:   controller,
		verification: verification,
		synchronizer: synchronizer,
		activator:    activator,
		sessions:     deps.Sessions,
		opts:         newOptions(opts),
	}, nil
}

func (f *Flow) begin() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return 0, ErrSubmissionInFlight
	}
	f.running = true
	return f.generation, nil
}

func (f *Flow) end(generation uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation == generation {
		f.running = false
	}
}

func (f *Flow) current(generation uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation == generation
}

// SignIn submits credentials and activates the session the provider issues.
func (f *Flow) SignIn(ctx context.Context, creds Credentials) (sessions.Session, error) {
	generation, err := f.begin()
	if err != nil {
		return sessions.Session{}, err
	}
	defer f.end(generation)

	f.verification.Discard()
	f.clearPending(generation)
	outcome, err := f.controller.Submit(ctx, SignIn, creds)
	if err != nil {
		return sessions.Session{}, err
	}
	if err := f.setPending(generation, &pendingActivation{
		email:        creds.Email,
		sessionToken: outcome.SessionToken,
		synced:       true,
	}); err != nil {
		return sessions.Session{}, err
	}
	return f.activatePending(ctx, generation)
}

// SignUp submits a new account and opens its email-code challenge.
func (f *Flow) SignUp(ctx context.Context, creds Credentials) (Challenge, error) {
	generation, err := f.begin()
	if err != nil {
		return Challenge{}, err
	}
	defer f.end(generation)

	f.verification.Discard()
	f.clearPending(generation)
	outcome, err := f.controller.Submit(ctx, SignUp, creds)
	if err != nil {
		return Challenge{}, err
	}
	if !f.current(generation) {
		return Challenge{}, ErrStaleResponse
	}
	return f.verification.Issue(outcome.Attempt)
}

// SetCode records the code typed so far.
func (f *Flow) SetCode(code string) error {
	return f.verification.SetCode(code)
}

// Verify submits code, or the code recorded by SetCode when code is empty.
// On success the user record is created and then the session activated; if
// either fails the session stays pending for ResumeActivation.
func (f *Flow) Verify(ctx context.Context, code string) (sessions.Session, error) {
	generation, err := f.begin()
	if err != nil {
		return sessions.Session{}, err
	}
	defer f.end(generation)

	if code == "" {
		if challenge, ok := f.verification.Current(); ok {
			code = challenge.Code
		}
	}

	outcome, err := f.verification.SubmitCode(ctx, code)
	if err != nil {
		return sessions.Session{}, err
	}
	if err := f.controller.complete(outcome.AttemptID); err != nil {
		return sessions.Session{}, err
	}

	attempt, _ := f.controller.Current()
	if err := f.setPending(generation, &pendingActivation{
		name:         attempt.Credentials.DisplayName,
		email:        attempt.Credentials.Email,
		userID:       outcome.UserID,
		sessionToken: outcome.SessionToken,
	}); err != nil {
		return sessions.Session{}, err
	}
	return f.activatePending(ctx, generation)
}

// ResumeActivation retries whatever remained of a verified flow: the user
// record if it was not created, then the activation.
func (f *Flow) ResumeActivation(ctx context.Context) (sessions.Session, error) {
	generation, err := f.begin()
	if err != nil {
		return sessions.Session{}, err
	}
	defer f.end(generation)
	return f.activatePending(ctx, generation)
}

func (f *Flow) activatePending(ctx context.Context, generation uint64) (sessions.Session, error) {
	f.mu.Lock()
	if f.pending == nil {
		f.mu.Unlock()
		return sessions.Session{}, ErrNoPendingActivation
	}
	pending := *f.pending
	f.mu.Unlock()

	if !pending.synced {
		if err := f.synchronizer.Sync(ctx, pending.name, pending.email, pending.userID); err != nil {
			return sessions.Session{}, err
		}
		f.mu.Lock()
		if f.generation != generation || f.pending == nil {
			f.mu.Unlock()
			return sessions.Session{}, ErrStaleResponse
		}
		f.pending.synced = true
		f.mu.Unlock()
	}

	if !f.current(generation) {
		return sessions.Session{}, ErrStaleResponse
	}
	if err := f.activator.Bind(ctx, pending.sessionToken); err != nil {
		return sessions.Session{}, err
	}

	// The store is written under f.mu so a Reset cannot slip in between the
	// generation check and the write.
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != generation {
		f.opts.logger.Info().Msg("discarding activation for abandoned flow")
		return sessions.Session{}, ErrStaleResponse
	}
	session := f.activator.Commit(pending.sessionToken, pending.userID)
	f.pending = nil
	return session, nil
}

func (f *Flow) setPending(generation uint64, pending *pendingActivation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != generation {
		return ErrStaleResponse
	}
	f.pending = pending
	return nil
}

func (f *Flow) clearPending(generation uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation == generation {
		f.pending = nil
	}
}

// Reset abandons the attempt, the challenge and any pending activation. A
// running operation finishes with ErrStaleResponse. The active session, if
// any, is left in place.
func (f *Flow) Reset() {
	f.mu.Lock()
	f.generation++
	f.running = false
	f.pending = nil
	f.mu.Unlock()

	f.controller.Discard()
	f.verification.Discard()
	f.opts.logger.Debug().Msg("identity flow reset")
}

// AttemptView is the presentable part of an attempt; the password is omitted.
type AttemptView struct {
	ID     string        `json:"id"`
	Kind   AttemptKind   `json:"kind"`
	Status AttemptStatus `json:"status"`
	Email  string        `json:"email"`
	Name   string        `json:"name,omitempty"`
}

// FlowState is a snapshot of everything a presentation layer renders.
type FlowState struct {
	Attempt           *AttemptView `json:"attempt,omitempty"`
	Challenge         *Challenge   `json:"challenge,omitempty"`
	Busy              bool         `json:"busy"`
	Authenticated     bool         `json:"authenticated"`
	ActivatedAt       *time.Time   `json:"activated_at,omitempty"`
	PendingActivation bool         `json:"pending_activation"`
}

// State returns the current snapshot.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	state := FlowState{
		Busy:              f.running,
		PendingActivation: f.pending != nil,
	}
	f.mu.Unlock()

	if attempt, ok := f.controller.Current(); ok {
		state.Attempt = &AttemptView{
			ID:     attempt.ID,
			Kind:   attempt.Kind,
			Status: attempt.Status,
			Email:  attempt.Credentials.Email,
			Name:   attempt.Credentials.DisplayName,
		}
	}
	if challenge, ok := f.verification.Current(); ok {
		state.Challenge = &challenge
	}
	state.Busy = state.Busy || f.controller.InFlight() || f.verification.InFlight()

	if session, ok := f.sessions.Current(); ok {
		state.Authenticated = true
		state.ActivatedAt = utils.Ptr(session.ActivatedAt)
	}
	return state
}
