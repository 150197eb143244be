package providerfake

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-auth-client/provider"
)

var _ provider.Client = (*FakeProvider)(nil)
var _ provider.Readiness = (*FakeProvider)(nil)

const (
	CallCreateSignIn             = "CreateSignIn"
	CallCreateSignUp             = "CreateSignUp"
	CallPrepareEmailVerification = "PrepareEmailVerification"
	CallAttemptEmailVerification = "AttemptEmailVerification"
	CallSetActiveSession         = "SetActiveSession"
)

// FakeProvider is a scripted identity provider. Each On* hook decides the
// response for its call; unset hooks fall back to a happy path.
type FakeProvider struct {
	OnCreateSignIn             func(identifier, password string) (*provider.SignInAttempt, error)
	OnCreateSignUp             func(emailAddress, password, firstName string) (*provider.SignUpAttempt, error)
	OnPrepareEmailVerification func(signUpID string, strategy provider.Strategy) (*provider.SignUpAttempt, error)
	OnAttemptEmailVerification func(signUpID, code string) (*provider.SignUpAttempt, error)
	OnSetActiveSession         func(sessionID string) error

	lock           sync.Mutex
	calls          map[string]int
	codes          []string
	activeSessions []string
	notLoaded      bool
	gate           chan struct{}
	entered        chan string
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		calls: make(map[string]int),
	}
}

// SetLoaded toggles the readiness reported by Loaded.
func (fp *FakeProvider) SetLoaded(loaded bool) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.notLoaded = !loaded
}

func (fp *FakeProvider) Loaded() bool {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return !fp.notLoaded
}

// Hold makes every subsequent call block until the returned release func is
// called. Each blocked call first announces its name on Entered.
func (fp *FakeProvider) Hold() (release func()) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	gate := make(chan struct{})
	fp.gate = gate
	fp.entered = make(chan string, 16)
	var once sync.Once
	return func() {
		once.Do(func() {
			fp.lock.Lock()
			fp.gate = nil
			fp.lock.Unlock()
			close(gate)
		})
	}
}

// Entered receives the name of each call that reached a Hold gate.
func (fp *FakeProvider) Entered() <-chan string {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return fp.entered
}

// Calls returns how many times the named call was made.
func (fp *FakeProvider) Calls(name string) int {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return fp.calls[name]
}

// Codes returns every code passed to AttemptEmailVerification, in order.
func (fp *FakeProvider) Codes() []string {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return append([]string(nil), fp.codes...)
}

// ActiveSessions returns every session id passed to SetActiveSession, in order.
func (fp *FakeProvider) ActiveSessions() []string {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return append([]string(nil), fp.activeSessions...)
}

func (fp *FakeProvider) enter(ctx context.Context, name string) error {
	fp.lock.Lock()
	fp.calls[name]++
	gate, entered := fp.gate, fp.entered
	fp.lock.Unlock()

	if gate == nil {
		return nil
	}
	entered <- name
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (fp *FakeProvider) CreateSignIn(ctx context.Context, identifier, password string) (*provider.SignInAttempt, error) {
	if err := fp.enter(ctx, CallCreateSignIn); err != nil {
		return nil, err
	}
	if fp.OnCreateSignIn != nil {
		return fp.OnCreateSignIn(identifier, password)
	}
	return &provider.SignInAttempt{
		ID:               "sia_" + identifier,
		Status:           provider.StatusComplete,
		CreatedSessionID: "sess_" + identifier,
	}, nil
}

func (fp *FakeProvider) CreateSignUp(ctx context.Context, emailAddress, password, firstName string) (*provider.SignUpAttempt, error) {
	if err := fp.enter(ctx, CallCreateSignUp); err != nil {
		return nil, err
	}
	if fp.OnCreateSignUp != nil {
		return fp.OnCreateSignUp(emailAddress, password, firstName)
	}
	return &provider.SignUpAttempt{
		ID:               "sua_" + emailAddress,
		Status:           provider.StatusMissingRequirements,
		EmailAddress:     emailAddress,
		FirstName:        firstName,
		UnverifiedFields: []string{"email_address"},
	}, nil
}

func (fp *FakeProvider) PrepareEmailVerification(ctx context.Context, signUpID string, strategy provider.Strategy) (*provider.SignUpAttempt, error) {
	if err := fp.enter(ctx, CallPrepareEmailVerification); err != nil {
		return nil, err
	}
	if fp.OnPrepareEmailVerification != nil {
		return fp.OnPrepareEmailVerification(signUpID, strategy)
	}
	if strategy != provider.StrategyEmailCode {
		return nil, fmt.Errorf("fake provider: unsupported strategy %q", strategy)
	}
	return &provider.SignUpAttempt{
		ID:               signUpID,
		Status:           provider.StatusMissingRequirements,
		UnverifiedFields: []string{"email_address"},
	}, nil
}

func (fp *FakeProvider) AttemptEmailVerification(ctx context.Context, signUpID, code string) (*provider.SignUpAttempt, error) {
	fp.lock.Lock()
	fp.codes = append(fp.codes, code)
	fp.lock.Unlock()

	if err := fp.enter(ctx, CallAttemptEmailVerification); err != nil {
		return nil, err
	}
	if fp.OnAttemptEmailVerification != nil {
		return fp.OnAttemptEmailVerification(signUpID, code)
	}
	return &provider.SignUpAttempt{
		ID:               signUpID,
		Status:           provider.StatusComplete,
		CreatedUserID:    "user_" + signUpID,
		CreatedSessionID: "sess_" + signUpID,
	}, nil
}

func (fp *FakeProvider) SetActiveSession(ctx context.Context, sessionID string) error {
	if err := fp.enter(ctx, CallSetActiveSession); err != nil {
		return err
	}
	if fp.OnSetActiveSession != nil {
		if err := fp.OnSetActiveSession(sessionID); err != nil {
			return err
		}
	}
	fp.lock.Lock()
	fp.activeSessions = append(fp.activeSessions, sessionID)
	fp.lock.Unlock()
	return nil
}

// Rejection builds a structured provider error with a single entry.
func Rejection(status int, code, longMessage string) *provider.APIError {
	return &provider.APIError{
		HTTPStatus: status,
		Errors: []provider.ErrorEntry{{
			Code:        code,
			Message:     code,
			LongMessage: longMessage,
		}},
	}
}
