package auth

import (
	"context"

	"github.com/jrsteele09/go-auth-client/provider"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/pkg/errors"
)

// Activator binds a provider session to the process. It is the only writer
// of the session store; after Activate returns the user counts as signed in.
type Activator struct {
	provider provider.Client
	store    sessions.Store
	opts     options
}

// NewActivator creates an Activator writing to store.
func NewActivator(p provider.Client, store sessions.Store, opts ...Option) (*Activator, error) {
	if p == nil {
		return nil, errors.New("[NewActivator] provider is required")
	}
	if store == nil {
		return nil, errors.New("[NewActivator] session store is required")
	}
	return &Activator{
		provider: p,
		store:    store,
		opts:     newOptions(opts),
	}, nil
}

// Activate makes token the process session, superseding any prior one. The
// token is not inspected; the provider issued it. userID may be empty.
func (a *Activator) Activate(ctx context.Context, token, userID string) (sessions.Session, error) {
	if err := a.Bind(ctx, token); err != nil {
		return sessions.Session{}, err
	}
	return a.Commit(token, userID), nil
}

// Bind asks the provider to make token its active session. The store is
// not touched; Commit does that once the caller knows the result is current.
func (a *Activator) Bind(ctx context.Context, token string) error {
	if token == "" {
		return defect(a.opts.logger, "Activate", "no session token to activate")
	}
	if err := a.provider.SetActiveSession(ctx, token); err != nil {
		return normalizeProviderError(a.opts.logger, "SetActiveSession", err)
	}
	return nil
}

// Commit writes a bound session to the store.
func (a *Activator) Commit(token, userID string) sessions.Session {
	session := sessions.Session{
		Token:       token,
		UserID:      userID,
		ActivatedAt: a.opts.nowTime(),
	}
	if previous := a.store.Replace(session); previous != nil {
		a.opts.logger.Info().Msg("superseding previously active session")
	}
	a.opts.logger.Info().Str("user_id", userID).Msg("session activated")
	return session
}
