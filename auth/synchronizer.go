package auth

import (
	"context"

	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
)

// UserSynchronizer creates the backend user record for a verified sign-up.
// Duplicate suppression is the backend's job, keyed by provider user id.
type UserSynchronizer struct {
	store users.Store
	opts  options
}

// NewUserSynchronizer creates a synchronizer over the backend store.
func NewUserSynchronizer(store users.Store, opts ...Option) (*UserSynchronizer, error) {
	if store == nil {
		return nil, errors.New("[NewUserSynchronizer] user store is required")
	}
	return &UserSynchronizer{
		store: store,
		opts:  newOptions(opts),
	}, nil
}

// Sync requests creation of the record keyed by providerUserID.
func (s *UserSynchronizer) Sync(ctx context.Context, name, email, providerUserID string) error {
	if providerUserID == "" {
		return defect(s.opts.logger, "Sync", "no provider user id to key the record on")
	}

	record := users.Record{
		Name:           name,
		Email:          email,
		ProviderUserID: providerUserID,
	}
	if err := s.store.CreateUser(ctx, record); err != nil {
		s.opts.logger.Error().
			Err(err).
			Str("provider_user_id", providerUserID).
			Msg("user record sync failed")
		return &FlowError{
			Kind:    SyncFailed,
			Message: syncFailedMessage,
			Err:     errors.Wrap(err, "[UserSynchronizer.Sync] CreateUser"),
		}
	}

	s.opts.logger.Info().Str("provider_user_id", providerUserID).Msg("user record synchronised")
	return nil
}
