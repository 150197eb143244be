package users

import (
	"strings"

	"github.com/jrsteele09/go-auth-client/internal/errors"
)

// Record is the backend's projection of a user created from a completed
// sign-up. ProviderUserID is the idempotency key.
type Record struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProviderUserID string `json:"provider_user_id"`
}

// Validate checks that the idempotency key and email are present.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ProviderUserID) == "" {
		return errors.Wrapf(errors.ErrMissingField, "provider user id")
	}
	if strings.TrimSpace(r.Email) == "" {
		return errors.Wrapf(errors.ErrMissingField, "email")
	}
	return nil
}
