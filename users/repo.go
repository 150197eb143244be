package users

import "context"

// Store is the backend user store. CreateUser must be idempotent on
// Record.ProviderUserID: repeating it for an existing user is a success and
// never creates a duplicate.
type Store interface {
	CreateUser(ctx context.Context, record Record) error
}
