package fakeuserrepo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jrsteele09/go-auth-client/users"
)

var _ users.Store = (*FakeUserRepo)(nil)

// ErrUnavailable is returned while the fake is set to fail.
var ErrUnavailable = errors.New("user store unavailable")

// FakeUserRepo is an in-memory backend honouring the idempotency contract.
type FakeUserRepo struct {
	users    map[string]users.Record // provider user id to record
	requests []users.Record
	failures int
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[string]users.Record),
	}
}

// FailNext makes the next n CreateUser calls fail with ErrUnavailable.
func (ur *FakeUserRepo) FailNext(n int) {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	ur.failures = n
}

func (ur *FakeUserRepo) CreateUser(ctx context.Context, record users.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return err
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()

	ur.requests = append(ur.requests, record)
	if ur.failures > 0 {
		ur.failures--
		return ErrUnavailable
	}
	if _, ok := ur.users[record.ProviderUserID]; ok {
		return nil
	}
	ur.users[record.ProviderUserID] = record
	return nil
}

// Requests returns every CreateUser call received, including failed ones.
func (ur *FakeUserRepo) Requests() []users.Record {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return append([]users.Record(nil), ur.requests...)
}

// List returns the stored records ordered by provider user id.
func (ur *FakeUserRepo) List() []users.Record {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	records := make([]users.Record, 0, len(ur.users))
	for _, r := range ur.users {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ProviderUserID < records[j].ProviderUserID
	})
	return records
}
