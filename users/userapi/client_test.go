package userapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/users"
	"github.com/jrsteele09/go-auth-client/users/userapi"
	"github.com/stretchr/testify/require"
)

// backend mimics an idempotent create-user endpoint.
type backend struct {
	mu      sync.Mutex
	records map[string]users.Record
	auth    []string
	keys    []string
	fail    bool
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{records: make(map[string]users.Record)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/user" {
			http.NotFound(w, r)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		b.keys = append(b.keys, r.Header.Get("Idempotency-Key"))
		if b.fail {
			http.Error(w, "database offline", http.StatusServiceUnavailable)
			return
		}
		var rec users.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, ok := b.records[rec.ProviderUserID]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		b.records[rec.ProviderUserID] = rec
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) snapshot() (map[string]users.Record, []string, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	records := make(map[string]users.Record, len(b.records))
	for k, v := range b.records {
		records[k] = v
	}
	return records, append([]string(nil), b.auth...), append([]string(nil), b.keys...)
}

func TestClient_CreateUser(t *testing.T) {
	b, srv := newBackend(t)
	client, err := userapi.New(srv.URL+"/", "backend-token", time.Second)
	require.NoError(t, err)

	rec := users.Record{Name: "A", Email: "a@x.com", ProviderUserID: "u_1"}

	t.Run("creates", func(t *testing.T) {
		require.NoError(t, client.CreateUser(context.Background(), rec))
		records, _, _ := b.snapshot()
		require.Equal(t, rec, records["u_1"])
	})

	t.Run("repeat is idempotent", func(t *testing.T) {
		require.NoError(t, client.CreateUser(context.Background(), rec))
		records, _, _ := b.snapshot()
		require.Len(t, records, 1)
	})

	t.Run("headers", func(t *testing.T) {
		_, auth, keys := b.snapshot()
		require.Equal(t, "Bearer backend-token", auth[0])
		require.Equal(t, "u_1", keys[0])
	})

	t.Run("server failure", func(t *testing.T) {
		b.mu.Lock()
		b.fail = true
		b.mu.Unlock()

		err := client.CreateUser(context.Background(), rec)
		require.Error(t, err)
		var statusErr *userapi.StatusError
		require.True(t, errors.As(err, &statusErr))
		require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
		require.Equal(t, "database offline", statusErr.Body)
	})

	t.Run("invalid record never hits the wire", func(t *testing.T) {
		_, _, before := b.snapshot()
		err := client.CreateUser(context.Background(), users.Record{Email: "a@x.com"})
		require.Error(t, err)
		_, _, after := b.snapshot()
		require.Len(t, after, len(before))
	})
}

func TestNew_Validation(t *testing.T) {
	_, err := userapi.New(" ", "", time.Second)
	require.Error(t, err)
}
