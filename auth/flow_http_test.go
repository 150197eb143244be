package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/provider/fapi"
	"github.com/jrsteele09/go-auth-client/sessions"
	fakeuserrepo "github.com/jrsteele09/go-auth-client/users/repofake"
	"github.com/stretchr/testify/require"
)

// newHTTPFlow runs a Flow against a loaded frontend API client whose sign-in
// endpoint answers with signInStatus and signInBody.
func newHTTPFlow(t *testing.T, signInStatus int, signInBody string) (*auth.Flow, *sessions.Slot) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/environment":
			_, _ = w.Write([]byte(`{"response":{}}`))
		case "/v1/client/sign_ins":
			w.WriteHeader(signInStatus)
			_, _ = w.Write([]byte(signInBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := fapi.New(srv.URL, "", 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, client.Load(context.Background()))

	slot := sessions.NewSlot()
	flow, err := auth.NewFlow(auth.Dependencies{
		Provider: client,
		Users:    fakeuserrepo.NewFakeUserRepo(),
		Sessions: slot,
	}, testOptions()...)
	require.NoError(t, err)
	return flow, slot
}

func TestFlow_HTTPProviderResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    auth.ErrorKind
		message string
	}{
		{
			name:    "null response object",
			status:  http.StatusOK,
			body:    `{"response":null}`,
			kind:    auth.Defect,
			message: "Something went wrong on our side. Please try again later.",
		},
		{
			name:    "undecodable success body",
			status:  http.StatusOK,
			body:    `<html>ok</html>`,
			kind:    auth.Defect,
			message: "Something went wrong on our side. Please try again later.",
		},
		{
			name:    "rejection",
			status:  http.StatusUnprocessableEntity,
			body:    `{"errors":[{"code":"form_identifier_not_found","message":"not found","long_message":"Couldn't find your account."}]}`,
			kind:    auth.ProviderRejected,
			message: "Couldn't find your account.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, slot := newHTTPFlow(t, tt.status, tt.body)

			_, err := flow.SignIn(context.Background(), auth.Credentials{Email: testEmail, Password: testPassword})
			kind, ok := auth.KindOf(err)
			require.True(t, ok)
			require.Equal(t, tt.kind, kind)
			require.Equal(t, tt.message, auth.UserMessage(err))

			_, ok = slot.Current()
			require.False(t, ok)
		})
	}
}

func TestFlow_HTTPProviderUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{}}`))
	}))
	client, err := fapi.New(srv.URL, "", time.Second)
	require.NoError(t, err)
	require.NoError(t, client.Load(context.Background()))
	srv.Close()

	flow, err := auth.NewFlow(auth.Dependencies{
		Provider: client,
		Users:    fakeuserrepo.NewFakeUserRepo(),
		Sessions: sessions.NewSlot(),
	}, testOptions()...)
	require.NoError(t, err)

	_, err = flow.SignIn(context.Background(), auth.Credentials{Email: testEmail, Password: testPassword})
	require.ErrorIs(t, err, auth.ErrUnavailable)
}
