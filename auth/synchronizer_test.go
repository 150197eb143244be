package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/provider/providerfake"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/users"
	fakeuserrepo "github.com/jrsteele09/go-auth-client/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestUserSynchronizer_Sync(t *testing.T) {
	ur := fakeuserrepo.NewFakeUserRepo()
	s, err := auth.NewUserSynchronizer(ur, testOptions()...)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Sync(ctx, testName, testEmail, "u_1"))
	require.NoError(t, s.Sync(ctx, testName, testEmail, "u_1"))
	require.Equal(t, []users.Record{{Name: testName, Email: testEmail, ProviderUserID: "u_1"}}, ur.List())

	err = s.Sync(ctx, testName, testEmail, "")
	require.ErrorIs(t, err, auth.ErrDefect)
	require.Len(t, ur.Requests(), 2)

	ur.FailNext(1)
	err = s.Sync(ctx, testName, testEmail, "u_2")
	require.ErrorIs(t, err, auth.ErrSyncFailed)
	require.ErrorIs(t, err, fakeuserrepo.ErrUnavailable)
}

func TestNewUserSynchronizer_Validation(t *testing.T) {
	_, err := auth.NewUserSynchronizer(nil)
	require.Error(t, err)
}

func TestActivator_Activate(t *testing.T) {
	fp := providerfake.NewFakeProvider()
	slot := sessions.NewSlot()
	a, err := auth.NewActivator(fp, slot, testOptions()...)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := a.Activate(ctx, "sess_1", "")
	require.NoError(t, err)
	require.Equal(t, sessions.Session{Token: "sess_1", ActivatedAt: testNow}, first)

	_, err = a.Activate(ctx, "sess_2", "u_1")
	require.NoError(t, err)
	current, ok := slot.Current()
	require.True(t, ok)
	require.Equal(t, "sess_2", current.Token)
	require.Equal(t, "u_1", current.UserID)
	require.Equal(t, []string{"sess_1", "sess_2"}, fp.ActiveSessions())
}

func TestActivator_Failures(t *testing.T) {
	fp := providerfake.NewFakeProvider()
	slot := sessions.NewSlot()
	a, err := auth.NewActivator(fp, slot, testOptions()...)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.Activate(ctx, "", "u_1")
	require.ErrorIs(t, err, auth.ErrDefect)
	require.Zero(t, fp.Calls(providerfake.CallSetActiveSession))

	fp.OnSetActiveSession = func(string) error {
		return providerfake.Rejection(http.StatusNotFound, "resource_not_found", "Session not found")
	}
	_, err = a.Activate(ctx, "sess_1", "")
	require.ErrorIs(t, err, auth.ErrProviderRejected)
	require.Equal(t, "Session not found", auth.UserMessage(err))

	_, ok := slot.Current()
	require.False(t, ok)
}

func TestNewActivator_Validation(t *testing.T) {
	_, err := auth.NewActivator(nil, sessions.NewSlot())
	require.Error(t, err)
	_, err = auth.NewActivator(providerfake.NewFakeProvider(), nil)
	require.Error(t, err)
}
