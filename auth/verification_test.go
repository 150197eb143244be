package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/provider"
	"github.com/jrsteele09/go-auth-client/provider/providerfake"
	"github.com/stretchr/testify/require"
)

func verifiableAttempt() auth.Attempt {
	return auth.Attempt{
		ID:                "local-attempt",
		Kind:              auth.SignUp,
		ProviderAttemptID: "sua_1",
		Status:            auth.StatusRequiresVerification,
	}
}

func newVerification(t *testing.T, fp *providerfake.FakeProvider) *auth.Verification {
	t.Helper()
	v, err := auth.NewVerification(fp, testOptions()...)
	require.NoError(t, err)
	return v
}

func TestVerification_Issue(t *testing.T) {
	v := newVerification(t, providerfake.NewFakeProvider())

	signIn := verifiableAttempt()
	signIn.Kind = auth.SignIn
	_, err := v.Issue(signIn)
	require.ErrorIs(t, err, auth.ErrAttemptNotVerifiable)

	failed := verifiableAttempt()
	failed.Status = auth.StatusFailed
	_, err = v.Issue(failed)
	require.ErrorIs(t, err, auth.ErrAttemptNotVerifiable)

	noProviderID := verifiableAttempt()
	noProviderID.ProviderAttemptID = ""
	_, err = v.Issue(noProviderID)
	require.ErrorIs(t, err, auth.ErrDefect)

	challenge, err := v.Issue(verifiableAttempt())
	require.NoError(t, err)
	require.Equal(t, auth.StatePending, challenge.State)
	require.Equal(t, "local-attempt", challenge.AttemptID)
	require.Equal(t, testNow, challenge.IssuedAt)

	_, err = v.Issue(verifiableAttempt())
	require.ErrorIs(t, err, auth.ErrChallengeExists)
}

func TestVerification_SubmitBeforeIssue(t *testing.T) {
	fp := providerfake.NewFakeProvider()
	v := newVerification(t, fp)

	_, err := v.SubmitCode(context.Background(), testCode)
	require.ErrorIs(t, err, auth.ErrChallengeNotPending)
	require.Zero(t, fp.Calls(providerfake.CallAttemptEmailVerification))
}

func TestVerification_EmptyCode(t *testing.T) {
	fp := providerfake.NewFakeProvider()
	v := newVerification(t, fp)
	_, err := v.Issue(verifiableAttempt())
	require.NoError(t, err)

	_, err = v.SubmitCode(context.Background(), "")
	require.ErrorIs(t, err, auth.ErrEmptyCode)
	require.Zero(t, fp.Calls(providerfake.CallAttemptEmailVerification))

	challenge, _ := v.Current()
	require.Equal(t, auth.StatePending, challenge.State)
	require.Zero(t, challenge.Attempts)
}

func TestVerification_SuccessIsTerminal(t *testing.T) {
	fp := providerfake.NewFakeProvider()
	v := newVerification(t, fp)
	_, err := v.Issue(verifiableAttempt())
	require.NoError(t, err)
	ctx := context.Background()

	outcome, err := v.SubmitCode(ctx, testCode)
	require.NoError(t, err)
	require.Equal(t, "user_sua_1", outcome.UserID)
	require.Equal(t, "sess_sua_1", outcome.SessionToken)
	require.Equal(t, "local-attempt", outcome.AttemptID)

	_, err = v.SubmitCode(ctx, testCode)
	require.ErrorIs(t, err, auth.ErrChallengeTerminal)
	require.ErrorIs(t, v.SetCode("1"), auth.ErrChallengeTerminal)
	require.Equal(t, 1, fp.Calls(providerfake.CallAttemptEmailVerification))
}

func TestVerification_ProviderErrorFailsChallenge(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    auth.ErrorKind
		message string
	}{
		{
			name:    "rejected code",
			err:     providerfake.Rejection(http.StatusUnprocessableEntity, "form_code_incorrect", "Incorrect code"),
			kind:    auth.ChallengeFailed,
			message: "Incorrect code",
		},
		{
			name:    "no long message",
			err:     &provider.APIError{HTTPStatus: http.StatusInternalServerError},
			kind:    auth.Defect,
			message: "Something went wrong on our side. Please try again later.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := providerfake.NewFakeProvider()
			fp.OnAttemptEmailVerification = func(string, string) (*provider.SignUpAttempt, error) {
				return nil, tt.err
			}
			v := newVerification(t, fp)
			_, err := v.Issue(verifiableAttempt())
			require.NoError(t, err)

			_, err = v.SubmitCode(context.Background(), "99999")
			kind, ok := auth.KindOf(err)
			require.True(t, ok)
			require.Equal(t, tt.kind, kind)

			challenge, _ := v.Current()
			require.Equal(t, auth.StateFailed, challenge.State)
			require.Equal(t, tt.message, challenge.Error)
			require.Equal(t, "99999", challenge.Code)
		})
	}
}

func TestVerification_FailedReentersPending(t *testing.T) {
	fp := providerfake.NewFakeProvider()
	entered := make(chan auth.ChallengeState, 1)
	var v *auth.Verification
	fp.OnAttemptEmailVerification = func(signUpID, code string) (*provider.SignUpAttempt, error) {
		challenge, _ := v.Current()
		entered <- challenge.State
		if code == testCode {
			return &provider.SignUpAttempt{ID: signUpID, Status: provider.StatusComplete, CreatedUserID: "u_1", CreatedSessionID: "sess_2"}, nil
		}
		return nil, providerfake.Rejection(http.StatusUnprocessableEntity, "form_code_incorrect", "Incorrect code")
	}
	v = newVerification(t, fp)
	_, err := v.Issue(verifiableAttempt())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = v.SubmitCode(ctx, "11111")
	require.ErrorIs(t, err, auth.ErrChallengeFailed)
	require.Equal(t, auth.StatePending, <-entered)

	require.NoError(t, v.SetCode(testCode))
	_, err = v.SubmitCode(ctx, testCode)
	require.NoError(t, err)
	require.Equal(t, auth.StatePending, <-entered)
	require.Equal(t, []string{"11111", testCode}, fp.Codes())
}

func TestVerification_InFlight(t *testing.T) {
	fp := providerfake.NewFakeProvider()
	v := newVerification(t, fp)
	_, err := v.Issue(verifiableAttempt())
	require.NoError(t, err)
	release := fp.Hold()
	entered := fp.Entered()
	ctx := context.Background()

	result := make(chan error, 1)
	go func() {
		_, err := v.SubmitCode(ctx, testCode)
		result <- err
	}()
	require.Equal(t, providerfake.CallAttemptEmailVerification, <-entered)
	require.True(t, v.InFlight())

	_, err = v.SubmitCode(ctx, testCode)
	require.ErrorIs(t, err, auth.ErrSubmissionInFlight)
	require.NoError(t, v.SetCode("12"))

	release()
	require.NoError(t, <-result)
	require.False(t, v.InFlight())
	require.Len(t, fp.Codes(), 1)
}
