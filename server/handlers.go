package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-client/auth"
	interrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/provider"
	"github.com/pkg/errors"
)

const maxRequestBytes = 1 << 16

// Error codes for failures that are not auth.ErrorKind values.
const (
	errorCodeInvalidRequest = "invalid_request"
	errorCodeInFlight       = "in_flight"
	errorCodeNotReady       = "not_ready"
	errorCodeConflict       = "conflict"
	errorCodeInternal       = "internal"
)

// credentialsRequest is the body of the sign-in and sign-up routes.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type codeRequest struct {
	Code string `json:"code"`
}

// SessionResponse describes the active session without exposing its token.
type SessionResponse struct {
	UserID      string    `json:"user_id,omitempty"`
	ActivatedAt time.Time `json:"activated_at"`
}

// FlowResponse is returned by every flow route.
type FlowResponse struct {
	Session *SessionResponse `json:"session,omitempty"`
	State   auth.FlowState   `json:"state"`
}

// SignInHandler submits credentials and activates the resulting session.
func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, errorCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		session, err := s.flow.SignIn(r.Context(), auth.Credentials{Email: req.Email, Password: req.Password})
		if err != nil {
			s.writeFlowError(w, r, err)
			return
		}
		s.writeFlow(w, &SessionResponse{UserID: session.UserID, ActivatedAt: session.ActivatedAt})
	}
}

// SignUpHandler creates the account and opens its email-code challenge.
func (s *Server) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, errorCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		creds := auth.Credentials{Email: req.Email, Password: req.Password, DisplayName: req.Name}
		if _, err := s.flow.SignUp(r.Context(), creds); err != nil {
			s.writeFlowError(w, r, err)
			return
		}
		s.writeFlow(w, nil)
	}
}

// SetCodeHandler records the code as it is typed.
func (s *Server) SetCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req codeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, errorCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.flow.SetCode(req.Code); err != nil {
			s.writeFlowError(w, r, err)
			return
		}
		s.writeFlow(w, nil)
	}
}

// VerifyHandler submits the code from the body, or the recorded one when the
// body carries none.
func (s *Server) VerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req codeRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeJSONError(w, errorCodeInvalidRequest, err.Error(), http.StatusBadRequest)
				return
			}
		}

		session, err := s.flow.Verify(r.Context(), req.Code)
		if err != nil {
			s.writeFlowError(w, r, err)
			return
		}
		s.writeFlow(w, &SessionResponse{UserID: session.UserID, ActivatedAt: session.ActivatedAt})
	}
}

// ResumeActivationHandler finishes a verified sign-up whose record or
// activation failed.
func (s *Server) ResumeActivationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.flow.ResumeActivation(r.Context())
		if err != nil {
			s.writeFlowError(w, r, err)
			return
		}
		s.writeFlow(w, &SessionResponse{UserID: session.UserID, ActivatedAt: session.ActivatedAt})
	}
}

func (s *Server) ResetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.flow.Reset()
		s.writeFlow(w, nil)
	}
}

func (s *Server) StateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeFlow(w, nil)
	}
}

// PreflightHandler answers CORS preflight requests; the headers are set by
// CorsMiddleware.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "ok",
			"provider_loaded": provider.IsLoaded(s.provider),
		})
	}
}

func (s *Server) writeFlow(w http.ResponseWriter, session *SessionResponse) {
	writeJSON(w, http.StatusOK, FlowResponse{Session: session, State: s.flow.State()})
}

// writeFlowError maps a flow error to its status code. The message is always
// the one meant for the user.
func (s *Server) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("identity flow failed")
	}
	writeJSONError(w, code, auth.UserMessage(err), status)
}

func classify(err error) (string, int) {
	if kind, ok := auth.KindOf(err); ok {
		switch kind {
		case auth.ProviderRejected, auth.ChallengeFailed, auth.IncompleteFlow:
			return string(kind), http.StatusUnprocessableEntity
		case auth.SyncFailed:
			return string(kind), http.StatusBadGateway
		case auth.Unavailable:
			return string(kind), http.StatusServiceUnavailable
		default:
			return string(kind), http.StatusInternalServerError
		}
	}

	switch {
	case errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrUnsupportedKind),
		errors.Is(err, auth.ErrEmptyCode):
		return errorCodeInvalidRequest, http.StatusBadRequest
	case errors.Is(err, auth.ErrSubmissionInFlight):
		return errorCodeInFlight, http.StatusConflict
	case errors.Is(err, auth.ErrProviderNotReady):
		return errorCodeNotReady, http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrStaleResponse),
		errors.Is(err, auth.ErrChallengeNotPending),
		errors.Is(err, auth.ErrChallengeTerminal),
		errors.Is(err, auth.ErrChallengeExists),
		errors.Is(err, auth.ErrAttemptNotVerifiable),
		errors.Is(err, auth.ErrInvalidTransition),
		errors.Is(err, auth.ErrNoPendingActivation):
		return errorCodeConflict, http.StatusConflict
	default:
		return errorCodeInternal, http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return interrors.Wrapf(interrors.ErrInvalidRequest, "decode body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
