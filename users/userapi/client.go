// Package userapi creates backend user records over HTTP.
package userapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	pathCreateUser = "/api/user"
	maxErrorBody   = 4 << 10
)

var _ users.Store = (*Client)(nil)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("user store responded %d", e.StatusCode)
	}
	return fmt.Sprintf("user store responded %d: %s", e.StatusCode, e.Body)
}

// Client implements users.Store against the backend create-user endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a backend client. apiToken is optional; when set it is sent as
// a bearer token.
func New(baseURL, apiToken string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, pkgerrors.Wrap(errors.ErrMissingField, "[userapi.New] base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, pkgerrors.Wrap(err, "[userapi.New] invalid base URL")
	}

	httpClient := &http.Client{}
	if apiToken != "" {
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: apiToken,
			TokenType:   "Bearer",
		}))
	}
	httpClient.Timeout = timeout

	return &Client{
		endpoint:   baseURL + pathCreateUser,
		httpClient: httpClient,
	}, nil
}

// CreateUser posts the record. Both 200 (already exists) and 201 (created)
// are success.
func (c *Client) CreateUser(ctx context.Context, record users.Record) error {
	if err := record.Validate(); err != nil {
		return pkgerrors.Wrap(err, "[userapi.CreateUser]")
	}

	body, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.Wrap(err, "[userapi.CreateUser] marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(err, "[userapi.CreateUser] new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// The backend may use this to recognise retries of the same create.
	req.Header.Set("Idempotency-Key", record.ProviderUserID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(err, "[userapi.CreateUser] http do")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return pkgerrors.Wrap(&StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}, "[userapi.CreateUser]")
	}

	log.Debug().
		Str("provider_user_id", record.ProviderUserID).
		Int("status", resp.StatusCode).
		Msg("user record synchronised")
	return nil
}
