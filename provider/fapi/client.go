// Package fapi talks to the identity provider's frontend API over HTTP.
package fapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/provider"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	pathEnvironment        = "/v1/environment"
	pathSignIns            = "/v1/client/sign_ins"
	pathSignUps            = "/v1/client/sign_ups"
	pathPrepareVerify      = "/v1/client/sign_ups/%s/prepare_verification"
	pathAttemptVerify      = "/v1/client/sign_ups/%s/attempt_verification"
	pathTouchSession       = "/v1/client/sessions/%s/touch"
	maxResponseBytes int64 = 1 << 20
)

var _ provider.Client = (*Client)(nil)
var _ provider.Readiness = (*Client)(nil)

// Client is an HTTP implementation of provider.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	loaded     atomic.Bool
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, including its authentication.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New creates a frontend API client. When publishableKey is set every request
// carries it as a bearer token.
func New(baseURL, publishableKey string, timeout time.Duration, options ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, pkgerrors.Wrap(errors.ErrMissingField, "[fapi.New] base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, pkgerrors.Wrap(err, "[fapi.New] invalid base URL")
	}

	httpClient := &http.Client{}
	if publishableKey != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: publishableKey, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = timeout

	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Load fetches the provider environment and marks the client ready.
func (c *Client) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathEnvironment, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "[fapi.Load] new request")
	}
	req.Header.Set("Accept", "application/json")
	if err := c.do(req, nil); err != nil {
		return pkgerrors.Wrap(err, "[fapi.Load]")
	}
	c.loaded.Store(true)
	return nil
}

// Loaded reports whether Load has succeeded.
func (c *Client) Loaded() bool {
	return c.loaded.Load()
}

func (c *Client) CreateSignIn(ctx context.Context, identifier, password string) (*provider.SignInAttempt, error) {
	form := url.Values{}
	form.Set("identifier", identifier)
	form.Set("password", password)
	form.Set("strategy", string(provider.StrategyPassword))

	var attempt provider.SignInAttempt
	if err := c.postForm(ctx, pathSignIns, form, &attempt); err != nil {
		return nil, pkgerrors.Wrap(err, "[fapi.CreateSignIn]")
	}
	return &attempt, nil
}

func (c *Client) CreateSignUp(ctx context.Context, emailAddress, password, firstName string) (*provider.SignUpAttempt, error) {
	form := url.Values{}
	form.Set("email_address", emailAddress)
	form.Set("password", password)
	if firstName != "" {
		form.Set("first_name", firstName)
	}

	var attempt provider.SignUpAttempt
	if err := c.postForm(ctx, pathSignUps, form, &attempt); err != nil {
		return nil, pkgerrors.Wrap(err, "[fapi.CreateSignUp]")
	}
	return &attempt, nil
}

func (c *Client) PrepareEmailVerification(ctx context.Context, signUpID string, strategy provider.Strategy) (*provider.SignUpAttempt, error) {
	form := url.Values{}
	form.Set("strategy", string(strategy))

	var attempt provider.SignUpAttempt
	if err := c.postForm(ctx, fmt.Sprintf(pathPrepareVerify, url.PathEscape(signUpID)), form, &attempt); err != nil {
		return nil, pkgerrors.Wrap(err, "[fapi.PrepareEmailVerification]")
	}
	return &attempt, nil
}

func (c *Client) AttemptEmailVerification(ctx context.Context, signUpID, code string) (*provider.SignUpAttempt, error) {
	form := url.Values{}
	form.Set("strategy", string(provider.StrategyEmailCode))
	form.Set("code", code)

	var attempt provider.SignUpAttempt
	if err := c.postForm(ctx, fmt.Sprintf(pathAttemptVerify, url.PathEscape(signUpID)), form, &attempt); err != nil {
		return nil, pkgerrors.Wrap(err, "[fapi.AttemptEmailVerification]")
	}
	return &attempt, nil
}

func (c *Client) SetActiveSession(ctx context.Context, sessionID string) error {
	if err := c.postForm(ctx, fmt.Sprintf(pathTouchSession, url.PathEscape(sessionID)), url.Values{}, nil); err != nil {
		return pkgerrors.Wrap(err, "[fapi.SetActiveSession]")
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return pkgerrors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// envelope is the success body shape: {"response": {...}}.
type envelope struct {
	Response json.RawMessage `json:"response"`
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(err, "http do")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return pkgerrors.Wrap(err, "read body")
	}

	log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Msg("identity provider request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return contractError(req, errors.Wrapf(errors.ErrUnexpectedResponse, "decode envelope: %v", err))
	}
	if len(env.Response) == 0 || bytes.Equal(env.Response, []byte("null")) {
		return contractError(req, pkgerrors.Wrap(errors.ErrUnexpectedResponse, "response object missing"))
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return contractError(req, errors.Wrapf(errors.ErrUnexpectedResponse, "decode response: %v", err))
	}
	return nil
}

func contractError(req *http.Request, err error) *provider.ContractError {
	return &provider.ContractError{Op: req.Method + " " + req.URL.Path, Err: err}
}

// decodeAPIError never fails: a body that does not carry the structured error
// list yields an APIError with no entries.
func decodeAPIError(status int, body []byte) *provider.APIError {
	apiErr := &provider.APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil {
		log.Warn().Err(err).Int("status", status).Msg("identity provider returned an unstructured error body")
		apiErr = &provider.APIError{}
	}
	apiErr.HTTPStatus = status
	return apiErr
}
