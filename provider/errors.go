package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorEntry is one structured error returned by the provider.
type ErrorEntry struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	LongMessage string `json:"long_message"`
}

// APIError is a failure reported by the provider. Errors may legitimately be
// empty when the provider misbehaves; callers must treat that as a contract
// violation rather than assume at least one entry.
type APIError struct {
	HTTPStatus int          `json:"-"`
	Errors     []ErrorEntry `json:"errors"`
	TraceID    string       `json:"clerk_trace_id,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("identity provider error (status %d, no error entries)", e.HTTPStatus)
	}
	codes := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		codes = append(codes, entry.Code)
	}
	return fmt.Sprintf("identity provider error (status %d): %s", e.HTTPStatus, strings.Join(codes, ", "))
}

// FirstLongMessage returns the long message of the first entry, and false
// when there is no entry or it has no long message.
func (e *APIError) FirstLongMessage() (string, bool) {
	if len(e.Errors) == 0 {
		return "", false
	}
	msg := e.Errors[0].LongMessage
	return msg, msg != ""
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// ContractError is a successful answer that does not carry what the call
// promises, such as a missing or undecodable response object.
type ContractError struct {
	Op  string
	Err error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: identity provider response broke its contract: %v", e.Op, e.Err)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// AsContractError extracts a *ContractError from err's chain.
func AsContractError(err error) (*ContractError, bool) {
	var contractErr *ContractError
	if errors.As(err, &contractErr) {
		return contractErr, true
	}
	return nil, false
}
