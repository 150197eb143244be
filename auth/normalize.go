package auth

import (
	"fmt"

	"github.com/jrsteele09/go-auth-client/provider"
	"github.com/rs/zerolog"
)

// normalizeProviderError classifies an error returned by the provider client.
// The first structured entry's long message is used verbatim; a provider
// error without one, or a success without the promised body, is a contract
// violation and is logged as such. Anything else never got an answer.
func normalizeProviderError(logger zerolog.Logger, op string, err error) *FlowError {
	if _, ok := provider.AsContractError(err); ok {
		logger.Error().Err(err).Str("op", op).Msg("identity provider answered with a malformed response")
		return &FlowError{Kind: Defect, Message: defectMessage, Err: err}
	}

	apiErr, ok := provider.AsAPIError(err)
	if !ok {
		logger.Warn().Err(err).Str("op", op).Msg("identity provider unreachable")
		return &FlowError{Kind: Unavailable, Message: unavailableMessage, Err: err}
	}

	msg, ok := apiErr.FirstLongMessage()
	if !ok {
		logger.Error().
			Err(err).
			Str("op", op).
			Int("http_status", apiErr.HTTPStatus).
			Str("trace_id", apiErr.TraceID).
			Msg("identity provider error carried no structured message")
		return &FlowError{Kind: Defect, Message: defectMessage, Err: err}
	}

	return &FlowError{Kind: ProviderRejected, Message: msg, Err: err}
}

// defect reports a response missing fields the flow relies on.
func defect(logger zerolog.Logger, op, format string, args ...any) *FlowError {
	err := fmt.Errorf(format, args...)
	logger.Error().Err(err).Str("op", op).Msg("identity flow contract violation")
	return &FlowError{Kind: Defect, Message: defectMessage, Err: err}
}
