// Package auth orchestrates identity verification and session establishment
// against an external identity provider.
//
// A Flow drives one identity claim through its steps:
//
//	sign-in: Controller.Submit -> Activator.Activate
//	sign-up: Controller.Submit -> Verification.Issue
//	         Verification.SubmitCode -> UserSynchronizer.Sync -> Activator.Activate
//
// Each component rejects a second call while one is outstanding, and
// discards a provider response whose attempt or challenge was replaced while
// the call was in flight.
package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// options are shared by every component in the package.
type options struct {
	logger  zerolog.Logger
	nowTime func() time.Time
	newID   func() string
}

// Option defines a function type to modify a component on construction.
type Option func(*options)

// WithLogger sets the logger (defaults to the global zerolog logger)
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(o *options) {
		if nowFunc != nil {
			o.nowTime = nowFunc
		}
	}
}

// WithIDGenerator sets how local attempt and challenge ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:  log.Logger,
		nowTime: time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
