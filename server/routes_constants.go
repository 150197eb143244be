package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Identity flow
	RouteSignIn           = "/auth/sign-in"
	RouteSignUp           = "/auth/sign-up"
	RouteVerificationCode = "/auth/verify-email/code"
	RouteVerifyEmail      = "/auth/verify-email"
	RouteResumeActivation = "/auth/activation/resume"
	RouteReset            = "/auth/reset"
	RouteState            = "/auth/state"

	// Liveness
	RouteHealth = "/health"
)
