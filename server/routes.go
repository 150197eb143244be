package server

func (s *Server) initRoutes() {
	// Sign-in and sign-up
	s.RegisterRouteHandler("POST "+RouteSignIn, ChainMiddleware(s.SignInHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignUp, ChainMiddleware(s.SignUpHandler(), s.APIMiddleware()...))

	// Email verification
	s.RegisterRouteHandler("PUT "+RouteVerificationCode, ChainMiddleware(s.SetCodeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteVerifyEmail, ChainMiddleware(s.VerifyHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteResumeActivation, ChainMiddleware(s.ResumeActivationHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("POST "+RouteReset, ChainMiddleware(s.ResetHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteState, ChainMiddleware(s.StateHandler(), s.APIMiddleware()...))

	// Preflight for every flow route
	s.RegisterRouteHandler("OPTIONS /auth/", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.LoggingMiddleware, s.RecoverMiddleware))
}
