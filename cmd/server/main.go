package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/provider/fapi"
	"github.com/jrsteele09/go-auth-client/server"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/users/userapi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return fmt.Errorf("config.New: %w", err)
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	providerClient, err := fapi.New(c.GetProviderBaseURL(), c.GetProviderPublishableKey(), c.GetProviderTimeout())
	if err != nil {
		return fmt.Errorf("fapi.New: %w", err)
	}
	loadCtx, cancelLoad := context.WithCancel(context.Background())
	defer cancelLoad()
	go loadProvider(loadCtx, providerClient, c.GetProviderTimeout())

	backend, err := userapi.New(c.GetBackendBaseURL(), c.GetBackendAPIToken(), c.GetBackendTimeout())
	if err != nil {
		return fmt.Errorf("userapi.New: %w", err)
	}

	slot := sessions.NewSlot()
	slot.OnActivate(func(current sessions.Session, previous *sessions.Session) {
		log.Info().
			Str("user_id", current.UserID).
			Bool("superseded", previous != nil).
			Time("activated_at", current.ActivatedAt).
			Msg("Session active")
	})

	flow, err := auth.NewFlow(auth.Dependencies{
		Provider: providerClient,
		Users:    backend,
		Sessions: slot,
	}, auth.WithLogger(log.Logger.With().Str("component", "auth").Logger()))
	if err != nil {
		return fmt.Errorf("auth.NewFlow: %w", err)
	}

	handler, err := server.New(c, flow, providerClient)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	stop, stopSignals := waitForStopSignal()
	defer stopSignals()

	select {
	case err := <-serveErr:
		return err
	case <-stop:
	}
	returnError = shutdown(httpServer)
	return returnError
}

// loadProvider retries until the provider environment has been fetched or
// ctx is done; submissions are refused until then.
func loadProvider(ctx context.Context, client *fapi.Client, timeout time.Duration) {
	for attempt := 1; ; attempt++ {
		loadCtx, cancel := context.WithTimeout(ctx, timeout)
		err := client.Load(loadCtx)
		cancel()
		if err == nil {
			log.Info().Int("attempt", attempt).Msg("Identity provider loaded")
			return
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Identity provider not loaded, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(min(time.Duration(attempt)*time.Second, 30*time.Second)):
		}
	}
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

// waitForStopSignal subscribes to interrupt and SIGTERM; call the returned
// func to unsubscribe.
func waitForStopSignal() (<-chan os.Signal, func()) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop, func() { signal.Stop(stop) }
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
