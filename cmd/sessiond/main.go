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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vitalsign/go-session-store/internal/config"
	"github.com/vitalsign/go-session-store/internal/metrics"
	"github.com/vitalsign/go-session-store/sessionstore"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running sessiond")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("sessiond stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	c := config.New()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	displayAppname(c.GetAppName())

	store := sessionstore.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweepLoop(ctx, store, c.GetSweepInterval())

	server := &http.Server{Addr: c.GetPort(), Handler: newHandler()}
	go listenAndServe(server)
	waitForStopSignal()
	returnError = shutdown(server)
	return returnError
}

// newHandler serves operational endpoints only. The authentication flow holds
// the store by reference; it is not reachable over HTTP from here.
func newHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// sweepLoop is the maintenance scheduler: the stores expose SweepExpired but
// never schedule themselves.
func sweepLoop(ctx context.Context, store *sessionstore.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			refreshRemoved, upstreamRemoved := store.SweepExpired(now)
			metrics.SweepRuns.Inc()
			metrics.RefreshTokensSwept.Add(float64(refreshRemoved))
			metrics.UpstreamTokensSwept.Add(float64(upstreamRemoved))
			if refreshRemoved > 0 || upstreamRemoved > 0 {
				log.Info().
					Int("refresh_tokens", refreshRemoved).
					Int("upstream_tokens", upstreamRemoved).
					Msg("swept expired tokens")
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("sessiond listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
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
