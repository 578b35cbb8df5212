package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/config"
	"github.com/regentroute/regentroute/internal/telemetry"
)

const telemetryFlushTimeout = 5 * time.Second

// NewLogger returns the process logger: JSON lines on w tagged with the
// service and version. An unparseable level leaves zerolog's default.
func NewLogger(w io.Writer, service, version, level string) zerolog.Logger {
	log := zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
	if lvl, err := zerolog.ParseLevel(level); err == nil && level != "" {
		log = log.Level(lvl)
	}
	return log
}

// StartTelemetry installs OpenTelemetry providers for the process. The
// returned stop flushes them and must be called on exit.
func StartTelemetry(ctx context.Context, cfg *config.Config, service, version string, log zerolog.Logger) (stop func(), err error) {
	p, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := p.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("telemetry flush failed")
		}
	}, nil
}

// Serve runs srv until ctx is done and then shuts it down, giving in-flight
// requests up to grace to finish. It returns nil after a clean shutdown.
func Serve(ctx context.Context, srv *http.Server, grace time.Duration, log zerolog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	log.Info().Dur("grace", grace).Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
