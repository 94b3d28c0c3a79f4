// Package cmd holds the startup plumbing shared by bridge commands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/toolbridge/internal/platform/config"
	"github.com/louisbranch/toolbridge/internal/platform/otel"
)

// ServiceToolbridge names the bridge in telemetry resources.
const ServiceToolbridge = "toolbridge"

// telemetryFlushTimeout bounds the final span flush on exit.
const telemetryFlushTimeout = 5 * time.Second

// ParseConfigFromArgs fills cfg from environ (nil reads the process
// environment), then parses args against the flags bind registers, so flags
// win over env.
func ParseConfigFromArgs[T any](cfg *T, environ map[string]string, fs *flag.FlagSet, args []string, bind func(*flag.FlagSet, *T)) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	if fs == nil {
		return errors.New("flag set is required")
	}
	if err := config.ParseEnvFrom(cfg, environ); err != nil {
		return err
	}
	if bind != nil {
		bind(fs, cfg)
	}
	return fs.Parse(args)
}

// RunWithTelemetry runs fn with tracing configured for service and flushes
// pending spans once fn returns.
func RunWithTelemetry(ctx context.Context, service string, fn func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if fn == nil {
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	flush, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer flushTelemetry(service, flush)

	return fn(ctx)
}

func flushTelemetry(service string, flush func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
	defer cancel()
	if err := flush(ctx); err != nil {
		log.Printf("%s: flush telemetry: %v", service, err)
	}
}
