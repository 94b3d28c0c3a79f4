// Package toolbridge parses bridge command flags and runs the MCP server.
package toolbridge

import (
	"context"
	"flag"
	"time"

	platformcmd "github.com/louisbranch/toolbridge/internal/platform/cmd"
	"github.com/louisbranch/toolbridge/internal/services/bridge/service"
)

// Config holds bridge command configuration.
type Config struct {
	BackendAddr     string        `env:"TOOLBRIDGE_BACKEND_ADDR"     envDefault:"http://localhost:8080"`
	Transport       string        `env:"TOOLBRIDGE_TRANSPORT"        envDefault:"stdio"`
	HTTPAddr        string        `env:"TOOLBRIDGE_HTTP_ADDR"        envDefault:"localhost:8081"`
	ServerName      string        `env:"TOOLBRIDGE_SERVER_NAME"      envDefault:"hexstrike-ai"`
	ManifestTimeout time.Duration `env:"TOOLBRIDGE_MANIFEST_TIMEOUT" envDefault:"10s"`
	CallTimeout     time.Duration `env:"TOOLBRIDGE_CALL_TIMEOUT"     envDefault:"300s"`
	AllowedHosts    []string      `env:"TOOLBRIDGE_ALLOWED_HOSTS"    envSeparator:","`
}

// ParseConfig parses environment and flags into a Config. A nil environ
// reads the process environment.
func ParseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfigFromArgs(&cfg, environ, fs, args, bindFlags); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.BackendAddr, "gateway", cfg.BackendAddr, "backend gateway URL")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport type: stdio or http")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "MCP server name reported to clients")
	fs.DurationVar(&cfg.ManifestTimeout, "manifest-timeout", cfg.ManifestTimeout, "timeout for the startup tools/list request")
	fs.DurationVar(&cfg.CallTimeout, "call-timeout", cfg.CallTimeout, "timeout for each forwarded tools/call request")
}

// Run starts the bridge with telemetry configured.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceToolbridge, func(ctx context.Context) error {
		return service.Run(ctx, cfg.serviceConfig())
	})
}

func (c Config) serviceConfig() service.Config {
	return service.Config{
		BackendAddr:     c.BackendAddr,
		Transport:       service.TransportKind(c.Transport),
		HTTPAddr:        c.HTTPAddr,
		ServerName:      c.ServerName,
		ManifestTimeout: c.ManifestTimeout,
		CallTimeout:     c.CallTimeout,
		AllowedHosts:    c.AllowedHosts,
	}
}
