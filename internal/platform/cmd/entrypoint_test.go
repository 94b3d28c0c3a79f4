package cmd

import (
	"context"
	"errors"
	"flag"
	"strings"
	"testing"
)

type sampleConfig struct {
	Gateway string `env:"SAMPLE_GATEWAY" envDefault:"http://localhost:8080"`
	Name    string `env:"SAMPLE_NAME"    envDefault:"bridge"`
}

func bindSampleFlags(fs *flag.FlagSet, cfg *sampleConfig) {
	fs.StringVar(&cfg.Gateway, "gateway", cfg.Gateway, "gateway")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "name")
}

func TestParseConfigFromArgsLayersFlagsOverEnv(t *testing.T) {
	tests := []struct {
		name        string
		environ     map[string]string
		args        []string
		wantGateway string
		wantName    string
	}{
		{name: "defaults", environ: map[string]string{}, wantGateway: "http://localhost:8080", wantName: "bridge"},
		{name: "env", environ: map[string]string{"SAMPLE_NAME": "env-name"}, wantGateway: "http://localhost:8080", wantName: "env-name"},
		{
			name:        "flag beats env",
			environ:     map[string]string{"SAMPLE_GATEWAY": "http://env:1"},
			args:        []string{"-gateway", "http://flag:2"},
			wantGateway: "http://flag:2",
			wantName:    "bridge",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg sampleConfig
			fs := flag.NewFlagSet("sample", flag.ContinueOnError)
			if err := ParseConfigFromArgs(&cfg, tt.environ, fs, tt.args, bindSampleFlags); err != nil {
				t.Fatalf("parse config: %v", err)
			}
			if cfg.Gateway != tt.wantGateway || cfg.Name != tt.wantName {
				t.Fatalf("config = %+v, want gateway %q name %q", cfg, tt.wantGateway, tt.wantName)
			}
		})
	}
}

func TestParseConfigFromArgsReadsProcessEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-process")
	var cfg sampleConfig
	if err := ParseConfigFromArgs(&cfg, nil, flag.NewFlagSet("sample", flag.ContinueOnError), nil, bindSampleFlags); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Name != "from-process" {
		t.Fatalf("name = %q, want from-process", cfg.Name)
	}
}

func TestParseConfigFromArgsRejectsMissingInputs(t *testing.T) {
	if err := ParseConfigFromArgs[sampleConfig](nil, nil, flag.NewFlagSet("x", flag.ContinueOnError), nil, nil); err == nil {
		t.Fatal("expected error for nil target")
	}
	if err := ParseConfigFromArgs(&sampleConfig{}, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil flag set")
	}
}

func TestParseConfigFromArgsUnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	fs.SetOutput(&strings.Builder{})
	if err := ParseConfigFromArgs(&sampleConfig{}, map[string]string{}, fs, []string{"-bogus"}, bindSampleFlags); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), " ", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceToolbridge, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryPassesThroughRunResult(t *testing.T) {
	t.Setenv("TOOLBRIDGE_OTEL_ENDPOINT", "")
	want := errors.New("boom")

	if err := RunWithTelemetry(context.Background(), ServiceToolbridge, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}

	ran := false
	err := RunWithTelemetry(nil, ServiceToolbridge, func(ctx context.Context) error {
		ran = ctx != nil
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("err = %v, ran = %v", err, ran)
	}
}
