package mcp

import (
	"context"
	"flag"
	"strings"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "" {
		t.Fatalf("expected empty dice addr, got %q", cfg.Addr)
	}
	if cfg.HTTPAddr != "localhost:8085" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
	if cfg.EvalTimeout != 50*time.Millisecond {
		t.Fatalf("expected default eval timeout, got %v", cfg.EvalTimeout)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("DICEBOX_MCP_DICE_ADDR", "env-dice")
	t.Setenv("DICEBOX_MCP_HTTP_ADDR", "env-http")
	t.Setenv("DICEBOX_LOCALE", "pt-BR")
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	args := []string{"-addr", "flag-dice", "-http-addr", "flag-http", "-transport", "http"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "flag-dice" {
		t.Fatalf("expected flag addr, got %q", cfg.Addr)
	}
	if cfg.HTTPAddr != "flag-http" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected transport http, got %q", cfg.Transport)
	}
	if cfg.Locale != "pt-BR" {
		t.Fatalf("expected env locale, got %q", cfg.Locale)
	}
}

func TestRunRejectsUnknownTransport(t *testing.T) {
	err := Run(context.Background(), Config{Transport: "carrier-pigeon"})
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("Run() error = %v, want unsupported transport", err)
	}
}
