package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/shared"
	internaltesting "github.com/opexdevelop/mediacache/internal/testing"
)

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(RunnerOpts{})

	if r.config == nil {
		t.Error("config not defaulted")
	}
	if r.logger == nil {
		t.Error("logger not defaulted")
	}
	if r.output == nil {
		t.Error("output not defaulted")
	}
	if r.httpClient == nil {
		t.Error("http client not defaulted")
	}
}

func TestRunner_Register(t *testing.T) {
	r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})

	commands := r.register()

	want := map[string]bool{
		"setup":   false,
		"resolve": false,
		"fetch":   false,
		"cache":   false,
		"serve":   false,
	}
	for _, cmd := range commands {
		if _, ok := want[cmd.Name]; ok {
			want[cmd.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestRunner_BuildProviders(t *testing.T) {
	r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})

	registry := r.buildProviders()

	for _, kind := range []models.SourceKind{models.SourceYouTube, models.SourceSpotify, models.SourceTikTok} {
		p, ok := registry[kind]
		if !ok {
			t.Errorf("no provider for %q", kind)
			continue
		}
		if p.Name() == "" {
			t.Errorf("provider for %q has empty name", kind)
		}
	}

	if registry[models.SourceYouTube].Name() != "cnv+invidious" {
		t.Errorf("youtube provider = %q, want converter with scraper fallback", registry[models.SourceYouTube].Name())
	}
}

func TestRunner_OpenStore(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Cache.Backend = "memory"
		r := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard)})

		store, err := r.openStore()
		if err != nil {
			t.Fatalf("openStore returned error: %v", err)
		}
		store.Close()
	})

	t.Run("unknown backend", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Cache.Backend = "etcd"
		r := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard)})

		if _, err := r.openStore(); err == nil {
			t.Error("unknown backend accepted")
		}
	})
}

func TestRunner_WriteJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &buf})

	if err := r.writeJSON(map[string]string{"key": "value"}, false); err != nil {
		t.Fatalf("writeJSON returned error: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"key":"value"}` {
		t.Errorf("output = %q", got)
	}

	t.Run("failing writer", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &internaltesting.FWriter{}})
		if err := r.writeJSON(map[string]string{"k": "v"}, true); err == nil {
			t.Error("expected error from failing writer")
		}
	})
}
