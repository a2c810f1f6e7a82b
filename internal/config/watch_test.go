package config_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/calder-dev/stackstatus/internal/config"
)

const watchConfigV1 = `
services:
  - {name: api, host: localhost, port: 8000}
`

const watchConfigV2 = `
services:
  - {name: api, host: localhost, port: 8000}
  - {name: cache, type: redis, host: localhost, port: 6379}
`

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(watchConfigV1), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- config.Watch(ctx, path, slog.New(slog.NewTextHandler(io.Discard, nil)), func(cfg *config.Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(watchConfigV2), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if len(cfg.Services) != 2 {
			t.Errorf("reloaded config has %d services, want 2", len(cfg.Services))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config reload not observed after write")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}

func TestWatch_SkipsInvalidRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(watchConfigV1), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 4)
	go config.Watch(ctx, path, slog.New(slog.NewTextHandler(io.Discard, nil)), func(cfg *config.Config) {
		reloaded <- cfg
	})

	time.Sleep(100 * time.Millisecond)
	// An invalid rewrite must be ignored entirely.
	if err := os.WriteFile(path, []byte("services: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		t.Errorf("invalid config was delivered: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}

	// A following valid rewrite still goes through.
	if err := os.WriteFile(path, []byte(watchConfigV2), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-reloaded:
		if len(cfg.Services) != 2 {
			t.Errorf("reloaded config has %d services, want 2", len(cfg.Services))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("valid rewrite after an invalid one was not observed")
	}
}
