// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Ingest.Port != 6888 {
		t.Errorf("expected port=6888, got %d", cfg.Ingest.Port)
	}
	if cfg.Ingest.Host != "127.0.0.1" {
		t.Errorf("expected host=127.0.0.1, got %s", cfg.Ingest.Host)
	}
	if cfg.Notifications.TTL.Std() != 7*time.Second {
		t.Errorf("expected ttl=7s, got %s", cfg.Notifications.TTL)
	}
	if cfg.Notifications.MaxItems != 16 {
		t.Errorf("expected max_items=16, got %d", cfg.Notifications.MaxItems)
	}
	if !strings.HasSuffix(cfg.Avatar.CacheDir, filepath.Join("discord-overlay", "avatars")) {
		t.Errorf("unexpected cache dir %s", cfg.Avatar.CacheDir)
	}
	if filepath.Base(cfg.Control.SocketPath) != "chotop-control.sock" {
		t.Errorf("unexpected socket path %s", cfg.Control.SocketPath)
	}
	if cfg.Action.Command != "equibop" {
		t.Errorf("expected action command=equibop, got %s", cfg.Action.Command)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDefault_SocketFallback(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	if got := Default().Control.SocketPath; got != "/tmp/chotop-control.sock" {
		t.Errorf("expected /tmp fallback, got %s", got)
	}

	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := Default().Control.SocketPath; got != "/run/user/1000/chotop-control.sock" {
		t.Errorf("expected runtime dir socket, got %s", got)
	}
}

func TestLoad_WithoutEnvironment(t *testing.T) {
	t.Setenv("CHOTOP_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Ingest.Port != DefaultPort {
		t.Errorf("expected default port, got %d", cfg.Ingest.Port)
	}
}

func TestLoad_WithEnvironment(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "chotop.yaml")
	writeFile(t, configPath, "ingest:\n  port: 7000\n")
	t.Setenv("CHOTOP_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Ingest.Port != 7000 {
		t.Errorf("expected port=7000, got %d", cfg.Ingest.Port)
	}
	// Unset fields keep their defaults.
	if cfg.Ingest.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %s", cfg.Ingest.Host)
	}
}

func TestLoadFile_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "chotop.yaml",
			content: `
ingest:
  port: 7001
notifications:
  ttl: 3s
  max_items: 4
overlay:
  position: bottom-left
`,
		},
		{
			name: "toml",
			file: "chotop.toml",
			content: `
[ingest]
port = 7001

[notifications]
ttl = "3s"
max_items = 4

[overlay]
position = "bottom-left"
`,
		},
		{
			name: "jsonc",
			file: "chotop.jsonc",
			content: `{
  // comments and trailing commas are accepted
  "ingest": {"port": 7001},
  "notifications": {"ttl": "3s", "max_items": 4,},
  "overlay": {"position": "bottom-left"},
}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), test.file)
			writeFile(t, path, test.content)

			cfg, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() failed: %v", err)
			}
			if cfg.Ingest.Port != 7001 {
				t.Errorf("expected port=7001, got %d", cfg.Ingest.Port)
			}
			if cfg.Notifications.TTL.Std() != 3*time.Second {
				t.Errorf("expected ttl=3s, got %s", cfg.Notifications.TTL)
			}
			if cfg.Notifications.MaxItems != 4 {
				t.Errorf("expected max_items=4, got %d", cfg.Notifications.MaxItems)
			}
			if cfg.Overlay.Position != BottomLeft {
				t.Errorf("expected position=bottom-left, got %s", cfg.Overlay.Position)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() failed: %v", err)
			}
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	iniPath := filepath.Join(dir, "chotop.ini")
	writeFile(t, iniPath, "port=1\n")
	if _, err := LoadFile(iniPath); err == nil || !strings.Contains(err.Error(), "unsupported config extension") {
		t.Errorf("expected unsupported extension error, got %v", err)
	}

	badDuration := filepath.Join(dir, "bad.yaml")
	writeFile(t, badDuration, "notifications:\n  ttl: soon\n")
	if _, err := LoadFile(badDuration); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("CHOTOP_TEST_DIR", "/var/cache/test")
	t.Setenv("CHOTOP_TEST_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{"${CHOTOP_TEST_DIR}/avatars", "/var/cache/test/avatars"},
		{"${CHOTOP_TEST_EMPTY:-/fallback}/x", "/fallback/x"},
		{"${CHOTOP_TEST_UNSET_VARIABLE}", ""},
		{"/plain/path", "/plain/path"},
	}
	for _, test := range tests {
		if got := expandVars(test.input); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestLoadFile_ExpandsPaths(t *testing.T) {
	t.Setenv("CHOTOP_TEST_RUNTIME", "/run/test")

	path := filepath.Join(t.TempDir(), "chotop.yaml")
	writeFile(t, path, "control:\n  socket_path: ${CHOTOP_TEST_RUNTIME}/control.sock\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Control.SocketPath != "/run/test/control.sock" {
		t.Errorf("expected expanded socket path, got %s", cfg.Control.SocketPath)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"non-loopback host", func(c *Config) { c.Ingest.Host = "0.0.0.0" }, "ingest.host"},
		{"port out of range", func(c *Config) { c.Ingest.Port = 70000 }, "ingest.port"},
		{"idle below ping", func(c *Config) { c.Ingest.IdleTimeout = Duration(time.Second) }, "ingest.idle_timeout"},
		{"template without avatar", func(c *Config) { c.Avatar.CDNTemplate = "https://example.com/x.png" }, "avatar.cdn_template"},
		{"zero attempts", func(c *Config) { c.Avatar.MaxAttempts = 0 }, "avatar.max_attempts"},
		{"zero ttl", func(c *Config) { c.Notifications.TTL = 0 }, "notifications.ttl"},
		{"negative cap", func(c *Config) { c.Notifications.MaxItems = -1 }, "notifications.max_items"},
		{"no socket", func(c *Config) { c.Control.SocketPath = "" }, "control.socket_path"},
		{"zero bus", func(c *Config) { c.Bus.AvatarCapacity = 0 }, "bus capacities"},
		{"bad position", func(c *Config) { c.Overlay.Position = "center" }, "overlay.position"},
		{"bad opacity", func(c *Config) { c.Overlay.Opacity = 1.5 }, "overlay.opacity"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("expected error mentioning %q, got %v", test.want, err)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Ingest.Host = "example.com"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"ingest.host", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestValidate_Localhost(t *testing.T) {
	for _, host := range []string{"localhost", "127.0.0.1", "::1", "127.0.0.2"} {
		cfg := Default()
		cfg.Ingest.Host = host
		if err := cfg.Validate(); err != nil {
			t.Errorf("host %s should be accepted: %v", host, err)
		}
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("expected 90s, got %s", d)
	}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	if string(text) != "1m30s" {
		t.Errorf("expected 1m30s, got %s", text)
	}
	if err := d.UnmarshalText([]byte("ninety")); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chotop.yaml")
	writeFile(t, path, "ingest:\n  port: 7000\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- Watch(ctx, path, WatchOptions{Debounce: 20 * time.Millisecond}, func(cfg *Config) {
			reloaded <- cfg
		})
	}()

	// The watcher registers asynchronously; keep rewriting until a
	// reload is observed.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Ingest.Port != 7002 {
				t.Fatalf("expected reloaded port=7002, got %d", cfg.Ingest.Port)
			}
			cancel()
			if err := <-watchErr; err != nil {
				t.Fatalf("Watch returned error: %v", err)
			}
			return
		case <-ticker.C:
			writeFile(t, path, "ingest:\n  port: 7002\n")
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatch_IgnoresInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chotop.yaml")
	writeFile(t, path, "ingest:\n  port: 7000\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 16)
	go Watch(ctx, path, WatchOptions{Debounce: 10 * time.Millisecond}, func(cfg *Config) {
		reloaded <- cfg
	})

	// Writes of an invalid host never reach onChange.
	for range 5 {
		writeFile(t, path, "ingest:\n  host: 10.0.0.1\n")
		time.Sleep(30 * time.Millisecond)
	}
	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid config delivered: %+v", cfg.Ingest)
	case <-time.After(100 * time.Millisecond):
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
