package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sysscope.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != DefaultAddr || cfg.Interval != time.Second || cfg.ProbeAddress != "8.8.8.8:53" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.HistoryLimit != 100 || cfg.SubscriberBuffer != DefaultSubscriberBuffer {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
	if !strings.HasSuffix(cfg.DatabasePath(), filepath.Join("data", "system_health.db")) {
		t.Fatalf("unexpected database path %s", cfg.DatabasePath())
	}
}

func TestLoadFileValues(t *testing.T) {
	path := writeConfig(t, `
addr: "127.0.0.1:9000"
data_dir: /var/lib/sysscope
interval: 2s
probe_timeout: 500ms
subscriber_buffer: 4
history_limit: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("addr = %s", cfg.Addr)
	}
	if cfg.Interval != 2*time.Second || cfg.ProbeTimeout != 500*time.Millisecond {
		t.Fatalf("durations = %v / %v", cfg.Interval, cfg.ProbeTimeout)
	}
	if cfg.SubscriberBuffer != 4 || cfg.HistoryLimit != 50 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.DatabasePath() != filepath.Join("/var/lib/sysscope", "data", "system_health.db") {
		t.Fatalf("database path = %s", cfg.DatabasePath())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "addr: \"127.0.0.1:9000\"\n")
	t.Setenv(envAddr, ":9100")
	t.Setenv(envInterval, "250ms")
	t.Setenv(envDBPath, "/tmp/metrics.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Fatalf("expected env addr, got %s", cfg.Addr)
	}
	if cfg.Interval != 250*time.Millisecond {
		t.Fatalf("expected env interval, got %v", cfg.Interval)
	}
	if cfg.DatabasePath() != "/tmp/metrics.db" {
		t.Fatalf("expected explicit db path, got %s", cfg.DatabasePath())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "addr: [",
		"bad addr":       "addr: \"nope\"\n",
		"negative buf":   "subscriber_buffer: -1\n",
		"limit ordering": "history_limit: 500\nmax_history_limit: 10\n",
		"tls no cert":    "tls:\n  enabled: true\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadRejectsBadEnvDuration(t *testing.T) {
	t.Setenv(envProbeTimeout, "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load("../../sysscope.example.yaml")
	if err != nil {
		t.Fatalf("example config: %v", err)
	}
	if cfg.ProbeAddress != DefaultProbeAddress || cfg.Interval != DefaultInterval {
		t.Fatalf("example config drifted from defaults: %+v", cfg)
	}
}
