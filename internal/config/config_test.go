package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MaxOutputMB != DefaultMaxOutputMB {
		t.Errorf("max_output_mb = %d, want %d", cfg.MaxOutputMB, DefaultMaxOutputMB)
	}
	if cfg.Codec != DefaultCodec {
		t.Errorf("codec = %q, want %q", cfg.Codec, DefaultCodec)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("workers = %d, want %d", cfg.Workers, DefaultWorkers)
	}
	if !cfg.Hardware {
		t.Error("hardware acceleration should default to enabled")
	}
	if cfg.ProbeTimeout != DefaultProbeTimeout {
		t.Errorf("probe_timeout = %v, want %v", cfg.ProbeTimeout, DefaultProbeTimeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotlight.yaml")
	data := []byte(`input_dir: /media/in
output_dir: /media/out
workers: 3
max_output_mb: 25
codec: h265
hardware: false
encode_timeout: 10m
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.InputDir != "/media/in" || cfg.OutputDir != "/media/out" {
		t.Errorf("dirs = %q, %q", cfg.InputDir, cfg.OutputDir)
	}
	if cfg.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Workers)
	}
	if cfg.MaxOutputBytes() != 25*1024*1024 {
		t.Errorf("max bytes = %d, want %d", cfg.MaxOutputBytes(), 25*1024*1024)
	}
	if cfg.Codec != "h265" {
		t.Errorf("codec = %q, want h265", cfg.Codec)
	}
	if cfg.Hardware {
		t.Error("hardware should be disabled by config file")
	}
	if cfg.EncodeTimeout != 10*time.Minute {
		t.Errorf("encode_timeout = %v, want 10m", cfg.EncodeTimeout)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero size ceiling", "max_output_mb: 0\n"},
		{"negative workers", "workers: -2\n"},
		{"unknown codec", "codec: av1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "spotlight.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("explicitly named missing config must error")
	}
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "spotlight.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("reload written defaults: %v", err)
	}
	if cfg.MaxOutputMB != DefaultMaxOutputMB || cfg.Codec != DefaultCodec {
		t.Errorf("round-tripped config diverged: %+v", cfg)
	}
}
