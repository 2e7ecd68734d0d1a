package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
device:
  driver: serial
  port: /dev/ttyUSB0
playback:
  tempo: 1.5
  tracks: "1,3"
  loop: true
log:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.Driver != "serial" || cfg.Device.Port != "/dev/ttyUSB0" {
		t.Fatalf("device = %+v", cfg.Device)
	}
	if cfg.Playback.Tempo != 1.5 || cfg.Playback.Tracks != "1,3" || !cfg.Playback.Loop {
		t.Fatalf("playback = %+v", cfg.Playback)
	}
	// untouched sections keep their defaults
	if cfg.File.Division != 192 || cfg.File.Tempo != 500000 {
		t.Fatalf("file = %+v", cfg.File)
	}
	if cfg.LogLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v", cfg.LogLevel())
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatalf("explicit missing file loaded without error")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "device:\n  colour: red\n"},
		{"negative tempo", "playback:\n  tempo: -2\n"},
		{"negative loops", "playback:\n  loops: -1\n"},
		{"division", "file:\n  division: 40000\n"},
		{"level", "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := Parse([]byte(tt.yaml), &cfg); err == nil {
				t.Fatalf("Parse(%q) succeeded", tt.yaml)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	cfg := Default()
	if err := Parse(nil, &cfg); err != nil {
		t.Fatalf("Parse(empty): %v", err)
	}
	if cfg != Default() {
		t.Fatalf("empty document changed config: %+v", cfg)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	want := Default()
	want.Playback.Transpose = -12
	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := Default()
	if err := Parse(data, &got); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
