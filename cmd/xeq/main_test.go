package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cbegin/xeq-go"
	"github.com/pkg/errors"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: error\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestMissingArguments(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())
	tests := []struct {
		name string
		run  func([]string) error
		want string
	}{
		{"play", runPlay, "no -file given"},
		{"info", runInfo, "no -file given"},
		{"dump", runDump, "no -file given"},
		{"convert", runConvert, "convert: -in and -out are required"},
		{"record", runRecord, "record: no -out given"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run([]string{"-config", cfg})
			if err == nil || err.Error() != tt.want {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
			if _, ok := err.(interface{ StackTrace() errors.StackTrace }); !ok {
				t.Fatalf("error %v carries no stack trace", err)
			}
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	in := filepath.Join(dir, "score.txt")
	text := "0 a 144 60 100 1; 100 a 144 60 0 1; 50 a 144 64 90 1; 50 a 128 64 0 1;"
	if err := os.WriteFile(in, []byte(text), 0o644); err != nil {
		t.Fatalf("write score: %v", err)
	}
	mid := filepath.Join(dir, "score.mid")
	back := filepath.Join(dir, "back.txt")
	if err := runConvert([]string{"-config", cfg, "-in", in, "-out", mid}); err != nil {
		t.Fatalf("convert to midi: %v", err)
	}
	if err := runConvert([]string{"-config", cfg, "-in", mid, "-out", back}); err != nil {
		t.Fatalf("convert to text: %v", err)
	}

	seq := xeq.New("check")
	defer seq.Close()
	if err := seq.LoadFile(back, ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if st := seq.Status(); st.Messages != 4 {
		t.Fatalf("round trip kept %d messages, want 4", st.Messages)
	}
}

func TestInfoMissingFile(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())
	err := runInfo([]string{"-config", cfg, "-file", filepath.Join(t.TempDir(), "none.mid")})
	if !os.IsNotExist(errors.Cause(err)) {
		t.Fatalf("err = %v, want a not-exist error", err)
	}
}
