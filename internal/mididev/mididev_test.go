package mididev

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func TestLogOutput(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	out, err := Open(Config{Driver: "log", Log: log})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer out.Close()
	if err := out.Send([]byte{0x90, 60, 100}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := out.Send([]byte{0x80, 60, 0}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := out.(*LogOutput).Count(); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("logged %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "n=1") || !strings.Contains(lines[1], "n=2") {
		t.Fatalf("missing message numbers:\n%s", buf.String())
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(Config{Driver: "carrier-pigeon"}); errors.Cause(err) != ErrBadDriver {
		t.Fatalf("bad driver: err = %v", err)
	}
	if _, err := OpenIn(Config{Driver: "log"}); errors.Cause(err) != ErrNotSupport {
		t.Fatalf("log input: err = %v", err)
	}
}

func TestMatchPort(t *testing.T) {
	names := []string{"Midi Through:0", "USB Keys:1", "Synth 2"}
	tests := []struct {
		name string
		sel  string
		want int
	}{
		{"exact", "Synth 2", 2},
		{"index", "1", 1},
		{"substring", "usb", 1},
		{"first by default", "", 0},
		{"missing", "nope", -1},
		{"index out of range", "9", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matchPort(names, tt.sel)
			if tt.want < 0 {
				if errors.Cause(err) != ErrNoPort {
					t.Fatalf("err = %v, want ErrNoPort", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("matchPort(%q) = %d, %v; want %d", tt.sel, got, err, tt.want)
			}
		})
	}
}
