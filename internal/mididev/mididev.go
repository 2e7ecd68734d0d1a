// Package mididev opens the devices sequences are played to and recorded
// from: native MIDI ports, serial DIN lines, and a logging sink.
package mididev

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoDriver   = errors.New("mididev: native MIDI support not built in (build with -tags rtmidi)")
	ErrNoPort     = errors.New("mididev: no such port")
	ErrBadDriver  = errors.New("mididev: unknown driver")
	ErrNotSupport = errors.New("mididev: driver cannot receive")
)

// Output receives wire bytes, one complete message per call.
type Output interface {
	Send(msg []byte) error
	Close() error
}

// Handler receives incoming messages with a timestamp in milliseconds.
type Handler func(msg []byte, ms int32)

// Input delivers incoming messages to a handler until Close.
type Input interface {
	Listen(h Handler) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverNative = "rtmidi"
	DriverSerial = "serial"
	DriverLog    = "log"
)

// Config selects a device.
type Config struct {
	Driver string
	Port   string // name, substring, or index of the port
	Baud   int    // serial only; default SerialBaud
	Log    logrus.FieldLogger
}

func (c Config) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// Open opens an output. An empty driver means the log sink.
func Open(cfg Config) (Output, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverLog:
		return NewLogOutput(cfg.logger()), nil
	case DriverSerial:
		out, err := OpenSerial(cfg.Port, cfg.Baud)
		if err != nil {
			return nil, err
		}
		return out, nil
	case DriverNative:
		out, err := OpenOutput(cfg.Port)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrBadDriver, "%q", cfg.Driver)
}

// OpenIn opens an input. Only native ports can receive.
func OpenIn(cfg Config) (Input, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverNative:
		in, err := OpenInput(cfg.Port)
		if err != nil {
			return nil, err
		}
		return in, nil
	case "", DriverLog, DriverSerial:
		return nil, errors.Wrapf(ErrNotSupport, "%q", cfg.Driver)
	}
	return nil, errors.Wrapf(ErrBadDriver, "%q", cfg.Driver)
}

// Port describes an available device.
type Port struct {
	Driver string
	Name   string
	Input  bool
}

// Ports lists native and serial ports. Drivers that are unavailable are
// skipped.
func Ports() []Port {
	var out []Port
	if ports, err := nativePorts(); err == nil {
		out = append(out, ports...)
	}
	if ports, err := SerialPorts(); err == nil {
		for _, name := range ports {
			out = append(out, Port{Driver: DriverSerial, Name: name})
		}
	}
	return out
}

// matchPort picks the port a selector names: an exact name, else a
// decimal index, else the first name containing the selector.
func matchPort(names []string, sel string) (int, error) {
	for i, n := range names {
		if n == sel {
			return i, nil
		}
	}
	if idx, err := strconv.Atoi(sel); err == nil && idx >= 0 && idx < len(names) {
		return idx, nil
	}
	for i, n := range names {
		if sel != "" && strings.Contains(strings.ToLower(n), strings.ToLower(sel)) {
			return i, nil
		}
	}
	if sel == "" && len(names) > 0 {
		return 0, nil
	}
	return -1, errors.Wrapf(ErrNoPort, "%q", sel)
}
