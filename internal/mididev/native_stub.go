//go:build !rtmidi

package mididev

func OpenOutput(string) (Output, error) { return nil, ErrNoDriver }

func OpenInput(string) (Input, error) { return nil, ErrNoDriver }

func nativePorts() ([]Port, error) { return nil, ErrNoDriver }

func CloseDriver() {}
