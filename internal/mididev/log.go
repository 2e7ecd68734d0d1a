package mididev

import (
	"sync"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
)

// LogOutput prints every message instead of playing it.
type LogOutput struct {
	mu    sync.Mutex
	log   logrus.FieldLogger
	count int
}

func NewLogOutput(log logrus.FieldLogger) *LogOutput {
	return &LogOutput{log: log}
}

func (o *LogOutput) Send(msg []byte) error {
	o.mu.Lock()
	o.count++
	n := o.count
	o.mu.Unlock()
	o.log.WithField("n", n).Info(midi.Message(msg).String())
	return nil
}

// Count returns how many messages were sent.
func (o *LogOutput) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

func (o *LogOutput) Close() error { return nil }
