//go:build rtmidi

package mididev

import (
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// NativeOutput is a port of the system MIDI driver.
type NativeOutput struct {
	out drivers.Out
}

// OpenOutput opens an output port by name, index or name substring.
func OpenOutput(sel string) (*NativeOutput, error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, errors.Wrap(err, "list outputs")
	}
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	i, err := matchPort(names, sel)
	if err != nil {
		return nil, err
	}
	if err := outs[i].Open(); err != nil {
		return nil, errors.Wrapf(err, "open %s", names[i])
	}
	return &NativeOutput{out: outs[i]}, nil
}

func (o *NativeOutput) Send(msg []byte) error {
	if !o.out.IsOpen() {
		if err := o.out.Open(); err != nil {
			return err
		}
	}
	return o.out.Send(msg)
}

func (o *NativeOutput) Close() error { return o.out.Close() }

func (o *NativeOutput) String() string { return o.out.String() }

// NativeInput is an input port of the system MIDI driver.
type NativeInput struct {
	in   drivers.In
	stop func()
}

func OpenInput(sel string) (*NativeInput, error) {
	ins, err := drivers.Ins()
	if err != nil {
		return nil, errors.Wrap(err, "list inputs")
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	i, err := matchPort(names, sel)
	if err != nil {
		return nil, err
	}
	if err := ins[i].Open(); err != nil {
		return nil, errors.Wrapf(err, "open %s", names[i])
	}
	return &NativeInput{in: ins[i]}, nil
}

// Listen starts delivering messages to h on the driver's goroutine.
func (n *NativeInput) Listen(h Handler) error {
	stop, err := midi.ListenTo(n.in, func(msg midi.Message, ms int32) {
		h([]byte(msg), ms)
	})
	if err != nil {
		return errors.Wrapf(err, "listen to %s", n.in.String())
	}
	n.stop = stop
	return nil
}

func (n *NativeInput) Close() error {
	if n.stop != nil {
		n.stop()
		n.stop = nil
	}
	return n.in.Close()
}

func nativePorts() ([]Port, error) {
	var out []Port
	ins, err := drivers.Ins()
	if err != nil {
		return nil, err
	}
	for _, in := range ins {
		out = append(out, Port{Driver: DriverNative, Name: in.String(), Input: true})
	}
	outs, err := drivers.Outs()
	if err != nil {
		return nil, err
	}
	for _, o := range outs {
		out = append(out, Port{Driver: DriverNative, Name: o.String()})
	}
	return out, nil
}

// CloseDriver releases the system MIDI driver.
func CloseDriver() { drivers.Close() }
