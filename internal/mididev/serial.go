package mididev

import (
	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// SerialBaud is the DIN MIDI line rate.
const SerialBaud = 31250

// SerialOutput writes messages to a serial line, for DIN MIDI interfaces
// and microcontrollers.
type SerialOutput struct {
	port serial.Port
	name string
}

// OpenSerial opens a serial port by name or index at baud, or SerialBaud
// when zero.
func OpenSerial(sel string, baud int) (*SerialOutput, error) {
	names, err := SerialPorts()
	if err != nil {
		return nil, err
	}
	i, err := matchPort(names, sel)
	if err != nil {
		return nil, err
	}
	if baud <= 0 {
		baud = SerialBaud
	}
	port, err := serial.Open(names[i], &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial %s", names[i])
	}
	return &SerialOutput{port: port, name: names[i]}, nil
}

func (o *SerialOutput) Send(msg []byte) error {
	_, err := o.port.Write(msg)
	return errors.Wrapf(err, "write %s", o.name)
}

func (o *SerialOutput) Close() error { return o.port.Close() }

func (o *SerialOutput) String() string { return o.name }

// SerialPorts lists serial port names.
func SerialPorts() ([]string, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "list serial ports")
	}
	return names, nil
}
