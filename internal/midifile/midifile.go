// Package midifile reads and writes Standard MIDI Files one event at a time.
// It knows nothing about the token stream; callers decide where decoded
// events go.
package midifile

import (
	"bytes"

	"github.com/pkg/errors"
)

const (
	StatusNoteOff         byte = 0x80
	StatusNoteOn          byte = 0x90
	StatusPolyPressure    byte = 0xa0
	StatusControl         byte = 0xb0
	StatusProgram         byte = 0xc0
	StatusChannelPressure byte = 0xd0
	StatusPitchBend       byte = 0xe0
	StatusSysexFirst      byte = 0xf0
	StatusSysexNext       byte = 0xf7
	StatusMeta            byte = 0xff
)

const (
	MetaSequenceNumber byte = 0x00
	MetaText           byte = 0x01
	MetaCopyright      byte = 0x02
	MetaTrackName      byte = 0x03
	MetaInstrument     byte = 0x04
	MetaLyric          byte = 0x05
	MetaMarker         byte = 0x06
	MetaCuePoint       byte = 0x07
	MetaChannelPrefix  byte = 0x20
	MetaEndOfTrack     byte = 0x2f
	MetaTempo          byte = 0x51
	MetaSMPTEOffset    byte = 0x54
	MetaTimeSignature  byte = 0x58
	MetaKeySignature   byte = 0x59

	// text meta-events are types 1 through this one
	metaMaxPrintable byte = 0x0f
)

const (
	shortestEvent    = 2 // single-byte delta plus one data byte
	headerSize       = 14
	headerDataSize   = 6
	trackHeaderSize  = 8
	maxEventDataSize = 1 << 24
)

var (
	// ErrSkipped reports a malformed event or chunk that was skipped. Reading
	// may continue.
	ErrSkipped = errors.New("midifile: corrupt event skipped")
	// ErrBadHeader reports a file that is not a valid MIDI file.
	ErrBadHeader = errors.New("midifile: not a valid midifile")
	// ErrTruncated reports event data running past the end of its track.
	ErrTruncated = errors.New("midifile: event data truncated")
	// ErrFormat reports a header the writer cannot produce.
	ErrFormat = errors.New("midifile: invalid format for track count")
)

// IsChannel reports whether status is a channel voice status.
func IsChannel(status byte) bool { return status >= 0x80 && status < 0xf0 }

// OneDataByte reports whether a channel status carries a single data byte
// (program change and channel pressure).
func OneDataByte(status byte) bool { return status&0xe0 == 0xc0 }

// Event is one decoded event. For channel events Status has the channel
// stripped and Channel holds it.
type Event struct {
	Delay   uint32
	Status  byte
	Channel byte
	Meta    byte
	Data    []byte
}

func (e *Event) IsChannel() bool { return IsChannel(e.Status) }

func (e *Event) IsMeta(kind byte) bool { return e.Status == StatusMeta && e.Meta == kind }

// Text returns the payload of a text meta-event up to the first NUL.
func (e *Event) Text() string {
	if e.Status != StatusMeta || e.Meta == 0 || e.Meta > metaMaxPrintable {
		return ""
	}
	if i := bytes.IndexByte(e.Data, 0); i >= 0 {
		return string(e.Data[:i])
	}
	return string(e.Data)
}

// SetText turns e into a zero-delay text meta-event of the given type.
func (e *Event) SetText(kind byte, text string) {
	e.Delay = 0
	e.Status = StatusMeta
	e.Meta = kind
	e.Data = append(e.Data[:0], text...)
}

// SetChannel turns e into a channel event. data2 is ignored for statuses
// carrying a single data byte.
func (e *Event) SetChannel(delay uint32, status, channel, data1, data2 byte) {
	e.Delay = delay
	e.Status = status & 0xf0
	e.Channel = channel & 0x0f
	e.Meta = 0
	e.Data = append(e.Data[:0], data1&0x7f)
	if !OneDataByte(e.Status) {
		e.Data = append(e.Data, data2&0x7f)
	}
}

// Bytes renders a channel event as wire bytes without running status.
func (e *Event) Bytes() []byte {
	if !e.IsChannel() {
		return nil
	}
	out := make([]byte, 0, 3)
	out = append(out, e.Status|e.Channel)
	return append(out, e.Data...)
}
