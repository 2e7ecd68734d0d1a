package midifile

import (
	"encoding/binary"
)

const (
	DefaultTempo uint32 = 500000 // microseconds per quarter note
	DefaultTicks        = 192
)

var (
	tagHeader = [4]byte{'M', 'T', 'h', 'd'}
	tagTrack  = [4]byte{'M', 'T', 'r', 'k'}
)

// Timebase is the division field of the header. Frames is nonzero for SMPTE
// timing, in which case Ticks counts subdivisions of a frame.
type Timebase struct {
	Ticks  int
	Frames int
}

func (tb Timebase) SMPTE() bool { return tb.Frames != 0 }

// TicksToMsecs is the length of one tick in milliseconds at the given tempo.
// Tempo is ignored for SMPTE timing.
func (tb Timebase) TicksToMsecs(tempo uint32) float64 {
	if tb.SMPTE() {
		return 1000.0 / float64(tb.Frames*tb.Ticks)
	}
	return float64(tempo) / (float64(tb.Ticks) * 1000.0)
}

// MsecsToTicks is the inverse of TicksToMsecs.
func (tb Timebase) MsecsToTicks(tempo uint32) float64 {
	return 1.0 / tb.TicksToMsecs(tempo)
}

func (tb Timebase) division() uint16 {
	if tb.SMPTE() {
		return uint16(byte(-int8(tb.Frames)))<<8 | uint16(tb.Ticks&0xff)
	}
	return uint16(tb.Ticks & 0x7fff)
}

func parseDivision(div uint16) Timebase {
	if div&0x8000 != 0 {
		return Timebase{Frames: int(-int8(div >> 8)), Ticks: int(div & 0xff)}
	}
	return Timebase{Ticks: int(div)}
}

// Header is the decoded MThd chunk.
type Header struct {
	Format uint16
	Tracks uint16
	Timebase
}

func (h Header) bytes() []byte {
	out := make([]byte, 0, headerSize)
	out = append(out, tagHeader[:]...)
	out = binary.BigEndian.AppendUint32(out, headerDataSize)
	out = binary.BigEndian.AppendUint16(out, h.Format)
	out = binary.BigEndian.AppendUint16(out, h.Tracks)
	return binary.BigEndian.AppendUint16(out, h.division())
}
