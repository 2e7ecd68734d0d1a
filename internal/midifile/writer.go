package midifile

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Writer encodes a MIDI file. Track lengths are patched in place when each
// track ends, so the destination must be seekable.
type Writer struct {
	w       io.WriteSeeker
	status  byte // running status, 0 when none
	written uint32
	open    bool
	buf     []byte
}

// NewWriter validates h and writes the header chunk.
func NewWriter(w io.WriteSeeker, h Header) (*Writer, error) {
	switch {
	case h.Format > 2:
		return nil, errors.Wrapf(ErrFormat, "format %d", h.Format)
	case h.Tracks == 0:
		return nil, errors.Wrap(ErrFormat, "no tracks")
	case h.Format == 0 && h.Tracks != 1:
		return nil, errors.Wrapf(ErrFormat, "format 0 with %d tracks", h.Tracks)
	case h.Ticks == 0:
		return nil, errors.Wrap(ErrFormat, "zero ticks per beat")
	}
	if _, err := w.Write(h.bytes()); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	return &Writer{w: w}, nil
}

// StartTrack opens a track chunk with a placeholder length.
func (wr *Writer) StartTrack() error {
	if wr.open {
		return errors.New("midifile: track already open")
	}
	var hdr [trackHeaderSize]byte
	copy(hdr[:], tagTrack[:])
	if _, err := wr.w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "start track")
	}
	wr.open = true
	wr.written = 0
	wr.status = 0
	return nil
}

// WriteEvent appends e to the open track. Channel events share running
// status; meta and sysex events cancel it.
func (wr *Writer) WriteEvent(e *Event) error {
	if !wr.open {
		return errors.New("midifile: no open track")
	}
	b := AppendVarLen(wr.buf[:0], e.Delay)
	switch {
	case e.IsChannel():
		full := e.Status | e.Channel
		if full != wr.status {
			b = append(b, full)
			wr.status = full
		}
		need := 2
		if OneDataByte(e.Status) {
			need = 1
		}
		if len(e.Data) < need {
			return errors.Errorf("midifile: %#02x event with %d data bytes", full, len(e.Data))
		}
		b = append(b, e.Data[:need]...)
	case e.Status == StatusMeta:
		wr.status = 0
		b = append(b, StatusMeta, e.Meta)
		b = AppendVarLen(b, uint32(len(e.Data)))
		b = append(b, e.Data...)
	case e.Status == StatusSysexFirst || e.Status == StatusSysexNext:
		wr.status = 0
		b = append(b, e.Status)
		b = AppendVarLen(b, uint32(len(e.Data)))
		b = append(b, e.Data...)
	default:
		return errors.Errorf("midifile: cannot write status %#02x", e.Status)
	}
	wr.buf = b
	n, err := wr.w.Write(b)
	wr.written += uint32(n)
	if err != nil {
		return errors.Wrap(err, "write event")
	}
	return nil
}

// WriteTempo writes a tempo meta-event.
func (wr *Writer) WriteTempo(delay, tempo uint32) error {
	return wr.WriteEvent(&Event{
		Delay:  delay,
		Status: StatusMeta,
		Meta:   MetaTempo,
		Data:   []byte{byte(tempo >> 16), byte(tempo >> 8), byte(tempo)},
	})
}

// WriteText writes a text meta-event of the given type at zero delay.
func (wr *Writer) WriteText(kind byte, text string) error {
	var e Event
	e.SetText(kind, text)
	return wr.WriteEvent(&e)
}

// EndTrack writes the end-of-track meta-event after eotDelay ticks and
// patches the chunk length.
func (wr *Writer) EndTrack(eotDelay uint32) error {
	if err := wr.WriteEvent(&Event{Delay: eotDelay, Status: StatusMeta, Meta: MetaEndOfTrack}); err != nil {
		return err
	}
	wr.open = false
	if _, err := wr.w.Seek(-int64(wr.written+4), io.SeekCurrent); err != nil {
		return errors.Wrap(err, "seek to track length")
	}
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], wr.written)
	if _, err := wr.w.Write(size[:]); err != nil {
		return errors.Wrap(err, "patch track length")
	}
	if _, err := wr.w.Seek(0, io.SeekEnd); err != nil {
		return errors.Wrap(err, "seek to end")
	}
	return nil
}

// Buffer is an in-memory io.WriteSeeker.
type Buffer struct {
	data []byte
	off  int
}

func (b *Buffer) Write(p []byte) (int, error) {
	if end := b.off + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	n := copy(b.data[b.off:], p)
	b.off += n
	return n, nil
}

func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.off) + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, errors.Errorf("midifile: bad whence %d", whence)
	}
	if pos < 0 {
		return 0, errors.New("midifile: seek before start")
	}
	b.off = int(pos)
	return pos, nil
}

func (b *Buffer) Bytes() []byte { return b.data }

// Encode renders whole tracks into a file image. The header track count is
// taken from tracks; each track ends immediately after its last event.
func Encode(format uint16, tb Timebase, tracks ...[]Event) ([]byte, error) {
	var buf Buffer
	wr, err := NewWriter(&buf, Header{Format: format, Tracks: uint16(len(tracks)), Timebase: tb})
	if err != nil {
		return nil, err
	}
	for _, events := range tracks {
		if err := wr.StartTrack(); err != nil {
			return nil, err
		}
		for i := range events {
			if err := wr.WriteEvent(&events[i]); err != nil {
				return nil, err
			}
		}
		if err := wr.EndTrack(0); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
