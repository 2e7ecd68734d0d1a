package midifile

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errEndOfTrack = errors.New("midifile: end of track")

// Reader decodes a MIDI file event by event. Each track chunk is loaded into
// memory before its events are decoded.
type Reader struct {
	r      io.ReadSeeker
	log    logrus.FieldLogger
	warn   bool
	header Header
	start  int64 // offset of the first chunk after the header

	track    []byte
	pos      int
	index    int // chunk index of the loaded track, -1 before the first
	status   byte
	time     uint32
	tempo    uint32
	newTrack bool
}

// NewReader decodes the header. Warnings about skipped data are logged until
// the first Restart, so a two-pass caller hears about them once.
func NewReader(r io.ReadSeeker, log logrus.FieldLogger) (*Reader, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	rd := &Reader{r: r, log: log, warn: true, index: -1, tempo: DefaultTempo}
	if err := rd.readHeader(); err != nil {
		return nil, err
	}
	return rd, nil
}

func (rd *Reader) readHeader() error {
	var buf [headerSize]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		return errors.Wrapf(ErrBadHeader, "short header: %v", err)
	}
	if [4]byte(buf[0:4]) != tagHeader {
		return errors.Wrapf(ErrBadHeader, "chunk %q is not MThd", buf[0:4])
	}
	size := binary.BigEndian.Uint32(buf[4:8])
	if size < headerDataSize {
		return errors.Wrapf(ErrBadHeader, "header length %d", size)
	}
	rd.header.Format = binary.BigEndian.Uint16(buf[8:10])
	rd.header.Tracks = binary.BigEndian.Uint16(buf[10:12])
	rd.header.Timebase = parseDivision(binary.BigEndian.Uint16(buf[12:14]))
	if rd.header.Ticks == 0 {
		return errors.Wrap(ErrBadHeader, "zero ticks per beat")
	}
	rd.start = headerSize
	if extra := int64(size - headerDataSize); extra > 0 {
		rd.log.Warnf("midifile: skipping %d extra header bytes", extra)
		pos, err := rd.r.Seek(extra, io.SeekCurrent)
		if err != nil {
			return errors.Wrap(err, "skip header")
		}
		rd.start = pos
	}
	return nil
}

func (rd *Reader) Header() Header { return rd.header }

// Restart rewinds to the first track for another pass. Warnings are
// silenced from here on.
func (rd *Reader) Restart() error {
	if _, err := rd.r.Seek(rd.start, io.SeekStart); err != nil {
		return errors.Wrap(err, "rewind midifile")
	}
	rd.warn = false
	rd.track = rd.track[:0]
	rd.pos = 0
	rd.index = -1
	rd.status = 0
	rd.time = 0
	rd.tempo = DefaultTempo
	rd.newTrack = false
	return nil
}

// Track is the chunk index of the event last read.
func (rd *Reader) Track() int { return rd.index }

// NewTrack reports whether the event last read opened its track.
func (rd *Reader) NewTrack() bool { return rd.newTrack }

// Time is the absolute tick of the event last read within its track.
func (rd *Reader) Time() uint32 { return rd.time }

// Tempo is the value of the last tempo meta-event read.
func (rd *Reader) Tempo() uint32 { return rd.tempo }

func (rd *Reader) warnf(format string, args ...interface{}) {
	if rd.warn {
		rd.log.Warnf("midifile: "+format, args...)
	}
}

// skipTrack abandons the rest of the loaded track.
func (rd *Reader) skipTrack(format string, args ...interface{}) error {
	rd.warnf(format+" (track %d skipped from byte %d)", append(args, rd.index, rd.pos)...)
	rd.pos = len(rd.track)
	return ErrSkipped
}

// nextTrack loads the next MTrk chunk. It returns io.EOF when the file has no
// more chunks.
func (rd *Reader) nextTrack() error {
	for {
		var hdr [trackHeaderSize]byte
		n, err := io.ReadFull(rd.r, hdr[:])
		if err == io.EOF {
			return io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			rd.warnf("truncated chunk header (%d bytes)", n)
			return io.EOF
		}
		if err != nil {
			return errors.Wrap(err, "read chunk header")
		}
		size := binary.BigEndian.Uint32(hdr[4:8])
		rd.index++
		if [4]byte(hdr[0:4]) != tagTrack {
			rd.warnf("skipping %q chunk", hdr[0:4])
			if _, err := rd.r.Seek(int64(size), io.SeekCurrent); err != nil {
				return errors.Wrap(err, "skip chunk")
			}
			continue
		}
		data, err := io.ReadAll(io.LimitReader(rd.r, int64(size)))
		if err != nil {
			return errors.Wrapf(err, "read track %d", rd.index)
		}
		if len(data) < int(size) {
			rd.warnf("track %d truncated to %d of %d bytes", rd.index, len(data), size)
		}
		if len(data) < shortestEvent {
			rd.warnf("skipping empty track %d", rd.index)
			continue
		}
		rd.track = data
		rd.pos = 0
		rd.status = 0
		rd.time = 0
		rd.newTrack = true
		return nil
	}
}

// ReadEvent decodes the next event into e. It returns ErrSkipped when a
// corrupt event was dropped and reading may go on, io.EOF after the last
// track, and any other error when the file cannot be read further.
func (rd *Reader) ReadEvent(e *Event) error {
	for {
		err := rd.readEvent(e)
		if err != errEndOfTrack {
			return err
		}
	}
}

func (rd *Reader) readEvent(e *Event) error {
	for rd.pos >= len(rd.track) {
		if err := rd.nextTrack(); err != nil {
			return err
		}
	}
	rd.newTrack = rd.pos == 0

	left := rd.track[rd.pos:]
	delay, width := DecodeVarLen(left)
	if left[width-1]&0x80 != 0 {
		return rd.skipTrack("bad delta time")
	}
	rd.pos += width
	rd.time += delay
	if rd.pos >= len(rd.track) {
		return rd.skipTrack("event missing after delta time")
	}
	e.Delay = delay
	e.Meta = 0
	e.Data = e.Data[:0]

	c := rd.track[rd.pos]
	switch {
	case c < 0x80:
		if rd.status == 0 {
			return rd.skipTrack("data byte %#02x without running status", c)
		}
		return rd.channelEvent(e, rd.status)
	case IsChannel(c):
		rd.pos++
		rd.status = c
		return rd.channelEvent(e, c)
	case c == StatusSysexFirst || c == StatusSysexNext:
		rd.pos++
		rd.status = 0
		return rd.sysexEvent(e, c)
	case c == StatusMeta:
		rd.pos++
		rd.status = 0
		return rd.metaEvent(e)
	}
	return rd.skipTrack("unknown status %#02x", c)
}

func (rd *Reader) channelEvent(e *Event, status byte) error {
	need := 2
	if OneDataByte(status) {
		need = 1
	}
	if len(rd.track)-rd.pos < need {
		return rd.skipTrack("channel event cut short")
	}
	data := rd.track[rd.pos : rd.pos+need]
	for _, b := range data {
		if b&0x80 != 0 {
			return rd.skipTrack("status byte %#02x inside channel event", b)
		}
	}
	rd.pos += need
	e.Status = status & 0xf0
	e.Channel = status & 0x0f
	e.Data = append(e.Data, data...)
	return nil
}

// payload reads a length-prefixed block.
func (rd *Reader) payload() ([]byte, error) {
	size, width := DecodeVarLen(rd.track[rd.pos:])
	if width == 0 || rd.track[rd.pos+width-1]&0x80 != 0 {
		return nil, rd.skipTrack("bad data length")
	}
	rd.pos += width
	if size > maxEventDataSize {
		return nil, rd.skipTrack("event of %d bytes", size)
	}
	if int(size) > len(rd.track)-rd.pos {
		return nil, errors.Wrapf(ErrTruncated, "track %d: %d bytes wanted, %d left",
			rd.index, size, len(rd.track)-rd.pos)
	}
	out := rd.track[rd.pos : rd.pos+int(size)]
	rd.pos += int(size)
	return out, nil
}

func (rd *Reader) sysexEvent(e *Event, status byte) error {
	if rd.pos >= len(rd.track) {
		return errors.Wrapf(ErrTruncated, "track %d: sysex length missing", rd.index)
	}
	data, err := rd.payload()
	if err != nil {
		return err
	}
	e.Status = status
	e.Channel = 0
	e.Data = append(e.Data, data...)
	return nil
}

func (rd *Reader) metaEvent(e *Event) error {
	if len(rd.track)-rd.pos < 2 {
		return errors.Wrapf(ErrTruncated, "track %d: meta-event header missing", rd.index)
	}
	kind := rd.track[rd.pos]
	rd.pos++
	data, err := rd.payload()
	if err != nil {
		return err
	}
	if kind > 0x7f {
		rd.warnf("skipping meta-event type %#02x", kind)
		return ErrSkipped
	}
	switch kind {
	case MetaEndOfTrack:
		if len(data) != 0 {
			rd.warnf("end of track %d with %d data bytes", rd.index, len(data))
		}
		rd.pos = len(rd.track)
		return errEndOfTrack
	case MetaTempo:
		if len(data) != 3 {
			return rd.skipTrack("tempo of length %d", len(data))
		}
		rd.tempo = uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
	}
	e.Status = StatusMeta
	e.Channel = 0
	e.Meta = kind
	e.Data = append(e.Data, data...)
	return nil
}
