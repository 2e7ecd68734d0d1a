package xeq

import (
	"io"
	"math"

	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/midifile"
	"github.com/pkg/errors"
)

// TimedMessage is a message sent to the output, stamped with the clock
// time in milliseconds.
type TimedMessage struct {
	Time  float64
	Bytes []byte
}

type captureOutput struct {
	clock *ManualClock
	out   []TimedMessage
}

func (c *captureOutput) Send(msg []byte) error {
	c.out = append(c.out, TimedMessage{Time: c.clock.Now(), Bytes: append([]byte(nil), msg...)})
	return nil
}

// Render plays a copy of st on a virtual clock for ms milliseconds and
// returns what would have been sent, in order. Options such as WithTempo,
// WithTranspose and WithTracks apply; clock and output options are
// overridden. Notes still sounding at the end are turned off. An unbounded
// render plays the stream once, with repeats disabled.
func Render(st *atom.Stream, ms float64, opts ...Option) []TimedMessage {
	if math.IsInf(ms, 1) || math.IsNaN(ms) {
		ms = math.Inf(1)
		opts = append(opts[:len(opts):len(opts)], WithRepeat(false))
	}
	clock := NewManualClock()
	capture := &captureOutput{clock: clock}
	seq := New("render", append(opts, WithClock(clock), WithOutput(capture))...)
	seq.stream.Replace(st.Clone())
	seq.Rewind()
	seq.Bang()
	if end := clock.Run(ms); !math.IsInf(ms, 1) && ms > end {
		clock.Advance(ms - end)
	}
	seq.Stop()
	seq.Flush()
	return capture.out
}

// RenderAll plays st to the end. Repeats are disabled.
func RenderAll(st *atom.Stream, opts ...Option) []TimedMessage {
	return Render(st, math.Inf(1), opts...)
}

// WriteTimeline stores rendered messages as a format 0 MIDI file at the
// default division and tempo.
func WriteTimeline(w io.WriteSeeker, msgs []TimedMessage) error {
	tb := midifile.Timebase{Ticks: midifile.DefaultTicks}
	coef := tb.MsecsToTicks(midifile.DefaultTempo)
	h := midifile.Header{Format: 0, Tracks: 1, Timebase: tb}
	wr, err := midifile.NewWriter(w, h)
	if err != nil {
		return err
	}
	if err := wr.StartTrack(); err != nil {
		return err
	}
	if err := wr.WriteTempo(0, midifile.DefaultTempo); err != nil {
		return err
	}
	var last uint32
	for _, m := range msgs {
		if len(m.Bytes) < 2 || !midifile.IsChannel(m.Bytes[0]) {
			continue
		}
		tick := uint32(math.Round(m.Time * coef))
		var e midifile.Event
		var d2 byte
		if len(m.Bytes) > 2 {
			d2 = m.Bytes[2]
		}
		e.SetChannel(tick-last, m.Bytes[0]&0xf0, m.Bytes[0]&0x0f, m.Bytes[1], d2)
		if err := wr.WriteEvent(&e); err != nil {
			return errors.Wrapf(err, "event at %gms", m.Time)
		}
		last = tick
	}
	return wr.EndTrack(0)
}
