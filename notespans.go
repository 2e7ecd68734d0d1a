package xeq

import (
	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/sequencer"
)

// Span is one note of a piano roll. Channel is 1-based.
type Span struct {
	Onset    float64
	Duration float64
	Pitch    int
	Velocity int
	Channel  int
}

// Scale maps spans to drawing coordinates. Zero fields take the defaults.
type Scale struct {
	Time     float64 // default 0.01 per ms
	Pitch    float64 // default 10 per semitone
	Velocity float64 // default 0.1 per step
}

func (sc Scale) withDefaults() Scale {
	if sc.Time == 0 {
		sc.Time = 0.01
	}
	if sc.Pitch == 0 {
		sc.Pitch = 10
	}
	if sc.Velocity == 0 {
		sc.Velocity = 0.1
	}
	return sc
}

// Cell is a span scaled for drawing.
type Cell struct {
	X, Y     float64
	Width    float64
	Velocity float64
	Color    int
}

var channelColors = [17]int{
	9, 90, 900, 99, 990, 909, 3, 30, 300, 33, 330, 303, 335, 533, 373, 737, 0,
}

func (sp Span) Cell(sc Scale) Cell {
	sc = sc.withDefaults()
	c := Cell{
		X:        sp.Onset * sc.Time,
		Y:        float64(sp.Pitch) * sc.Pitch,
		Width:    sp.Duration * sc.Time,
		Velocity: float64(sp.Velocity) * sc.Velocity,
	}
	if sp.Channel >= 0 && sp.Channel < len(channelColors) {
		c.Color = channelColors[sp.Channel]
	}
	return c
}

// NoteSpans lists every sounding note-on with the time until its note-off.
// A note never turned off lasts until the last message of the sequence.
// The playback iterators are not disturbed.
func (s *Sequence) NoteSpans() []Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	on := sequencer.NewIterator(s.stream)
	off := sequencer.NewIterator(s.stream)
	var (
		spans []Span
		slice sequencer.Locator
	)
	on.SetHooks(sequencer.Hooks{
		OnMessage: func(it *sequencer.Iterator, _ string, _ []atom.Atom) {
			cur := it.Current()
			if cur.Status != 0x90 || cur.Data2 <= 0 {
				return
			}
			end := findNoteOff(off, &slice, it.Play.AtNext, cur)
			spans = append(spans, Span{
				Onset:    it.Play.When,
				Duration: end - it.Play.When,
				Pitch:    cur.Data1,
				Velocity: cur.Data2,
				Channel:  cur.Channel + 1,
			})
		},
	})
	for on.Finished() == sequencer.NotFinished {
		slice = on.Play
		on.Advance()
	}
	return spans
}

// findNoteOff walks from the start of the time slice holding the note-on at
// token index at, and returns the time of the first matching note-off after
// it.
func findNoteOff(walk *sequencer.Iterator, from *sequencer.Locator, at int, note sequencer.Event) float64 {
	var (
		when   float64
		passed bool
	)
	walk.SetHooks(sequencer.Hooks{
		OnMessage: func(it *sequencer.Iterator, _ string, _ []atom.Atom) {
			when = it.Play.When
			if !passed {
				passed = it.Play.AtNext == at
				return
			}
			cur := it.Current()
			isOff := cur.Status == 0x80 || (cur.Status == 0x90 && cur.Data2 == 0)
			if isOff && cur.Data1 == note.Data1 && cur.Channel == note.Channel {
				it.ForceFinish()
			}
		},
	})
	walk.Rewind()
	walk.Play.SetToLocator(from)
	for walk.Finished() == sequencer.NotFinished {
		walk.Advance()
	}
	return when
}
