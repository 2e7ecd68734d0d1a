package xeq

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/sequencer"
	"github.com/pkg/errors"
)

// Note 60 from 0 to 100, note 64 from 150 to 200.
const score = "0 a 144 60 100 1; 100 a 144 60 0 1; 50 a 144 64 90 1; 50 a 128 64 0 1;"

type recordOutput struct {
	msgs [][]byte
}

func (o *recordOutput) Send(b []byte) error {
	o.msgs = append(o.msgs, append([]byte(nil), b...))
	return nil
}

func newTestSequence(t *testing.T, text string, opts ...Option) (*Sequence, *ManualClock) {
	t.Helper()
	clock := NewManualClock()
	s := New("test", append(opts, WithClock(clock))...)
	if err := s.ReadText(strings.NewReader(text)); err != nil {
		t.Fatalf("read text: %v", err)
	}
	return s, clock
}

func TestSequenceStepping(t *testing.T) {
	out := &recordOutput{}
	var kinds []int
	s, _ := newTestSequence(t, score, WithOutput(out), WithObserver(func(ev PlaybackEvent) {
		kinds = append(kinds, ev.Kind)
	}))

	s.Next(false)
	if len(out.msgs) != 1 || !bytes.Equal(out.msgs[0], []byte{0x90, 60, 100}) {
		t.Fatalf("first step sent %v", out.msgs)
	}
	if len(kinds) != 2 || kinds[0] != EventMessage || kinds[1] != EventDelay {
		t.Fatalf("first step events = %v", kinds)
	}
	if loc := s.Locators()[LocStep]; loc.When != 0 || loc.Delay != 100 {
		t.Fatalf("step at %v+%v, want 0+100", loc.When, loc.Delay)
	}

	s.Next(true)
	if len(out.msgs) != 1 {
		t.Fatalf("dropped step sent %v", out.msgs[1:])
	}
}

func TestSequenceNextNote(t *testing.T) {
	out := &recordOutput{}
	s, _ := newTestSequence(t, score, WithOutput(out))
	s.NextNote(true)
	if when := s.Locators()[LocStep].When; when != 0 {
		t.Fatalf("first note at %v, want 0", when)
	}
	s.NextNote(true)
	if when := s.Locators()[LocStep].When; when != 150 {
		t.Fatalf("second note at %v, want 150", when)
	}
	if len(out.msgs) != 0 {
		t.Fatalf("dropped notes were sent: %v", out.msgs)
	}
	s.NextNote(true)
	if st := s.Status(); st.Step != sequencer.Natural {
		t.Fatalf("step finish = %v, want finished", st.Step)
	}
}

func TestSequenceLocate(t *testing.T) {
	s, _ := newTestSequence(t, score)

	d, err := s.Locate(LocAuto, 120)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if d != 30 {
		t.Fatalf("delay after locate = %v, want 30", d)
	}
	if _, err := s.LocateTo(LocStep, LocAuto); err != nil {
		t.Fatalf("locate to: %v", err)
	}
	if loc := s.Locators()[LocStep]; loc.When != 120 || loc.Delay != 30 {
		t.Fatalf("step at %v+%v, want 120+30", loc.When, loc.Delay)
	}

	if _, err := s.Locate(LocEditBegin, 0); err != nil {
		t.Fatalf("locate bedit: %v", err)
	}
	if _, err := s.SkipNotes(LocEditBegin, 1); err != nil {
		t.Fatalf("skip notes: %v", err)
	}
	if loc := s.Locators()[LocEditBegin]; loc.When != 150 || loc.Delay != 0 {
		t.Fatalf("bedit at %v+%v, want 150+0", loc.When, loc.Delay)
	}

	if _, err := s.Locate("nowhere", 0); errors.Cause(err) != ErrUnknownLocator {
		t.Fatalf("unknown locator error = %v", err)
	}
	if _, err := s.SkipNotes(LocAuto, -1); errors.Cause(err) != sequencer.ErrBadRequest {
		t.Fatalf("negative skip error = %v", err)
	}
}

func TestSequenceFindAndIndexTime(t *testing.T) {
	s, _ := newTestSequence(t, score)
	loc, ok := s.Find("", atom.Floats(144, 64)...)
	if !ok {
		t.Fatalf("find 144 64: not found")
	}
	if loc.When != 150 {
		t.Fatalf("found at %v, want 150", loc.When)
	}
	if got := s.Locators()[LocEditBegin].When; got != 150 {
		t.Fatalf("bedit at %v, want 150", got)
	}
	if _, ok := s.Find("b"); ok {
		t.Fatalf("found a message to a missing target")
	}

	cases := []struct {
		index int
		want  float64
	}{
		{0, 0},
		{2, 150},
		{-1, 200},
	}
	for _, tc := range cases {
		got, err := s.IndexTime(tc.index)
		if err != nil {
			t.Fatalf("index time %d: %v", tc.index, err)
		}
		if got != tc.want {
			t.Fatalf("index time %d = %v, want %v", tc.index, got, tc.want)
		}
	}
	if _, err := s.IndexTime(9); err == nil {
		t.Fatalf("index time past the end succeeded")
	}
}

func TestSequenceEditing(t *testing.T) {
	s := New("edit", WithClock(NewManualClock()))
	s.Add(atom.Float(0), atom.Symbol("x"), atom.Float(1))
	s.AddLine(atom.Parse("10 x 2 _semi_ 0 y 3 _comma_")...)
	s.Add2(atom.Float(4), atom.Semi())
	var buf bytes.Buffer
	if err := s.WriteText(&buf); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if want := "0 x 1;\n10 x 2;\n0 y 3, 4;\n"; buf.String() != want {
		t.Fatalf("text = %q, want %q", buf.String(), want)
	}

	s.Set(atom.Float(5), atom.Symbol("z"))
	if st := s.Status(); st.Messages != 1 || st.Tokens != 3 {
		t.Fatalf("after set: %v", st)
	}
	s.Clear()
	if st := s.Status(); st.Tokens != 0 {
		t.Fatalf("after clear: %v", st)
	}
}

func TestSequenceTempoRescalesPendingWait(t *testing.T) {
	s, clock := newTestSequence(t, score)
	s.Bang()
	clock.Advance(0)
	if due, ok := clock.Pending(); !ok || due != 100 {
		t.Fatalf("pending = %v %v, want 100", due, ok)
	}

	clock.Advance(40)
	s.SetTempo(2)
	if due, ok := clock.Pending(); !ok || due != 70 {
		t.Fatalf("pending after tempo 2 = %v %v, want 70", due, ok)
	}

	clock.Advance(10)
	s.Stop()
	if _, ok := clock.Pending(); ok {
		t.Fatalf("clock still set after stop")
	}
	if d := s.Locators()[LocAuto].Delay; d != 40 {
		t.Fatalf("delay left after stop = %v, want 40", d)
	}
	s.Start()
	if due, ok := clock.Pending(); !ok || due != 70 {
		t.Fatalf("pending after start = %v %v, want 70", due, ok)
	}
}

func TestTempoFactor(t *testing.T) {
	cases := []struct {
		name string
		f    float64
		want float64
	}{
		{"zero means as written", 0, 1},
		{"double", 2, 0.5},
		{"negative clamps", -3, 1e20},
		{"huge clamps", 1e30, 1e-20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tempoFactor(tc.f); math.Abs(got-tc.want) > tc.want*1e-12 {
				t.Fatalf("tempoFactor(%v) = %v, want %v", tc.f, got, tc.want)
			}
		})
	}
}

func TestSequenceLoop(t *testing.T) {
	loops, ended := 0, 0
	s, clock := newTestSequence(t, score, WithObserver(func(ev PlaybackEvent) {
		switch ev.Kind {
		case EventLoopCompleted:
			loops++
		case EventPlaybackEnded:
			ended++
		}
	}))
	if !s.Loop(100, 200) {
		t.Fatalf("loop 100..200 refused")
	}
	clock.Advance(450)
	if loops != 4 {
		t.Fatalf("loops = %d, want 4", loops)
	}
	if ended != 0 {
		t.Fatalf("loop playback ended")
	}
	if !s.Status().Looping {
		t.Fatalf("status does not report the loop")
	}

	s.BreakLoop()
	clock.Run(math.Inf(1))
	if ended != 1 {
		t.Fatalf("ended = %d after breaking the loop, want 1", ended)
	}
	if s.Loop(200, 100) {
		t.Fatalf("reversed loop accepted")
	}
}

func TestSequenceRepeatNeedsDuration(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"single event at zero", "0 a 144 60 100 1;"},
		{"simultaneous events", "0 a 144 60 100 1; 0 a 128 60 0 1;"},
		{"delays only", "100; 50;"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loops, ended := 0, 0
			s, clock := newTestSequence(t, tt.text, WithRepeat(true), WithObserver(func(ev PlaybackEvent) {
				switch ev.Kind {
				case EventLoopCompleted:
					loops++
				case EventPlaybackEnded:
					ended++
				}
			}))
			s.Start()
			clock.Run(1000)
			if loops != 0 || ended != 1 {
				t.Fatalf("loops = %d, ended = %d; want 0 and 1", loops, ended)
			}
			if s.Playing() {
				t.Fatalf("still playing")
			}
		})
	}
}

func TestSequenceRepeat(t *testing.T) {
	loops := 0
	s, clock := newTestSequence(t, score, WithRepeat(true), WithObserver(func(ev PlaybackEvent) {
		if ev.Kind == EventLoopCompleted {
			loops++
		}
	}))
	s.Start()
	clock.Advance(450)
	if loops != 2 {
		t.Fatalf("loops = %d after 450ms of a 200ms sequence, want 2", loops)
	}
	s.Stop()
}

func TestSequenceTimeQuery(t *testing.T) {
	s, clock := newTestSequence(t, score)
	s.Bang()
	clock.Advance(30)
	tq := s.TimeQuery()
	if tq.Last != 0 || tq.Next != 100 || tq.Current != 30 {
		t.Fatalf("time query = %+v, want last 0 next 100 current 30", tq)
	}
	s.SetTempo(0.5)
	clock.Advance(500)
	if tq := s.TimeQuery(); tq.Current > tq.Next {
		t.Fatalf("current %v past next %v", tq.Current, tq.Next)
	}
}

func TestSequenceTracksFilter(t *testing.T) {
	out := &recordOutput{}
	s, clock := newTestSequence(t, score+" 0 b 144 70 100 1; 10 b 144 70 0 1;", WithOutput(out), WithTracks("b"))
	if got := s.Tracks(); got != "b" {
		t.Fatalf("tracks = %q", got)
	}
	s.Bang()
	clock.Run(math.Inf(1))
	if len(out.msgs) != 2 || out.msgs[0][1] != 70 {
		t.Fatalf("filtered playback sent %v", out.msgs)
	}
	s.SetTracks("all")
	if got := s.Tracks(); got != "all" {
		t.Fatalf("tracks = %q, want all", got)
	}
}

func TestSequenceFileRoundTrip(t *testing.T) {
	s, _ := newTestSequence(t, score)
	dir := t.TempDir()
	for _, name := range []string{"song.mid", "song.txt"} {
		path := filepath.Join(dir, name)
		if err := s.SaveFile(path, ""); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		back := New("back", WithClock(NewManualClock()))
		if err := back.LoadFile(path, ""); err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		want, got := s.NoteSpans(), back.NoteSpans()
		if len(got) != len(want) {
			t.Fatalf("%s: %d spans, want %d", name, len(got), len(want))
		}
		for i := range want {
			if got[i].Pitch != want[i].Pitch || math.Abs(got[i].Onset-want[i].Onset) > 3 ||
				math.Abs(got[i].Duration-want[i].Duration) > 3 {
				t.Fatalf("%s: span %d = %+v, want %+v", name, i, got[i], want[i])
			}
		}
	}
}
