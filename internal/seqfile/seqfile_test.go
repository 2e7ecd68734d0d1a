package seqfile

import (
	"bytes"
	"math"
	"testing"

	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/midifile"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestParseTemplate(t *testing.T) {
	cases := []struct {
		in                 string
		first, last, start int
		base, def          string
		constant           bool
	}{
		{"", 1, math.MaxInt32, 1, "-", "-track", false},
		{"-", 1, math.MaxInt32, 1, "-", "-track", false},
		{"lead", 1, math.MaxInt32, 0, "lead", "", true},
		{"5", 5, 5, 5, "-", "-track", false},
		{"2:3:5-lead", 2, 3, 5, "-lead", "", false},
		{"2:3-lead", 2, 3, 2, "-lead", "", false},
		{"2:", 2, math.MaxInt32, 2, "-", "-track", false},
		{":4piano", 1, 4, 0, "piano", "", true},
		{"4:2", math.MaxInt32, 2, math.MaxInt32, "-", "-track", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			tt := ParseTemplate(tc.in)
			if tt.First != tc.first || tt.Last != tc.last || tt.Start != tc.start ||
				tt.Base != tc.base || tt.Default != tc.def || tt.Constant() != tc.constant {
				t.Fatalf("unexpected template %+v", tt)
			}
		})
	}
}

func TestTemplateMatch(t *testing.T) {
	cases := []struct {
		template, name string
		id             int
		ok             bool
	}{
		{"lead", "lead", 0, true},
		{"lead", "1lead", 0, false},
		{"-", "anything", 0, true},
		{"-", "3-track", 3, true},
		{"2:3:5-lead", "5-lead", 2, true},
		{"2:3:5-lead", "6-lead", 3, true},
		{"2:3:5-lead", "7-lead", 4, false},
		{"2:3:5-lead", "-lead", 0, false},
		{"2:3:5-lead", "5-bass", 0, false},
	}
	for _, tc := range cases {
		id, ok := ParseTemplate(tc.template).Match(tc.name)
		if id != tc.id || ok != tc.ok {
			t.Fatalf("%s ~ %s: got %d/%v want %d/%v", tc.template, tc.name, id, ok, tc.id, tc.ok)
		}
	}
}

func TestCleanTrackName(t *testing.T) {
	if got := cleanTrackName("  lead synth,left;2 "); got != "lead-synth-left-2" {
		t.Fatalf("got %q", got)
	}
}

func note(delay uint32, status, ch, key, vel byte) midifile.Event {
	var e midifile.Event
	e.SetChannel(delay, status, ch, key, vel)
	return e
}

func named(name string, events ...midifile.Event) []midifile.Event {
	var e midifile.Event
	e.SetText(midifile.MetaTrackName, name)
	return append([]midifile.Event{e}, events...)
}

func TestReadTemplateSelectsTracks(t *testing.T) {
	data, err := midifile.Encode(1, midifile.Timebase{Ticks: 96},
		[]midifile.Event{note(0, 0x90, 0, 10, 90)},
		[]midifile.Event{note(0, 0x90, 1, 20, 90)},
		[]midifile.Event{note(10, 0x90, 2, 30, 90)},
		[]midifile.Event{note(0, 0x90, 3, 40, 90)},
	)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var s atom.Stream
	info, err := Read(bytes.NewReader(data), &s, ParseTemplate("2:3:5-lead"), Options{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if info.AllTracks != 4 || len(info.Tracks) != 2 || info.Events != 2 {
		t.Fatalf("unexpected info %+v", info)
	}
	view, err := asSlots(&s)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if view.Len() != 2 || view.Target(0) != "5-lead" || view.Target(1) != "6-lead" {
		t.Fatalf("unexpected stream %s", s.String())
	}
	if view[3].Num != 20 || view[SlotSize+3].Num != 30 {
		t.Fatalf("wrong tracks selected: %s", s.String())
	}
}

func TestReadNamesTracksFromMeta(t *testing.T) {
	data, err := midifile.Encode(1, midifile.Timebase{Ticks: 96},
		named(" lead line ", note(0, 0x90, 0, 60, 90)),
		[]midifile.Event{note(0, 0x90, 1, 62, 90)},
		append([]midifile.Event{note(0, 0xc0, 2, 5, 0)}, named("late")...),
	)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var s atom.Stream
	info, err := Read(bytes.NewReader(data), &s, ParseTemplate(""), Options{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"lead-line", "2-track", "late"}
	for i, w := range want {
		if info.Tracks[i].Name != w {
			t.Fatalf("track %d named %q, want %q", i, info.Tracks[i].Name, w)
		}
	}
	// program change stores the channel where the second data byte would be
	a := s.Atoms()
	last := a[len(a)-SlotSize:]
	if last[2].Num != 0xc0 || last[4].Num != 3 || last[5].Num != 0 {
		t.Fatalf("program change slot %s", atom.Format(last))
	}
}

func TestThreeNoteRoundTrip(t *testing.T) {
	var events []midifile.Event
	var last uint32
	for i, onset := range []uint32{0, 240, 480} {
		key := byte(60 + 2*i)
		events = append(events, note(onset-last, 0x90, 0, key, 100), note(120, 0x80, 0, key, 0))
		last = onset + 120
	}
	data, err := midifile.Encode(0, midifile.Timebase{Ticks: 480}, events)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var s atom.Stream
	if _, err := Read(bytes.NewReader(data), &s, ParseTemplate(""), Options{}); err != nil {
		t.Fatalf("read: %v", err)
	}
	view, _ := asSlots(&s)
	if view.Len() != 6 {
		t.Fatalf("expected 6 slots, got %s", s.String())
	}
	msPerTick := midifile.Timebase{Ticks: 480}.TicksToMsecs(midifile.DefaultTempo)
	var sum float64
	for i := 0; i < 6; i++ {
		sum += view.Time(i)
		slot := view[i*SlotSize:]
		key := float64(60 + 2*(i/2))
		onset := float64(240*(i/2) + 120*(i%2))
		if math.Abs(sum-onset*msPerTick) > 1e-6 {
			t.Fatalf("slot %d at %v ms, want %v", i, sum, onset*msPerTick)
		}
		wantStatus := 144.0
		if i%2 == 1 {
			wantStatus = 128
		}
		if slot[2].Num != wantStatus || slot[3].Num != key || slot[5].Num != 1 {
			t.Fatalf("slot %d: %s", i, atom.Format(slot[:SlotSize]))
		}
	}

	var buf midifile.Buffer
	if _, err := Write(&buf, &s, ParseTemplate(""), Options{Ticks: 480}); err != nil {
		t.Fatalf("write: %v", err)
	}
	mid, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("smf read: %v", err)
	}
	var onsets []uint32
	var abs uint32
	for _, ev := range mid.Tracks[0] {
		abs += ev.Delta
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			if ch != 0 || vel != 100 {
				t.Fatalf("note start ch %d vel %d", ch, vel)
			}
			onsets = append(onsets, abs)
		}
	}
	if len(onsets) != 3 || onsets[0] != 0 || onsets[1] != 240 || onsets[2] != 480 {
		t.Fatalf("rewritten onsets %v", onsets)
	}
}

func TestTempoFoldingRate(t *testing.T) {
	var buf midifile.Buffer
	wr, err := midifile.NewWriter(&buf, midifile.Header{Format: 0, Tracks: 1, Timebase: midifile.Timebase{Ticks: 480}})
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	steps := []func() error{
		wr.StartTrack,
		func() error { return wr.WriteTempo(0, 500000) },
		func() error { return wr.WriteTempo(480, 250000) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	// events every 240 ticks, the first at the tempo change
	for i := 0; i < 4; i++ {
		e := note(240, 0x90, 0, 60, 1)
		if i == 0 {
			e.Delay = 0
		}
		if err := wr.WriteEvent(&e); err != nil {
			t.Fatalf("event: %v", err)
		}
	}
	if err := wr.EndTrack(0); err != nil {
		t.Fatalf("end: %v", err)
	}

	var s atom.Stream
	info, err := Read(bytes.NewReader(buf.Bytes()), &s, ParseTemplate(""), Options{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(info.Tempi) != 2 {
		t.Fatalf("tempo map %+v", info.Tempi)
	}
	view, _ := asSlots(&s)
	// onsets 480, 720, 960, 1200; a change applies only after its own onset
	want := []float64{500, 125, 125, 125}
	for i, w := range want {
		if d := view.Time(i); d < 0 || math.Abs(d-w) > 1e-6 {
			t.Fatalf("delay %d: %v want %v", i, d, w)
		}
	}
	before := view.Time(0) / 480
	after := view.Time(1) / 240
	if math.Abs(before/after-2) > 1e-9 {
		t.Fatalf("rate ratio %v", before/after)
	}
}

func TestWriteFormatOneTracks(t *testing.T) {
	s := atom.NewStream(atom.Parse(`
		0 1-a 144 60 100 1;
		100 2-a 144 62 100 2;
		100 1-a 128 60 0 1;
		0 other 144 1 1 1;
		100 2-a 128 62 0 2;
		50 junk;
	`)...)
	var buf midifile.Buffer
	info, err := Write(&buf, s, ParseTemplate("1:2:1-a"), Options{Ticks: 100, Tempo: 1000000})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if info.Format != 1 || len(info.Tracks) != 2 {
		t.Fatalf("info %+v", info)
	}
	mid, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("smf read: %v", err)
	}
	if len(mid.Tracks) != 2 {
		t.Fatalf("smf tracks %d", len(mid.Tracks))
	}
	// 1000000us a beat over 100 ticks is 10ms a tick
	var abs uint32
	var starts []uint32
	for _, ev := range mid.Tracks[1] {
		abs += ev.Delta
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			starts = append(starts, abs)
			if ch != 1 || key != 62 {
				t.Fatalf("track 2 note ch %d key %d", ch, key)
			}
		}
	}
	if len(starts) != 1 || starts[0] != 10 {
		t.Fatalf("track 2 starts %v", starts)
	}

	var back atom.Stream
	rinfo, err := Read(bytes.NewReader(buf.Bytes()), &back, ParseTemplate(""), Options{})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if rinfo.Tracks[0].Name != "1-a" || rinfo.Tracks[1].Name != "2-a" {
		t.Fatalf("read back names %+v", rinfo.Tracks)
	}
	view, _ := asSlots(&back)
	var total float64
	for i := 0; i < view.Len(); i++ {
		total += view.Time(i)
	}
	if math.Abs(total-300) > 1e-6 {
		t.Fatalf("read back length %v ms, want 300", total)
	}
}

func TestWriteEmpty(t *testing.T) {
	s := atom.NewStream(atom.Parse("0 foo bar;")...)
	if _, err := Write(&midifile.Buffer{}, s, ParseTemplate("lead"), Options{}); errors.Cause(err) != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestSeparateAndDemux(t *testing.T) {
	s := atom.NewStream(atom.Parse(`
		0 2-x 144 62 90 1;
		10 1-x 144 60 90 1;
		10 zz 144 1 1 1;
		10 2-x 128 62 0 1;
		10 1-x 128 60 0 1;
	`)...)
	parts, err := Demux(s, ParseTemplate(""))
	if err != nil {
		t.Fatalf("demux: %v", err)
	}
	if len(parts) != 3 || parts[0].Name != "zz" {
		t.Fatalf("parts %+v", parts)
	}
	byName := map[string]*atom.Stream{}
	for _, p := range parts {
		byName[p.Name] = p.Stream
	}
	one := byName["1-x"]
	if one == nil || one.Len() != 2*SlotSize || one.At(0).Num != 10 || one.At(SlotSize).Num != 30 {
		t.Fatalf("1-x part %s", one)
	}
	two := byName["2-x"]
	if two == nil || two.At(0).Num != 0 || two.At(SlotSize).Num != 30 {
		t.Fatalf("2-x part %s", two)
	}
	if s.At(0).Sym != "" || s.At(1).Sym != "2-x" {
		t.Fatalf("demux modified its input")
	}

	if err := Separate(s, ParseTemplate("1:2:1-x")); err != nil {
		t.Fatalf("separate: %v", err)
	}
	v, _ := asSlots(s)
	order := []string{"1-x", "1-x", "2-x", "2-x", "zz"}
	for i, name := range order {
		if v.Target(i) != name {
			t.Fatalf("slot %d is %s, want %s", i, v.Target(i), name)
		}
	}
	if err := Merge(atom.NewStream(atom.Parse("1 a;")...)); errors.Cause(err) != ErrNotSlots {
		t.Fatalf("expected ErrNotSlots, got %v", err)
	}
}
