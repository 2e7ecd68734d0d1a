package xeq

import (
	"bytes"
	"testing"

	"github.com/cbegin/xeq-go/internal/atom"
)

func TestRecorderStampsElapsedTime(t *testing.T) {
	clock := NewManualClock()
	rec := NewRecorder("take", WithClock(clock))

	rec.Add(atom.Symbol("early"))
	clock.Advance(5)
	rec.Record()
	if !rec.Recording() {
		t.Fatalf("not recording after Record")
	}
	clock.Advance(10)
	rec.AddMIDI([]byte{0x91, 60, 100})
	clock.Advance(25)
	rec.Add(atom.Symbol("hello"))
	rec.Retrack("other")
	clock.Advance(5)
	rec.AddMIDI([]byte{0xc0, 5})
	rec.AddMIDI([]byte{0xf8})
	rec.StopRecording()
	rec.Add(atom.Symbol("late"))

	var buf bytes.Buffer
	if err := rec.Sequence().WriteText(&buf); err != nil {
		t.Fatalf("write text: %v", err)
	}
	want := "10 Track-1 144 60 100 2;\n25 Track-1 hello;\n5 other 192 5 1;\n"
	if buf.String() != want {
		t.Fatalf("recorded %q, want %q", buf.String(), want)
	}
}

func TestRecorderPlaysBack(t *testing.T) {
	clock := NewManualClock()
	rec := NewRecorder("take", WithClock(clock))
	rec.Record()
	clock.Advance(20)
	rec.AddMIDI([]byte{0x90, 62, 80})
	clock.Advance(30)
	rec.AddMIDI([]byte{0x80, 62, 0})
	rec.StopRecording()

	msgs := RenderAll(rec.Sequence().Stream())
	if len(msgs) != 2 || msgs[0].Time != 20 || msgs[1].Time != 50 {
		t.Fatalf("playback = %+v, want notes at 20 and 50", msgs)
	}
}
