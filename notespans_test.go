package xeq

import (
	"reflect"
	"testing"
)

func TestNoteSpans(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []Span
	}{
		{
			name: "note-on with zero velocity and note-off",
			text: score,
			want: []Span{
				{Onset: 0, Duration: 100, Pitch: 60, Velocity: 100, Channel: 1},
				{Onset: 150, Duration: 50, Pitch: 64, Velocity: 90, Channel: 1},
			},
		},
		{
			name: "overlapping keys on two channels",
			text: "0 a 144 60 100 1; 0 b 144 60 70 2; 30 b 128 60 0 2; 20 a 144 60 0 1;",
			want: []Span{
				{Onset: 0, Duration: 50, Pitch: 60, Velocity: 100, Channel: 1},
				{Onset: 0, Duration: 30, Pitch: 60, Velocity: 70, Channel: 2},
			},
		},
		{
			name: "note never released lasts to the end",
			text: "0 a 144 60 100 1; 40 a 144 62 100 1; 60 a 144 62 0 1;",
			want: []Span{
				{Onset: 0, Duration: 100, Pitch: 60, Velocity: 100, Channel: 1},
				{Onset: 40, Duration: 60, Pitch: 62, Velocity: 100, Channel: 1},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestSequence(t, tc.text)
			if got := s.NoteSpans(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("spans = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSpanCell(t *testing.T) {
	sp := Span{Onset: 200, Duration: 50, Pitch: 60, Velocity: 100, Channel: 2}
	got := sp.Cell(Scale{})
	want := Cell{X: 2, Y: 600, Width: 0.5, Velocity: 10, Color: 900}
	if got != want {
		t.Fatalf("cell = %+v, want %+v", got, want)
	}
	if got := sp.Cell(Scale{Time: 1, Pitch: 1, Velocity: 1}); got.X != 200 || got.Width != 50 {
		t.Fatalf("unit scale cell = %+v", got)
	}
}
