package xeq

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/cbegin/xeq-go/internal/atom"
)

// Notes 60, 64 and 67, a hundred milliseconds apart.
const melody = "0 a 144 60 100 1; 100 a 144 60 0 1, 144 64 90 1; 100 a 144 64 0 1, 144 67 80 1; 100 a 144 67 0 1;"

func newTestFollower(t *testing.T, opts FollowerOptions) *Follower {
	t.Helper()
	reg := NewRegistry()
	host := New("score", WithRegistry(reg), WithClock(NewManualClock()))
	if err := host.ReadText(strings.NewReader(melody)); err != nil {
		t.Fatalf("read text: %v", err)
	}
	return NewFollower(reg, "score", opts, WithClock(NewManualClock()))
}

func TestFollowerHitAndMiss(t *testing.T) {
	var flags []int
	var misses []Miss
	f := newTestFollower(t, FollowerOptions{
		OnFlag: func(v int) { flags = append(flags, v) },
		OnMiss: func(m Miss) { misses = append(misses, m) },
	})
	f.Follow(3)
	if got := f.Ahead(); !reflect.DeepEqual(got, []int{60, 64, 67}) {
		t.Fatalf("ahead = %v, want [60 64 67]", got)
	}

	if _, hit := f.Feed(64); !hit {
		t.Fatalf("64 missed")
	}
	if !reflect.DeepEqual(flags, []int{0, 1}) {
		t.Fatalf("flags = %v, want [0 1]", flags)
	}
	if got := f.Ahead(); !reflect.DeepEqual(got, []int{67, -1, -1}) {
		t.Fatalf("ahead after hit = %v, want [67 -1 -1]", got)
	}

	m, hit := f.Feed(50)
	if hit {
		t.Fatalf("50 hit")
	}
	want := Miss{First: -17, Best: -17, BestIndex: 0}
	if m != want || len(misses) != 1 || misses[0] != want {
		t.Fatalf("miss = %+v (reported %v), want %+v", m, misses, want)
	}
}

func TestFollowerAheadSize(t *testing.T) {
	f := newTestFollower(t, FollowerOptions{})
	if got := len(f.Ahead()); got != defaultAhead {
		t.Fatalf("default ahead = %d, want %d", got, defaultAhead)
	}
	f.Follow(1)
	if got := f.Ahead(); !reflect.DeepEqual(got, []int{60}) {
		t.Fatalf("ahead = %v, want [60]", got)
	}
	f.Follow(0)
	if got := len(f.Ahead()); got != 1 {
		t.Fatalf("follow 0 resized the window to %d", got)
	}
}

func TestFollowerStepping(t *testing.T) {
	var flags []int
	var delays []float64
	ended := false
	f := newTestFollower(t, FollowerOptions{
		OnFlag:  func(v int) { flags = append(flags, v) },
		OnDelay: func(v []atom.Atom) { delays = append(delays, v[0].Num) },
		OnEnd:   func() { ended = true },
	})
	f.NextNote(false)
	f.NextNote(false)
	if !reflect.DeepEqual(flags, []int{0, 0}) {
		t.Fatalf("flags = %v, want [0 0]", flags)
	}
	if !reflect.DeepEqual(delays, []float64{100, 100}) {
		t.Fatalf("delays = %v, want [100 100]", delays)
	}
	f.Next(true)
	f.Next(true)
	if !ended {
		t.Fatalf("end of score not reported")
	}
}

func TestFollowerBangFlagsPitches(t *testing.T) {
	var flags []int
	ended := 0
	clock := NewManualClock()
	reg := NewRegistry()
	host := New("score", WithRegistry(reg), WithClock(NewManualClock()))
	if err := host.ReadText(strings.NewReader(melody)); err != nil {
		t.Fatalf("read text: %v", err)
	}
	f := NewFollower(reg, "score", FollowerOptions{
		OnFlag: func(v int) { flags = append(flags, v) },
		OnEnd:  func() { ended++ },
	}, WithClock(clock))
	f.Bang()
	clock.Run(math.Inf(1))
	if !reflect.DeepEqual(flags, []int{60, 64, 67}) {
		t.Fatalf("flags = %v, want [60 64 67]", flags)
	}
	if ended != 1 {
		t.Fatalf("ended %d times, want 1", ended)
	}
}
