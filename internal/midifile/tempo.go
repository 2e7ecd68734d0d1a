package midifile

import (
	"sort"
)

// TempoEntry is a tempo change at an absolute tick.
type TempoEntry struct {
	Onset uint32
	Tempo uint32
}

// TempoMap lists the tempo changes of a file in onset order once sorted.
type TempoMap []TempoEntry

// Sort orders entries by onset, keeping file order among equal onsets.
func (tm TempoMap) Sort() {
	sort.SliceStable(tm, func(i, j int) bool { return tm[i].Onset < tm[j].Onset })
}

// At returns the tempo in force at tick onset. A change takes effect for
// events strictly after its own onset.
func (tm TempoMap) At(onset uint32) uint32 {
	tempo := DefaultTempo
	for _, e := range tm {
		if e.Onset >= onset {
			break
		}
		tempo = e.Tempo
	}
	return tempo
}

// BPM converts a tempo in microseconds per quarter note.
func BPM(tempo uint32) float64 {
	if tempo == 0 {
		return 0
	}
	return 60000000.0 / float64(tempo)
}

// Track describes one track selected from a file.
type Track struct {
	ID     int
	Name   string
	Events int
}

type TrackMap []Track

// Total is the number of events across all tracks.
func (tm TrackMap) Total() int {
	n := 0
	for _, t := range tm {
		n += t.Events
	}
	return n
}

// Find returns the index of the track with the given name, or -1.
func (tm TrackMap) Find(name string) int {
	for i, t := range tm {
		if t.Name == name {
			return i
		}
	}
	return -1
}
