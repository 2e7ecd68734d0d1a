package seqfile

import (
	"math"
	"sort"

	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/midifile"
)

// Merge interleaves the tracks of a slot stream holding absolute onsets.
// Events at equal onsets keep their order.
func Merge(s *atom.Stream) error {
	view, err := asSlots(s)
	if err != nil {
		return err
	}
	merge(view)
	return nil
}

func merge(view slots) { sort.Stable(byOnset{view}) }

// Separate regroups a slot stream holding absolute onsets by track. Tracks
// are ordered by template id, then by first appearance; slots the template
// rejects go last.
func Separate(s *atom.Stream, tt Template) error {
	view, err := asSlots(s)
	if err != nil {
		return err
	}
	separate(view, tt)
	return nil
}

func separate(view slots, tt Template) []string {
	type entry struct {
		name string
		id   int
	}
	var order []entry
	seen := map[string]int{}
	for i := 0; i < view.Len(); i++ {
		name := view.Target(i)
		if _, ok := seen[name]; ok {
			continue
		}
		id, ok := tt.Match(name)
		if !ok {
			seen[name] = -1
			continue
		}
		seen[name] = len(order)
		order = append(order, entry{name, id})
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].id < order[j].id })
	ranks := make(map[string]int, len(order))
	names := make([]string, len(order))
	for r, e := range order {
		ranks[e.name] = r
		names[r] = e.name
	}
	rank := make([]int, view.Len())
	for i := range rank {
		r, ok := ranks[view.Target(i)]
		if !ok {
			r = math.MaxInt
		}
		rank[i] = r
	}
	sort.Stable(byTrack{slots: view, rank: rank})
	return names
}

// Part is one track split out of a sequence.
type Part struct {
	Name   string
	Stream *atom.Stream
}

// Demux splits a folded slot stream into one folded stream per matching
// track. s is left untouched.
func Demux(s *atom.Stream, tt Template) ([]Part, error) {
	work := s.Clone()
	view, err := asSlots(work)
	if err != nil {
		return nil, err
	}
	midifile.Unfold(view)
	names := separate(view, tt)
	parts := make([]Part, 0, len(names))
	i := 0
	for _, name := range names {
		part := Part{Name: name, Stream: atom.NewStream()}
		for ; i < view.Len() && view.Target(i) == name; i++ {
			part.Stream.Add(view[i*SlotSize : (i+1)*SlotSize]...)
		}
		midifile.Refold(slots(part.Stream.Atoms()))
		parts = append(parts, part)
	}
	return parts, nil
}
