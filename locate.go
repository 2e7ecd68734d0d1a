package xeq

import (
	"sort"

	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/sequencer"
	"github.com/pkg/errors"
)

// Locator names accepted by the positioning methods. An empty name means
// LocAuto.
const (
	LocAuto      = "auto"
	LocStep      = "step"
	LocLoopBegin = "bloop"
	LocLoopEnd   = "eloop"
	LocEditBegin = "bedit"
	LocEditEnd   = "eedit"
)

// locator resolves a name to a locator and, for play positions, the
// iterator that owns it.
func (s *Sequence) locator(name string) (*sequencer.Locator, *sequencer.Iterator, error) {
	switch name {
	case "", LocAuto:
		return &s.auto.Play, s.auto, nil
	case LocStep:
		return &s.step.Play, s.step, nil
	case LocLoopBegin:
		return &s.auto.LoopBegin, nil, nil
	case LocLoopEnd:
		return &s.auto.LoopEnd, nil, nil
	case LocEditBegin:
		return &s.bedit, nil, nil
	case LocEditEnd:
		return &s.eedit, nil, nil
	}
	return nil, nil, errors.Wrapf(ErrUnknownLocator, "%q", name)
}

// relocated tells the owning iterator that its play position was moved.
// A running auto iterator is rescheduled for the new delay.
func (s *Sequence) relocated(l *sequencer.Locator, it *sequencer.Iterator) {
	if it == nil {
		return
	}
	it.Restart()
	if l.Valid() {
		it.SetFinish(sequencer.NotFinished)
	}
	if it == s.auto && s.clockSet {
		s.start()
	}
}

// Locate places the named locator on the first event at or after when and
// returns the delay until it, or -1 when there is none.
func (s *Sequence) Locate(name string, when float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, it, err := s.locator(name)
	if err != nil {
		return -1, err
	}
	d := l.SetToTime(when)
	s.relocated(l, it)
	return d, nil
}

// LocateTo copies the locator named ref into the one named name.
func (s *Sequence) LocateTo(name, ref string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, it, err := s.locator(name)
	if err != nil {
		return -1, err
	}
	r, _, err := s.locator(ref)
	if err != nil {
		return -1, err
	}
	d := l.SetToLocator(r)
	s.relocated(l, it)
	return d, nil
}

// LocateAfter moves the named locator by interval.
func (s *Sequence) LocateAfter(name string, interval float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, it, err := s.locator(name)
	if err != nil {
		return -1, err
	}
	d := l.Move(interval)
	s.relocated(l, it)
	return d, nil
}

// SkipNotes moves the named locator past n sounding note-ons.
func (s *Sequence) SkipNotes(name string, n int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, it, err := s.locator(name)
	if err != nil {
		return -1, err
	}
	if n < 0 {
		return -1, errors.Wrapf(sequencer.ErrBadRequest, "skip %d notes", n)
	}
	d := l.SkipNotes(n)
	s.relocated(l, it)
	return d, nil
}

// Find searches from the start for the first message to target (any
// target when empty) whose payload begins with pattern, and parks the
// bedit locator on it.
func (s *Sequence) Find(target string, pattern ...atom.Atom) (sequencer.Locator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found, ok := s.walk.Find(target, pattern)
	if ok {
		s.bedit = found
	}
	return found, ok
}

// Locators returns a snapshot of every named locator.
func (s *Sequence) Locators() map[string]sequencer.Locator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]sequencer.Locator{
		LocAuto:      s.auto.Play,
		LocStep:      s.step.Play,
		LocLoopBegin: s.auto.LoopBegin,
		LocLoopEnd:   s.auto.LoopEnd,
		LocEditBegin: s.bedit,
		LocEditEnd:   s.eedit,
	}
}

// LocatorNames lists the names Locate accepts.
func LocatorNames() []string {
	names := []string{LocAuto, LocStep, LocLoopBegin, LocLoopEnd, LocEditBegin, LocEditEnd}
	sort.Strings(names)
	return names
}
