package xeq

import (
	"fmt"

	"github.com/cbegin/xeq-go/internal/sequencer"
	"github.com/pkg/errors"
)

// Status is a snapshot of a sequence.
type Status struct {
	Name      string
	Tokens    int
	Messages  int
	Tempo     float64
	Transpose int
	Tracks    string
	Playing   bool
	Looping   bool
	Auto      sequencer.Finish
	Step      sequencer.Finish
	Friends   int
}

func (st Status) String() string {
	return fmt.Sprintf("%s: %d messages (%d tokens), tempo %g, transpose %d, tracks %s, auto %s, step %s",
		st.Name, st.Messages, st.Tokens, st.Tempo, st.Transpose, st.Tracks, st.Auto, st.Step)
}

func (s *Sequence) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Name:      s.name,
		Tokens:    s.stream.Len(),
		Messages:  s.stream.Messages(),
		Tempo:     1 / s.tempo,
		Transpose: s.transform.Transpose,
		Tracks:    s.tracks(),
		Playing:   s.clockSet,
		Looping:   s.auto.LoopActive(),
		Auto:      s.auto.Finished(),
		Step:      s.step.Finished(),
	}
	if s.reg != nil && s.friend == nil {
		st.Friends = len(s.reg.Friends(s.name))
	}
	return st
}

// Time locates the auto iterator: Last is the logical time reached, Next
// the time of the next event, and Current the time now, between the two
// while the clock runs. Index is the token index of the next event.
type Time struct {
	Last    float64
	Next    float64
	Current float64
	Index   int
}

// TimeQuery reports where clocked playback stands.
func (s *Sequence) TimeQuery() Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	play := &s.auto.Play
	t := Time{
		Last:  play.When,
		Next:  play.When + play.Delay,
		Index: play.AtNext,
	}
	t.Current = t.Last
	if s.clockSet {
		t.Current += s.clock.Since() / s.tempo
		if t.Current > t.Next {
			t.Current = t.Next
		}
	}
	return t
}

// IndexTime returns the time of the n-th event, -1 meaning the last one.
// It parks the bedit locator there.
func (s *Sequence) IndexTime(n int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bedit.SetToIndex(n); err != nil {
		return -1, errors.Wrapf(err, "event %d", n)
	}
	return s.bedit.When, nil
}

// TimeQuery reads the position of the sequence hosted under a name, so a
// display can follow playback without holding the sequence itself.
type TimeQuery struct {
	reg  *Registry
	name string
}

func NewTimeQuery(r *Registry, name string) *TimeQuery {
	return &TimeQuery{reg: r, name: name}
}

func (q *TimeQuery) host() (*Sequence, error) {
	s, ok := q.reg.Lookup(q.name)
	if !ok {
		return nil, errors.Wrapf(ErrNoHost, "%q", q.name)
	}
	return s, nil
}

func (q *TimeQuery) Now() (Time, error) {
	s, err := q.host()
	if err != nil {
		return Time{}, err
	}
	return s.TimeQuery(), nil
}

func (q *TimeQuery) IndexTime(n int) (float64, error) {
	s, err := q.host()
	if err != nil {
		return -1, err
	}
	return s.IndexTime(n)
}
