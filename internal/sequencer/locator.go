package sequencer

import (
	"github.com/cbegin/xeq-go/internal/atom"
)

// Locator is a position in a stream: the time reached, the time left until
// the next event, and the token indices around it. It is a plain value and
// copies by assignment.
type Locator struct {
	When  float64 // logical time already reached
	Delay float64 // time left until the event at AtNext
	Delta float64 // delay that leads into the event at AtNext

	AtPrevious int // start of the previous event, -1 if none
	AtDelta    int // start of the delay vector of the next event
	AtNext     int // target token of the next event, negative when there is none

	stream *atom.Stream
}

// NewLocator returns a hidden locator over s.
func NewLocator(s *atom.Stream) Locator {
	l := Locator{stream: s}
	l.Hide()
	return l
}

func (l *Locator) Stream() *atom.Stream { return l.stream }

// Bind points the locator at another stream and hides it.
func (l *Locator) Bind(s *atom.Stream) {
	l.stream = s
	l.Hide()
}

// Valid reports whether the locator points at an event.
func (l *Locator) Valid() bool { return l.AtNext >= 0 }

// Hide parks the locator. A hidden loop end disables looping.
func (l *Locator) Hide() {
	l.Delay, l.Delta = 0, 0
	l.AtPrevious, l.AtDelta, l.AtNext = -1, -1, -1
}

func (l *Locator) lookAtFirst() error {
	if l.stream.Len() == 0 {
		return ErrEmpty
	}
	a := l.stream.Atoms()
	l.AtPrevious, l.AtDelta = -1, -1
	for l.AtNext = 0; l.AtNext < len(a); l.AtNext++ {
		switch a[l.AtNext].Kind {
		case atom.KindFloat:
			if l.AtDelta < 0 {
				l.Delta = clampDelay(a[l.AtNext].Num)
				l.AtDelta = l.AtNext
			}
		case atom.KindSymbol:
			l.When = l.Delta
			return nil
		case atom.KindSemi:
		default:
			return ErrCorrupt
		}
	}
	return ErrCorrupt
}

// lookAtNext moves to the target of the next Semi-separated event.
func (l *Locator) lookAtNext() error {
	a := l.stream.Atoms()
	checkDelay, checkTarget := false, false
	l.AtPrevious = l.AtNext
	for ; l.AtNext < len(a); l.AtNext++ {
		tok := a[l.AtNext]
		switch {
		case checkDelay && tok.IsFloat():
			l.Delta = clampDelay(tok.Num)
			l.AtDelta = l.AtNext
			checkDelay, checkTarget = false, true
		case checkTarget && tok.IsSymbol():
			l.When += l.Delta
			return nil
		default:
			checkDelay = tok.IsSemi()
			checkTarget = checkDelay
		}
	}
	return ErrEndOfStream
}

func (l *Locator) lookAtIndex(n int) error {
	if err := l.lookAtFirst(); err != nil {
		return err
	}
	switch {
	case n < -1:
		return ErrBadRequest
	case n == -1:
		for {
			tmp := *l
			if tmp.lookAtNext() != nil {
				break
			}
			*l = tmp
		}
	default:
		for ; n > 0; n-- {
			if err := l.lookAtNext(); err != nil {
				return ErrEndOfStream
			}
		}
	}
	return nil
}

// Reset is SetToTime(0).
func (l *Locator) Reset() float64 { return l.SetToTime(0) }

// SetToIndex places the locator on the n-th event, -1 meaning the last one.
// The locator is left unchanged on error.
func (l *Locator) SetToIndex(n int) error {
	tmp := *l
	if err := tmp.lookAtIndex(n); err != nil {
		return err
	}
	*l = tmp
	l.Delay = 0
	return nil
}

// SetToTime places the locator on the first event at or after t and
// returns the delay until it, or -1 when there is none.
func (l *Locator) SetToTime(t float64) float64 {
	l.Hide()
	l.When = t
	if l.lookAtFirst() != nil {
		l.Hide()
		return -1
	}
	for {
		if l.When >= t {
			l.Delay = l.When - t
			l.When = t
			return l.Delay
		}
		if l.lookAtNext() != nil {
			l.Hide()
			return -1
		}
	}
}

// SetToLocator copies ref when both share a stream, and otherwise seeks to
// ref's time.
func (l *Locator) SetToLocator(ref *Locator) float64 {
	if l.stream == ref.stream {
		*l = *ref
		if l.AtNext < 0 {
			return -1
		}
		return l.Delay
	}
	return l.SetToTime(ref.When)
}

// Move advances the locator by interval, scanning forward from where it
// stands. Backward moves seek from the start.
func (l *Locator) Move(interval float64) float64 {
	next := l.When + l.Delay
	ndx, prv := l.AtNext, l.AtPrevious
	l.When += interval
	if interval < 0 || ndx <= 0 {
		return l.SetToTime(l.When)
	}
	l.Hide()
	return l.scan(ndx, prv, next, func(t float64, _ []atom.Atom, _ int) bool {
		if t >= l.When {
			l.Delay = t - l.When
			return true
		}
		return false
	})
}

// SkipNotes advances past count note-ons with nonzero velocity and stops on
// the next one, with no delay left.
func (l *Locator) SkipNotes(count int) float64 {
	if count < 0 {
		return -1
	}
	next := l.When + l.Delay
	ndx, prv := l.AtNext, l.AtPrevious
	l.Hide()
	if ndx < 0 {
		return -1
	}
	return l.scan(ndx, prv, next, func(t float64, a []atom.Atom, at int) bool {
		if !isNoteOn(a, at) {
			return false
		}
		if count--; count >= 0 {
			return false
		}
		l.When = t
		l.Delay = 0
		return true
	})
}

func isNoteOn(a []atom.Atom, at int) bool {
	if at+3 >= len(a) {
		return false
	}
	return a[at+1].IsFloat() && int(a[at+1].Num) == 144 &&
		a[at+3].IsFloat() && int(a[at+3].Num) > 0
}

// scan walks event targets from index ndx, whose event falls at time t.
// stop is called at each target with the event's time and decides whether
// the locator lands there.
func (l *Locator) scan(ndx, prv int, t float64, stop func(t float64, a []atom.Atom, at int) bool) float64 {
	a := l.stream.Atoms()
	var last float64
	checkDelay, checkTarget := false, true
	for ; ndx < len(a); ndx++ {
		tok := a[ndx]
		switch {
		case checkDelay && tok.IsFloat():
			last = clampDelay(tok.Num)
			checkDelay, checkTarget = false, true
		case checkTarget && tok.IsSymbol():
			t += last
			if stop(t, a, ndx) {
				l.Delta = last
				l.AtNext = ndx
				l.AtPrevious = prv
				return l.Delay
			}
			prv = ndx
			last = 0
			checkDelay, checkTarget = false, false
		default:
			checkDelay = tok.IsSemi()
			checkTarget = checkDelay
		}
	}
	return -1
}

func clampDelay(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
