package sequencer

import (
	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/pkg/errors"
)

var (
	ErrEmpty       = errors.New("sequencer: empty stream")
	ErrCorrupt     = errors.New("sequencer: corrupt stream")
	ErrEndOfStream = errors.New("sequencer: end of stream")
	ErrBadRequest  = errors.New("sequencer: bad request")
)

// Finish tells whether, and how, an iterator ran out.
type Finish int

const (
	NotFinished Finish = iota
	Natural            // the stream ended
	Forced             // a hook stopped the walk; the finish hook is not fired
)

func (f Finish) String() string {
	switch f {
	case NotFinished:
		return "running"
	case Natural:
		return "finished"
	case Forced:
		return "stopped"
	}
	return "unknown"
}

// Hooks are called by Advance. Any of them may be nil. They run on the
// caller's goroutine and may reposition the iterator, in which case they
// must call Restart.
type Hooks struct {
	// OnDelay receives the delay vector leading into the next event. The
	// first float is the delta; loop wraps pass a single computed delay.
	OnDelay func(it *Iterator, vector []atom.Atom)
	// OnTransform may rewrite a MIDI event before it is stored as current.
	// Returning false drops it.
	OnTransform func(it *Iterator, target string, ev *Event) bool
	// OnMessage receives every message with its target.
	OnMessage func(it *Iterator, target string, payload []atom.Atom)
	OnFinish  func(it *Iterator)
	// OnLoopWrap fires once each time playback jumps back to the loop start.
	OnLoopWrap func(it *Iterator)
}

// Iterator walks a stream event by event, one Advance per delay. Play is the
// current position; LoopBegin and LoopEnd bound an optional loop.
type Iterator struct {
	Play      Locator
	LoopBegin Locator
	LoopEnd   Locator

	finish    Finish
	refired   bool // the finish hook already fired again after the end
	restarted bool
	loopOver  bool
	current   Event
	hooks     Hooks
	wrapDelay [1]atom.Atom
}

func NewIterator(s *atom.Stream) *Iterator {
	return NewIteratorWithHooks(s, Hooks{})
}

func NewIteratorWithHooks(s *atom.Stream, hooks Hooks) *Iterator {
	it := &Iterator{hooks: hooks}
	it.Bind(s)
	return it
}

// Bind points all three locators at s and rewinds.
func (it *Iterator) Bind(s *atom.Stream) {
	it.Play.Bind(s)
	it.LoopBegin.Bind(s)
	it.LoopEnd.Bind(s)
	it.Rewind()
}

func (it *Iterator) Stream() *atom.Stream { return it.Play.stream }

func (it *Iterator) Hooks() Hooks       { return it.hooks }
func (it *Iterator) SetHooks(h Hooks)   { it.hooks = h }
func (it *Iterator) Current() Event     { return it.current }
func (it *Iterator) Finished() Finish   { return it.finish }
func (it *Iterator) Restarted() bool    { return it.restarted }
func (it *Iterator) InLoopGap() bool    { return it.loopOver }
func (it *Iterator) LoopActive() bool   { return it.loopActive() }
func (it *Iterator) ClearRestarted()    { it.restarted = false }
func (it *Iterator) SetFinish(f Finish) { it.finish, it.refired = f, false }

// Restart marks the iterator as relocated. It also rearms the finish hook.
func (it *Iterator) Restart() { it.restarted, it.refired = true, false }

// ForceFinish stops the walk from inside a hook. Subsequent Advance calls
// return at once and fire no finish hook.
func (it *Iterator) ForceFinish() { it.finish = Forced }

// Rewind moves to time 0 and drops the loop.
func (it *Iterator) Rewind() {
	it.Play.Reset()
	it.LoopBegin.Reset()
	it.LoopEnd.Hide()
	it.finish = NotFinished
	it.refired = false
	it.restarted = true
	it.loopOver = false
	it.current = Event{}
}

// SetToIterator takes over ref's finish state and play position.
func (it *Iterator) SetToIterator(ref *Iterator) {
	it.finish = ref.finish
	it.Play.SetToLocator(&ref.Play)
}

// Advance consumes every message due at the current time and stops at the
// next delay, reporting it through OnDelay. At the end of the stream it
// fires OnFinish, once more on the next call, and then no longer.
func (it *Iterator) Advance() {
	switch it.finish {
	case Forced:
		return
	case Natural:
		if it.refired {
			return
		}
		it.refired = true
		it.end()
		return
	}
	if it.Play.AtNext < 0 || it.Play.stream == nil {
		it.end()
		return
	}
	if it.loopOver {
		it.exitLoop()
		return
	}
	it.Play.When += it.Play.Delay
	it.Play.Delay = 0

	var target string
	for {
		a := it.Play.stream.Atoms()
		onset := it.Play.AtNext
		lastTarget := target

		if onset > it.LoopEnd.AtPrevious && it.enterLoop() {
			return
		}
		if onset >= len(a) {
			it.end()
			return
		}

		target = ""
		for a[onset].IsSemi() || a[onset].IsComma() {
			if a[onset].IsComma() {
				target = lastTarget
			}
			if onset++; onset >= len(a) {
				it.end()
				return
			}
		}

		if target == "" && a[onset].IsFloat() {
			end := onset + 1
			for end < len(a) && a[end].IsFloat() {
				end++
			}
			it.Play.AtPrevious = it.Play.AtNext
			it.Play.AtDelta = onset
			it.Play.AtNext = end
			it.Play.Delta = clampDelay(a[onset].Num)
			it.Play.Delay = it.Play.Delta
			if it.hooks.OnDelay != nil {
				it.hooks.OnDelay(it, a[onset:end])
			}
			return
		}

		end := onset + 1
		for end < len(a) && (a[end].IsFloat() || a[end].IsSymbol()) {
			end++
		}
		if target == "" {
			if !a[onset].IsSymbol() {
				it.Play.AtNext = end
				continue
			}
			target = a[onset].Sym
			onset++
			if onset == end {
				it.Play.AtNext = end
				continue
			}
		}

		payload := a[onset:end]
		it.current = Event{}
		if payload[0].IsFloat() {
			if ev, ok := ParseMessage(payload); ok &&
				(it.hooks.OnTransform == nil || it.hooks.OnTransform(it, target, &ev)) {
				it.current = ev
			}
		}

		wasRestarted := it.restarted
		it.restarted = false
		if it.hooks.OnMessage != nil {
			it.hooks.OnMessage(it, target, payload)
		}
		if it.restarted {
			// relocated from inside the hook; keep the new position
			return
		}
		it.Play.AtPrevious = it.Play.AtNext
		it.Play.AtNext = end
		it.restarted = wasRestarted
		if it.finish == Forced {
			return
		}
	}
}

// Extent walks s from the start and returns its total duration in
// milliseconds and the number of messages it delivers.
func Extent(s *atom.Stream) (ms float64, messages int) {
	it := NewIteratorWithHooks(s, Hooks{
		OnDelay:   func(it *Iterator, _ []atom.Atom) { ms += it.Play.Delay },
		OnMessage: func(*Iterator, string, []atom.Atom) { messages++ },
	})
	ms = it.Play.Delay // the lead-in before the first event
	for it.Finished() == NotFinished {
		it.Advance()
	}
	return ms, messages
}

func (it *Iterator) end() {
	it.Play.Hide()
	it.finish = Natural
	if it.hooks.OnFinish != nil {
		it.hooks.OnFinish(it)
	}
}

func (it *Iterator) delay(d float64) {
	if it.hooks.OnDelay != nil {
		it.wrapDelay[0] = atom.Float(d)
		it.hooks.OnDelay(it, it.wrapDelay[:])
	}
}

func (it *Iterator) wrap() {
	if it.hooks.OnLoopWrap != nil {
		it.hooks.OnLoopWrap(it)
	}
}
