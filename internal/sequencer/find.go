package sequencer

import (
	"github.com/cbegin/xeq-go/internal/atom"
)

// MatchPayload reports whether payload starts with pattern, comparing floats
// and symbols by value. An empty pattern matches anything.
func MatchPayload(payload, pattern []atom.Atom) bool {
	if len(payload) < len(pattern) {
		return false
	}
	for i, p := range pattern {
		if (p.IsFloat() || p.IsSymbol()) && p.Equal(payload[i]) {
			continue
		}
		return false
	}
	return true
}

// Find rewinds it and walks the stream for the first message addressed to
// target (any target when empty) whose payload starts with pattern. It
// returns a locator parked at the time slice holding the match. The
// iterator is left rewound and its hooks are restored.
func (it *Iterator) Find(target string, pattern []atom.Atom) (Locator, bool) {
	saved := it.hooks
	defer func() {
		it.hooks = saved
		it.Rewind()
	}()
	it.hooks = Hooks{
		OnMessage: func(it *Iterator, t string, payload []atom.Atom) {
			if (target == "" || t == target) && MatchPayload(payload, pattern) {
				it.ForceFinish()
			}
		},
	}
	it.Rewind()
	var (
		ndx  int
		when float64
	)
	for it.finish == NotFinished {
		ndx = it.Play.AtNext
		it.Advance()
		when = it.Play.When
	}
	if it.finish != Forced {
		return Locator{}, false
	}
	found := NewLocator(it.Play.stream)
	found.When = when
	found.Delay = 0
	found.AtNext = ndx
	return found, true
}
