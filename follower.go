package xeq

import (
	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/sequencer"
)

const defaultAhead = 3

// Miss describes a fed pitch that matched none of the notes ahead.
type Miss struct {
	First     int // interval to the first note ahead
	Best      int // smallest interval to any note ahead
	BestIndex int // which note ahead gave Best
}

// FollowerOptions configures a Follower. Callbacks run with the sequence
// lock held.
type FollowerOptions struct {
	// Ahead is how many notes are matched against; default 3.
	Ahead int
	// OnDelay receives each delay vector the step iterator stops at.
	OnDelay func(vector []atom.Atom)
	// OnFlag receives, for each sounding note-on played, its pitch when
	// clocked, or when stepped 1 if it matches the pitch being fed and 0
	// if it was skipped.
	OnFlag func(v int)
	OnMiss func(Miss)
	// OnEnd is called when the score runs out.
	OnEnd func()
}

type aheadNote struct {
	pitch int // -1 when empty
	at    int // token index of the note's message
}

// Follower tracks a live performance against a score. Fed pitches are
// matched with the next few notes of the score; a hit steps the score up
// to the matched note.
type Follower struct {
	seq   *Sequence
	opts  FollowerOptions
	ahead []aheadNote
	slot  int
	pitch int
}

// NewFollower follows the sequence hosted as name in r.
func NewFollower(r *Registry, name string, opts FollowerOptions, seqOpts ...Option) *Follower {
	f := &Follower{opts: opts, pitch: -1}
	f.seq = NewView(r, name, seqOpts...)
	f.seq.mu.Lock()
	defer f.seq.mu.Unlock()
	f.seq.autoHooks = sequencer.Hooks{
		OnDelay: func(it *sequencer.Iterator, _ []atom.Atom) {
			f.seq.schedule(it.Play.Delay * f.seq.tempo)
		},
		OnMessage: f.playMessage,
		OnFinish:  f.finished,
	}
	f.seq.walk.SetHooks(sequencer.Hooks{OnMessage: f.aheadMessage})
	f.reset(opts.Ahead)
	return f
}

func (f *Follower) Sequence() *Sequence { return f.seq }

func (f *Follower) flag(v int) {
	if f.opts.OnFlag != nil {
		f.opts.OnFlag(v)
	}
}

func (f *Follower) finished(it *sequencer.Iterator) {
	if it == f.seq.auto {
		f.seq.clockSet = false
	}
	if f.opts.OnEnd != nil {
		f.opts.OnEnd()
	}
}

func (f *Follower) route(target string, payload []atom.Atom) {
	if len(payload) > 0 {
		f.seq.router.Send(target, payload)
	}
}

func (f *Follower) playMessage(it *sequencer.Iterator, target string, payload []atom.Atom) {
	cur := it.Current()
	if !cur.Valid() {
		f.route(target, payload)
		return
	}
	if cur.Status == 0x90 && cur.Data2 > 0 {
		f.flag(cur.Data1)
	}
}

func (f *Follower) stepMessage(it *sequencer.Iterator, target string, payload []atom.Atom) {
	cur := it.Current()
	if !cur.Valid() {
		f.route(target, payload)
		return
	}
	if cur.Status == 0x90 && cur.Data2 > 0 {
		if cur.Data1 == f.pitch {
			f.flag(1)
		} else {
			f.flag(0)
		}
	}
}

func (f *Follower) aheadMessage(it *sequencer.Iterator, _ string, _ []atom.Atom) {
	cur := it.Current()
	if cur.Status != 0x90 || cur.Data2 <= 0 {
		return
	}
	if f.slot < len(f.ahead) && f.ahead[f.slot].pitch < 0 {
		f.ahead[f.slot] = aheadNote{pitch: cur.Data1, at: it.Play.AtNext}
	}
}

func (f *Follower) stepHooks(drop bool) sequencer.Hooks {
	h := sequencer.Hooks{OnFinish: f.finished}
	if f.opts.OnDelay != nil {
		h.OnDelay = func(_ *sequencer.Iterator, vector []atom.Atom) { f.opts.OnDelay(vector) }
	}
	if !drop {
		h.OnMessage = f.stepMessage
	}
	return h
}

func (f *Follower) reset(n int) {
	switch {
	case n > 0:
		f.ahead = make([]aheadNote, n)
	case len(f.ahead) == 0:
		f.ahead = make([]aheadNote, defaultAhead)
	}
	for i := range f.ahead {
		f.ahead[i] = aheadNote{pitch: -1}
	}
	f.seq.walk.Rewind()
}

// lookahead fills the ahead slots with the next notes after the step
// position.
func (f *Follower) lookahead() {
	walk := f.seq.walk
	walk.SetToIterator(f.seq.step)
	for f.slot = 0; f.slot < len(f.ahead); f.slot++ {
		for walk.Finished() == sequencer.NotFinished {
			walk.Advance()
			if f.ahead[f.slot].pitch >= 0 {
				break
			}
		}
		if walk.Finished() != sequencer.NotFinished {
			break
		}
	}
}

// Follow collects the notes ahead of the step position. n > 0 changes how
// many are kept.
func (f *Follower) Follow(n int) {
	f.seq.mu.Lock()
	defer f.seq.mu.Unlock()
	f.follow(n)
}

func (f *Follower) follow(n int) {
	f.reset(n)
	f.lookahead()
}

// Ahead returns the pitches currently expected, -1 for empty slots.
func (f *Follower) Ahead() []int {
	f.seq.mu.Lock()
	defer f.seq.mu.Unlock()
	out := make([]int, len(f.ahead))
	for i, a := range f.ahead {
		out[i] = a.pitch
	}
	return out
}

// Feed matches a performed pitch against the notes ahead. On a hit the
// step iterator plays up to and including the matched note, skipped notes
// flagging 0 and the match 1, and the notes ahead are collected again. On
// a miss nothing moves and the intervals are reported.
func (f *Follower) Feed(pitch int) (Miss, bool) {
	f.seq.mu.Lock()
	defer f.seq.mu.Unlock()
	defer func() { f.pitch = -1 }()
	if pitch < 0 {
		return Miss{}, false
	}
	f.pitch = pitch
	best, bestIndex := int(^uint(0)>>1), 0
	for i, a := range f.ahead {
		interval := pitch - a.pitch
		if interval == 0 {
			step := f.seq.step
			step.SetHooks(f.stepHooks(false))
			for step.Play.AtNext >= 0 && step.Play.AtNext <= a.at &&
				step.Finished() == sequencer.NotFinished {
				step.Advance()
			}
			f.follow(0)
			return Miss{}, true
		}
		if abs(interval) < abs(best) {
			best, bestIndex = interval, i
		}
	}
	m := Miss{First: pitch - f.ahead[0].pitch, Best: best, BestIndex: bestIndex}
	if f.opts.OnMiss != nil {
		f.opts.OnMiss(m)
	}
	return m, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Next steps the score by one delay.
func (f *Follower) Next(drop bool) {
	f.seq.mu.Lock()
	defer f.seq.mu.Unlock()
	f.seq.step.SetHooks(f.stepHooks(drop))
	f.seq.step.Advance()
}

// NextNote steps the score to just past the next sounding note-on.
func (f *Follower) NextNote(drop bool) {
	f.seq.mu.Lock()
	defer f.seq.mu.Unlock()
	step := f.seq.step
	step.SetHooks(f.stepHooks(drop))
	for step.Finished() == sequencer.NotFinished {
		step.Advance()
		if cur := step.Current(); cur.Status == 0x90 && cur.Data2 > 0 {
			return
		}
	}
}

// Bang plays the score on the clock, flagging the pitch of each note.
func (f *Follower) Bang() {
	f.seq.mu.Lock()
	defer f.seq.mu.Unlock()
	f.seq.auto.SetHooks(f.seq.autoHooks)
	f.seq.start()
}

func (f *Follower) Stop()   { f.seq.Stop() }
func (f *Follower) Rewind() { f.seq.Rewind() }
