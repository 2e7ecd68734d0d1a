// Package xeq plays, steps through, edits and records timed event
// sequences stored as token streams, and moves them to and from MIDI files.
package xeq

import (
	"sync"

	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/seqfile"
	"github.com/cbegin/xeq-go/internal/sequencer"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownLocator = errors.New("xeq: unknown locator")
	ErrNoHost         = errors.New("xeq: no such sequence")
	ErrNoRegistry     = errors.New("xeq: sequence has no registry")
)

// Output receives the wire bytes of every channel message played.
type Output interface {
	Send(msg []byte) error
}

// Option configures a Sequence.
type Option func(*Sequence)

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Sequence) { s.log = log }
}

// WithClock replaces the wall clock, typically with a ManualClock.
func WithClock(c Clock) Option {
	return func(s *Sequence) { s.clock = c }
}

func WithOutput(out Output) Option {
	return func(s *Sequence) { s.out = out }
}

// WithObserver installs a callback for playback events. It runs with the
// sequence lock held and must not call back into the sequence.
func WithObserver(fn func(PlaybackEvent)) Option {
	return func(s *Sequence) { s.observer = fn }
}

// WithRegistry hosts the sequence under its name in r.
func WithRegistry(r *Registry) Option {
	return func(s *Sequence) { s.reg = r }
}

// WithRouter sets the router messages are delivered through by target.
func WithRouter(r *sequencer.Router) Option {
	return func(s *Sequence) { s.router = r }
}

// WithRepeat restarts playback from the beginning each time it ends.
func WithRepeat(enabled bool) Option {
	return func(s *Sequence) { s.repeat = enabled }
}

// WithFileOptions sets the logging, division and tempo used by the MIDI
// file methods.
func WithFileOptions(opts seqfile.Options) Option {
	return func(s *Sequence) { s.fileOpts = opts }
}

func WithTempo(f float64) Option {
	return func(s *Sequence) { s.tempo = tempoFactor(f) }
}

func WithTranspose(n int) Option {
	return func(s *Sequence) { s.transform.Transpose = clampTranspose(n) }
}

// WithTracks restricts playback to the targets a track template accepts.
func WithTracks(tt string) Option {
	return func(s *Sequence) { s.setTracks(tt) }
}

// Sequence holds a token stream and three iterators over it: auto for
// clocked playback, step for manual stepping, and walk for searches.
type Sequence struct {
	mu     *sync.Mutex
	name   string
	stream *atom.Stream

	auto, step, walk *sequencer.Iterator
	bedit, eedit     sequencer.Locator
	autoHooks        sequencer.Hooks
	stepHooks        sequencer.Hooks

	transform *sequencer.Transform
	tempo     float64 // clock ms per logical ms

	clock      Clock
	clockSet   bool
	clockDelay float64
	gen        uint64

	out      Output
	router   *sequencer.Router
	observer func(PlaybackEvent)
	log      logrus.FieldLogger
	repeat   bool
	fileOpts seqfile.Options

	reg    *Registry
	friend *view // set when the sequence reads another host's stream
}

// New returns an empty sequence named name.
func New(name string, opts ...Option) *Sequence {
	s := newSequence(name, opts)
	if s.reg != nil {
		s.mu.Lock()
		s.reg.Host(s)
		s.mu.Unlock()
	}
	return s
}

// NewView returns a sequence that reads and plays the stream hosted under
// name in r, with its own iterators, clock and playback settings. It
// follows the host as it is replaced, and is rewound when the host's
// contents are.
func NewView(r *Registry, name string, opts ...Option) *Sequence {
	s := newSequence(name, append(opts, WithRegistry(r)))
	s.friend = &view{s}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := r.Attach(name, s.friend); st != nil {
		s.bind(st)
	}
	return s
}

func newSequence(name string, opts []Option) *Sequence {
	st := atom.NewStream()
	s := &Sequence{
		name:      name,
		stream:    st,
		auto:      sequencer.NewIterator(st),
		step:      sequencer.NewIterator(st),
		walk:      sequencer.NewIterator(st),
		bedit:     sequencer.NewLocator(st),
		eedit:     sequencer.NewLocator(st),
		transform: sequencer.NewTransform(),
		tempo:     1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg != nil {
		s.mu = &s.reg.seqMu
	} else {
		s.mu = &sync.Mutex{}
	}
	if s.clock == nil {
		s.clock = NewClock()
	}
	if s.router == nil {
		s.router = sequencer.NewRouter()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.fileOpts.Log == nil {
		s.fileOpts.Log = s.log
	}
	s.autoHooks = s.defaultAutoHooks()
	s.stepHooks = s.defaultStepHooks(false)
	return s
}

// Close stops playback and leaves the registry.
func (s *Sequence) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
	s.flush()
	if s.reg == nil {
		return
	}
	if s.friend != nil {
		s.reg.Detach(s.friend)
	} else {
		s.reg.Unhost(s)
	}
}

func (s *Sequence) Name() string               { return s.name }
func (s *Sequence) Router() *sequencer.Router  { return s.router }
func (s *Sequence) Registry() *Registry        { return s.reg }
func (s *Sequence) Logger() logrus.FieldLogger { return s.log }

// Auto, Step and Walk expose the iterators for installing hooks. Use them
// only from hooks or while the sequence is not playing.
func (s *Sequence) Auto() *sequencer.Iterator { return s.auto }
func (s *Sequence) Step() *sequencer.Iterator { return s.step }
func (s *Sequence) Walk() *sequencer.Iterator { return s.walk }

// SetAutoHooks replaces the hooks installed by Bang.
func (s *Sequence) SetAutoHooks(h sequencer.Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoHooks = h
}

// Stream returns a copy of the tokens.
func (s *Sequence) Stream() *atom.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.Clone()
}

func (s *Sequence) bind(st *atom.Stream) {
	s.unset()
	s.stream = st
	s.auto.Bind(st)
	s.step.Bind(st)
	s.walk.Bind(st)
	s.bedit.Bind(st)
	s.eedit.Bind(st)
}

// view adapts a sequence to Friend. Its methods run with the shared
// registry lock already held.
type view struct{ s *Sequence }

func (v *view) Rebind(st *atom.Stream) { v.s.bind(st) }
func (v *view) Rewind()                { v.s.rewind() }

func (s *Sequence) emit(ev PlaybackEvent) {
	if s.observer != nil {
		s.observer(ev)
	}
}

func (s *Sequence) defaultAutoHooks() sequencer.Hooks {
	return sequencer.Hooks{
		OnDelay: func(it *sequencer.Iterator, _ []atom.Atom) {
			s.schedule(it.Play.Delay * s.tempo)
		},
		OnTransform: s.transform.Hook(),
		OnMessage: func(it *sequencer.Iterator, target string, payload []atom.Atom) {
			s.playMessage(SourceAuto, it, target, payload)
		},
		OnFinish:   s.autoFinished,
		OnLoopWrap: s.loopWrapped,
	}
}

func (s *Sequence) autoFinished(it *sequencer.Iterator) {
	s.clockSet = false
	if s.repeat && s.repeatable() {
		s.emit(PlaybackEvent{Kind: EventLoopCompleted, Source: SourceAuto, When: it.Play.When})
		s.flush()
		it.Rewind()
		s.start()
		return
	}
	s.emit(PlaybackEvent{Kind: EventPlaybackEnded, Source: SourceAuto})
}

// repeatable reports whether whole-sequence repeat can make progress: the
// stream must hold a message and last longer than zero.
func (s *Sequence) repeatable() bool {
	ms, messages := sequencer.Extent(s.stream)
	return ms > 0 && messages > 0
}

func (s *Sequence) loopWrapped(it *sequencer.Iterator) {
	if it.InLoopGap() {
		s.clockSet = false
		s.emit(PlaybackEvent{Kind: EventLoopCompleted, Source: SourceAuto, When: it.Play.When})
	}
	s.flush()
}

// defaultStepHooks reports each delay as an event. With drop set, stepped
// messages are neither transformed nor played.
func (s *Sequence) defaultStepHooks(drop bool) sequencer.Hooks {
	h := sequencer.Hooks{
		OnDelay: func(it *sequencer.Iterator, vector []atom.Atom) {
			s.emit(PlaybackEvent{Kind: EventDelay, Source: SourceStep, When: it.Play.When, Payload: copyAtoms(vector)})
		},
		OnFinish: func(it *sequencer.Iterator) {
			s.emit(PlaybackEvent{Kind: EventPlaybackEnded, Source: SourceStep})
		},
	}
	if !drop {
		h.OnTransform = s.transform.Hook()
		h.OnMessage = func(it *sequencer.Iterator, target string, payload []atom.Atom) {
			s.playMessage(SourceStep, it, target, payload)
		}
	}
	return h
}

// playMessage delivers a message to its target's receiver. A channel
// message that survived the transform is also sent to the output.
func (s *Sequence) playMessage(src Source, it *sequencer.Iterator, target string, payload []atom.Atom) {
	if len(payload) == 0 {
		return
	}
	s.router.Send(target, payload)
	ev := PlaybackEvent{Kind: EventMessage, Source: src, When: it.Play.When, Target: target, Payload: copyAtoms(payload)}
	if payload[0].IsFloat() {
		if cur := it.Current(); cur.Valid() {
			s.send(cur)
			ev.MIDI = cur
		}
	}
	s.emit(ev)
}

func (s *Sequence) send(ev sequencer.Event) {
	if s.out == nil {
		return
	}
	if err := s.out.Send(ev.Bytes()); err != nil {
		s.log.Warnf("xeq: %s: send %v: %v", s.name, ev, err)
	}
}

func (s *Sequence) flush() {
	s.transform.Notes.Flush(s.send)
}

func (s *Sequence) schedule(ms float64) {
	s.gen++
	gen := s.gen
	s.clockSet = true
	s.clockDelay = ms
	s.clock.Delay(ms, func() { s.tick(gen) })
}

func (s *Sequence) unset() {
	s.gen++
	s.clockSet = false
	s.clock.Unset()
}

// tick runs on the clock. A call scheduled before the last reschedule is
// stale and ignored.
func (s *Sequence) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.clockSet = false
	s.auto.Advance()
}

func (s *Sequence) start() {
	s.schedule(s.auto.Play.Delay * s.tempo)
}

func (s *Sequence) stop() {
	s.auto.Restart()
	wasSet := s.clockSet
	left := s.clockDelay - s.clock.Since()
	s.unset()
	if wasSet {
		if left < 0 {
			left = 0
		}
		play := &s.auto.Play
		rest := left / s.tempo
		if rest < play.Delay {
			play.When += play.Delay - rest
			play.Delay = rest
		}
	}
}

func (s *Sequence) rewind() {
	s.auto.Rewind()
	s.step.Rewind()
	s.unset()
}

func (s *Sequence) bang() {
	s.flush()
	s.auto.SetHooks(s.autoHooks)
	s.start()
}

// Bang plays from the current auto position with any loop dropped.
func (s *Sequence) Bang() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auto.LoopBegin.Reset()
	s.auto.LoopEnd.Hide()
	s.bang()
}

// Start resumes clocked playback where Stop left it.
func (s *Sequence) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auto.SetHooks(s.autoHooks)
	s.start()
}

// Stop pauses playback, keeping the time left until the next event.
func (s *Sequence) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

// Rewind moves the auto and step iterators to the start and cancels the
// clock.
func (s *Sequence) Rewind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewind()
}

// Flush turns off every note the sequence has sounding.
func (s *Sequence) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
}

// Playing reports whether the clock is running.
func (s *Sequence) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clockSet
}

// Next steps the step iterator to its next delay. With drop set, the
// messages passed over are not played.
func (s *Sequence) Next(drop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next(drop)
}

func (s *Sequence) next(drop bool) {
	if drop {
		s.step.SetHooks(s.defaultStepHooks(true))
	} else {
		s.step.SetHooks(s.stepHooks)
	}
	s.step.Advance()
}

// NextNote steps until a time slice ends on a sounding note-on, or the
// stream ends.
func (s *Sequence) NextNote(drop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNote(drop)
}

func (s *Sequence) nextNote(drop bool) {
	for {
		s.next(drop)
		if s.step.Finished() != sequencer.NotFinished {
			return
		}
		if cur := s.step.Current(); cur.Status == 0x90 && cur.Data2 > 0 {
			return
		}
	}
}

// Loop plays the range [from, to) of the auto iterator repeatedly, starting
// now. It returns false when the range holds no events.
func (s *Sequence) Loop(from, to float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
	s.auto.SetHooks(s.autoHooks)
	return s.auto.Loop(from, to)
}

// Reloop jumps back to the start of the current loop.
func (s *Sequence) Reloop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
	s.auto.SetHooks(s.autoHooks)
	return s.auto.Reloop()
}

// BreakLoop lets playback run on past the loop end.
func (s *Sequence) BreakLoop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auto.StopLoop()
}

func tempoFactor(f float64) float64 {
	switch {
	case f == 0:
		f = 1
	case f < 1e-20:
		f = 1e-20
	case f > 1e20:
		f = 1e20
	}
	return 1 / f
}

// SetTempo sets the playback speed, 1 being as written and 2 twice as
// fast. A pending wait is rescaled.
func (s *Sequence) SetTempo(f float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tempo := tempoFactor(f)
	if !s.clockSet {
		s.tempo = tempo
		return
	}
	left := s.clockDelay - s.clock.Since()
	if left < 0 {
		left = 0
	} else {
		left *= tempo / s.tempo
	}
	s.tempo = tempo
	s.schedule(left)
}

// Tempo returns the playback speed.
func (s *Sequence) Tempo() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 1 / s.tempo
}

func clampTranspose(n int) int {
	switch {
	case n < -127:
		return -127
	case n > 127:
		return 127
	}
	return n
}

// SetTranspose shifts the pitch of notes played from now on. Notes already
// sounding are released at the pitch they started with.
func (s *Sequence) SetTranspose(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.Transpose = clampTranspose(n)
}

func (s *Sequence) Transpose() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform.Transpose
}

// SetTracks restricts playback to the targets tt accepts. An empty
// template, or "all", plays everything.
func (s *Sequence) SetTracks(tt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTracks(tt)
}

func (s *Sequence) setTracks(tt string) {
	if tt == "" || tt == "all" {
		s.transform.Tracks = nil
		return
	}
	t := seqfile.ParseTemplate(tt)
	s.transform.Tracks = &t
}

func (s *Sequence) Tracks() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks()
}

func (s *Sequence) tracks() string {
	if s.transform.Tracks == nil {
		return "all"
	}
	return s.transform.Tracks.String()
}

func copyAtoms(a []atom.Atom) []atom.Atom {
	return append([]atom.Atom(nil), a...)
}
