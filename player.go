package xeq

import (
	"sync"

	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/sequencer"
	"github.com/sirupsen/logrus"
)

// PlaybackEvent carries playback events from Watch() and WithObserver.
type PlaybackEvent struct {
	Kind    int // EventLoopCompleted, EventPlaybackEnded, EventMessage or EventDelay
	Source  Source
	When    float64
	Target  string
	Payload []atom.Atom
	MIDI    sequencer.Event // set for played channel messages
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
	EventMessage
	EventDelay
)

// Source tells which iterator produced an event.
type Source string

const (
	SourceAuto Source = "auto"
	SourceStep Source = "step"
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	name         string
	loopPlayback bool
	tempo        float64
	transpose    int
	tracks       string
	clock        Clock
	registry     *Registry
	log          logrus.FieldLogger
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{name: "xeq", tempo: 1}
}

func WithName(name string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.name = name
	}
}

func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

func WithPlayerTempo(f float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.tempo = f
	}
}

func WithPlayerTranspose(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.transpose = n
	}
}

func WithPlayerTracks(tt string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.tracks = tt
	}
}

func WithPlayerClock(c Clock) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.clock = c
	}
}

func WithPlayerRegistry(r *Registry) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.registry = r
	}
}

func WithPlayerLogger(log logrus.FieldLogger) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.log = log
	}
}

// Player plays a sequence to an output device in real time.
type Player struct {
	mu        sync.Mutex
	seq       *Sequence
	done      chan struct{}
	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

// NewPlayer returns a player sending to out, which may be nil.
func NewPlayer(out Output, opts ...PlayerOption) *Player {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Player{}
	seqOpts := []Option{
		WithOutput(out),
		WithObserver(p.onEvent),
		WithRepeat(cfg.loopPlayback),
		WithTempo(cfg.tempo),
		WithTranspose(cfg.transpose),
		WithTracks(cfg.tracks),
	}
	if cfg.clock != nil {
		seqOpts = append(seqOpts, WithClock(cfg.clock))
	}
	if cfg.registry != nil {
		seqOpts = append(seqOpts, WithRegistry(cfg.registry))
	}
	if cfg.log != nil {
		seqOpts = append(seqOpts, WithLogger(cfg.log))
	}
	p.seq = New(cfg.name, seqOpts...)
	return p
}

// Sequence returns the sequence being played, for loading and editing.
func (p *Player) Sequence() *Sequence { return p.seq }

// Load reads a MIDI file or text listing into the player.
func (p *Player) Load(path, tracks string) error {
	return p.seq.LoadFile(path, tracks)
}

// onEvent runs with the sequence lock held.
func (p *Player) onEvent(ev PlaybackEvent) {
	if ev.Source != SourceAuto {
		return
	}
	p.sendEvent(ev)
	if ev.Kind == EventPlaybackEnded {
		p.signalDone()
	}
}

// Play starts from the beginning.
func (p *Player) Play() error {
	if p.seq.Status().Tokens == 0 {
		return sequencer.ErrEmpty
	}
	p.mu.Lock()
	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})
	p.mu.Unlock()

	p.seq.Rewind()
	p.seq.Bang()
	return nil
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.seq.Stop()
}

func (p *Player) Resume() {
	p.seq.Start()
}

// Stop halts playback, silences sounding notes and rewinds.
func (p *Player) Stop() {
	p.seq.Stop()
	p.seq.Flush()
	p.seq.Rewind()
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done == nil {
		return
	}
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded, Source: SourceAuto})
	close(done)
}

// Wait blocks until the current playback ends. When loop playback is enabled,
// Wait blocks until Stop (use Watch for loop-counting instead).
// Wait returns immediately if no playback is active.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events. Events are sent when:
//   - EventLoopCompleted: a loop or whole-sequence repeat wrapped around
//   - EventPlaybackEnded: playback finished or was stopped
//   - EventMessage: a message was played
//
// The channel is buffered (cap 8) and events are dropped when it is full.
// Only the most recent Watch() channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetTempo sets the playback speed; 2 plays twice as fast. It takes effect
// immediately.
func (p *Player) SetTempo(f float64) { p.seq.SetTempo(f) }

func (p *Player) Tempo() float64 { return p.seq.Tempo() }

// SetTranspose shifts notes by semitones from the next note-on.
func (p *Player) SetTranspose(n int) { p.seq.SetTranspose(n) }

func (p *Player) Transpose() int { return p.seq.Transpose() }

// Position returns the logical playback time in milliseconds.
func (p *Player) Position() float64 {
	return p.seq.TimeQuery().Current
}
