package xeq

import (
	"github.com/cbegin/xeq-go/internal/atom"
)

const defaultTrackName = "Track-1"

// Recorder captures incoming messages into its own sequence, each stamped
// with the time elapsed since the previous one.
type Recorder struct {
	seq       *Sequence
	track     string
	recording bool
	prev      float64
}

// NewRecorder returns a recorder whose sequence is named name. The clock
// given by WithClock times the recording.
func NewRecorder(name string, opts ...Option) *Recorder {
	return &Recorder{seq: New(name, opts...), track: defaultTrackName}
}

func (r *Recorder) Sequence() *Sequence { return r.seq }

// Record clears the sequence and starts timing from now.
func (r *Recorder) Record() {
	r.seq.mu.Lock()
	defer r.seq.mu.Unlock()
	r.seq.clear()
	r.recording = true
	r.prev = r.seq.clock.Now()
}

func (r *Recorder) StopRecording() {
	r.seq.mu.Lock()
	defer r.seq.mu.Unlock()
	r.recording = false
}

func (r *Recorder) Recording() bool {
	r.seq.mu.Lock()
	defer r.seq.mu.Unlock()
	return r.recording
}

// Retrack sets the target later messages are recorded under.
func (r *Recorder) Retrack(name string) {
	r.seq.mu.Lock()
	defer r.seq.mu.Unlock()
	if name == "" {
		name = defaultTrackName
	}
	r.track = name
}

// Add records a message addressed to the current track. It is ignored
// while not recording.
func (r *Recorder) Add(args ...atom.Atom) {
	r.seq.mu.Lock()
	defer r.seq.mu.Unlock()
	if !r.recording {
		return
	}
	now := r.seq.clock.Now()
	msg := make([]atom.Atom, 0, len(args)+2)
	msg = append(msg, atom.Float(now-r.prev), atom.Symbol(r.track))
	msg = append(msg, args...)
	r.seq.stream.AddMessage(msg...)
	r.prev = now
}

// AddMIDI records a channel message received as wire bytes, in the
// status, data, 1-based channel form sequences store. Other messages are
// ignored.
func (r *Recorder) AddMIDI(msg []byte) {
	if len(msg) < 2 || msg[0] < 0x80 || msg[0] >= 0xf0 {
		return
	}
	status := float64(msg[0] & 0xf0)
	channel := float64(msg[0]&0x0f) + 1
	args := []atom.Atom{atom.Float(status), atom.Float(float64(msg[1]))}
	if status != 0xc0 && status != 0xd0 {
		if len(msg) < 3 {
			return
		}
		args = append(args, atom.Float(float64(msg[2])))
	}
	r.Add(append(args, atom.Float(channel))...)
}
