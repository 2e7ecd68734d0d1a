package sequencer

import (
	"sort"
	"sync"

	"github.com/cbegin/xeq-go/internal/atom"
)

// Receiver takes the messages addressed to a target name.
type Receiver interface {
	Receive(target string, payload []atom.Atom)
}

type ReceiverFunc func(target string, payload []atom.Atom)

func (f ReceiverFunc) Receive(target string, payload []atom.Atom) { f(target, payload) }

// Router dispatches messages to receivers by target name. Targets with no
// receiver of their own go to the fallback, if any.
type Router struct {
	mu        sync.Mutex
	receivers map[string]Receiver
	fallback  Receiver
}

func NewRouter() *Router {
	return &Router{receivers: make(map[string]Receiver)}
}

// Add registers r for target, replacing any previous receiver.
func (r *Router) Add(target string, rcv Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receivers[target] = rcv
}

func (r *Router) Remove(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.receivers, target)
}

// SetFallback sets the receiver for unregistered targets. nil drops them.
func (r *Router) SetFallback(rcv Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = rcv
}

func (r *Router) receiver(target string) Receiver {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rcv, ok := r.receivers[target]; ok {
		return rcv
	}
	return r.fallback
}

// Targets returns the registered target names in order.
func (r *Router) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.receivers))
	for name := range r.receivers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Send delivers payload and reports whether anything received it. The
// receiver is called without the router lock held.
func (r *Router) Send(target string, payload []atom.Atom) bool {
	rcv := r.receiver(target)
	if rcv == nil {
		return false
	}
	rcv.Receive(target, payload)
	return true
}
