package xeq

import (
	"sync"

	"github.com/cbegin/xeq-go/internal/atom"
)

// Friend is anything that reads a hosted stream without owning it. A friend
// is told when the host changes its stream and when the host rewinds after
// replacing the contents. Both calls are made with the registry's sequence
// lock held.
type Friend interface {
	Rebind(s *atom.Stream)
	Rewind()
}

// Registry names hosts and tracks their friends. All sequences attached to
// one registry share a single lock, so hosts and friends never observe each
// other mid-edit.
type Registry struct {
	seqMu sync.Mutex

	mu      sync.Mutex
	hosts   map[string]*Sequence
	friends map[string][]Friend
}

func NewRegistry() *Registry {
	return &Registry{
		hosts:   make(map[string]*Sequence),
		friends: make(map[string][]Friend),
	}
}

// Host makes s the host for its name. Friends already waiting on the name
// are bound to the new stream. A previous host under the same name is
// replaced.
func (r *Registry) Host(s *Sequence) {
	r.mu.Lock()
	r.hosts[s.name] = s
	friends := append([]Friend(nil), r.friends[s.name]...)
	r.mu.Unlock()
	for _, f := range friends {
		f.Rebind(s.stream)
	}
}

// Unhost removes s if it is still the host for its name.
func (r *Registry) Unhost(s *Sequence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hosts[s.name] == s {
		delete(r.hosts, s.name)
	}
}

// Lookup returns the host for name, if any.
func (r *Registry) Lookup(name string) (*Sequence, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.hosts[name]
	return s, ok
}

// Attach registers f as a friend of name and returns the host's stream, or
// nil when nothing is hosted under that name yet.
func (r *Registry) Attach(name string, f Friend) *atom.Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.friends[name] = append(r.friends[name], f)
	if s, ok := r.hosts[name]; ok {
		return s.stream
	}
	return nil
}

// Detach removes f from every name it is attached to.
func (r *Registry) Detach(f Friend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, list := range r.friends {
		out := list[:0]
		for _, g := range list {
			if g != f {
				out = append(out, g)
			}
		}
		if len(out) == 0 {
			delete(r.friends, name)
		} else {
			r.friends[name] = out
		}
	}
}

// Friends returns the friends attached to name.
func (r *Registry) Friends(name string) []Friend {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Friend(nil), r.friends[name]...)
}

// Broadcast calls fn for each friend of name. The registry lock is not held
// while fn runs.
func (r *Registry) Broadcast(name string, fn func(Friend)) {
	for _, f := range r.Friends(name) {
		fn(f)
	}
}
