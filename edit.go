package xeq

import (
	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/pkg/errors"
)

// Add appends one message, terminated by a separator.
func (s *Sequence) Add(atoms ...atom.Atom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream.AddMessage(atoms...)
}

// Add2 appends raw tokens with no separator.
func (s *Sequence) Add2(atoms ...atom.Atom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream.Add(atoms...)
}

// AddLine appends tokens, turning the symbols _semi_ and _comma_ into
// separators.
func (s *Sequence) AddLine(atoms ...atom.Atom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range atoms {
		if a.IsSymbol() {
			switch a.Sym {
			case "_semi_":
				a = atom.Semi()
			case "_comma_":
				a = atom.Comma()
			}
		}
		s.stream.Add(a)
	}
}

// Clear empties the sequence and rewinds it and its friends.
func (s *Sequence) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Sequence) clear() {
	s.rewind()
	s.flush()
	s.stream.Clear()
	s.rewindFriends()
}

// Set replaces the contents with a single message.
func (s *Sequence) Set(atoms ...atom.Atom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	s.stream.AddMessage(atoms...)
}

// Clone replaces the contents with a copy of the sequence hosted as name.
func (s *Sequence) Clone(name string) error {
	return s.clone(name, false)
}

// AddClone appends a copy of the sequence hosted as name.
func (s *Sequence) AddClone(name string) error {
	return s.clone(name, true)
}

func (s *Sequence) clone(name string, appending bool) error {
	if s.reg == nil {
		return ErrNoRegistry
	}
	host, ok := s.reg.Lookup(name)
	if !ok {
		return errors.Wrapf(ErrNoHost, "%q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src := host.stream.Clone()
	if !appending {
		s.clear()
	}
	s.stream.Add(src.Atoms()...)
	return nil
}

// replace swaps in new contents read from a file and rewinds everything
// that reads the stream.
func (s *Sequence) replace(st *atom.Stream) {
	s.rewind()
	s.flush()
	s.stream.Replace(st)
	s.rewindFriends()
}

func (s *Sequence) rewindFriends() {
	if s.reg == nil || s.friend != nil {
		return
	}
	s.reg.Broadcast(s.name, Friend.Rewind)
}
