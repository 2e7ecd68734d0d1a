package atom

// Stream is the mutable, index-addressable token buffer a sequence lives in.
// The zero value is an empty stream ready for use.
type Stream struct {
	atoms []Atom
}

func NewStream(atoms ...Atom) *Stream {
	s := &Stream{}
	s.Add(atoms...)
	return s
}

func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.atoms)
}

// At returns the token at i. It panics if i is out of range.
func (s *Stream) At(i int) Atom { return s.atoms[i] }

// Atoms exposes the underlying slice. Callers must not retain it across
// mutations of the stream.
func (s *Stream) Atoms() []Atom {
	if s == nil {
		return nil
	}
	return s.atoms
}

func (s *Stream) SetAt(i int, a Atom) { s.atoms[i] = a }

// Add appends tokens.
func (s *Stream) Add(atoms ...Atom) {
	s.atoms = append(s.atoms, atoms...)
}

// AddMessage appends tokens followed by a separator.
func (s *Stream) AddMessage(atoms ...Atom) {
	s.atoms = append(s.atoms, atoms...)
	s.atoms = append(s.atoms, Semi())
}

func (s *Stream) Clear() {
	s.atoms = s.atoms[:0]
}

// Resize sets the stream length to n tokens, zero-filled with floats. Used to
// pre-size the stream before an in-place fill.
func (s *Stream) Resize(n int) {
	if cap(s.atoms) >= n {
		s.atoms = s.atoms[:n]
		for i := range s.atoms {
			s.atoms[i] = Atom{}
		}
		return
	}
	s.atoms = make([]Atom, n)
}

// Replace swaps the contents with those of other, leaving other empty.
func (s *Stream) Replace(other *Stream) {
	s.atoms, other.atoms = other.atoms, nil
}

// Clone returns a deep copy.
func (s *Stream) Clone() *Stream {
	out := &Stream{atoms: make([]Atom, len(s.atoms))}
	copy(out.atoms, s.atoms)
	return out
}

// Messages counts the separator-terminated messages.
func (s *Stream) Messages() int {
	n := 0
	for _, a := range s.atoms {
		if a.Kind == KindSemi {
			n++
		}
	}
	return n
}

// Next returns the index of the first token at or after i that is not a
// float or symbol, or Len() when none remains.
func (s *Stream) Next(i int) int {
	for i < len(s.atoms) && (s.atoms[i].Kind == KindFloat || s.atoms[i].Kind == KindSymbol) {
		i++
	}
	return i
}
