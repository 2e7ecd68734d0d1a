// Package atom holds the token stream a sequence is stored in.
package atom

import (
	"strconv"
)

// Kind identifies the type of a token.
type Kind uint8

const (
	KindFloat Kind = iota
	KindSymbol
	KindSemi  // hard terminator: next message needs its own target
	KindComma // soft terminator: next message reuses the previous target
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindSymbol:
		return "symbol"
	case KindSemi:
		return "semi"
	case KindComma:
		return "comma"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Atom is one token of a stream.
type Atom struct {
	Kind Kind
	Num  float64
	Sym  string
}

func Float(f float64) Atom { return Atom{Kind: KindFloat, Num: f} }
func Symbol(s string) Atom { return Atom{Kind: KindSymbol, Sym: s} }
func Semi() Atom           { return Atom{Kind: KindSemi} }
func Comma() Atom          { return Atom{Kind: KindComma} }

func (a Atom) IsFloat() bool  { return a.Kind == KindFloat }
func (a Atom) IsSymbol() bool { return a.Kind == KindSymbol }
func (a Atom) IsSemi() bool   { return a.Kind == KindSemi }
func (a Atom) IsComma() bool  { return a.Kind == KindComma }

// Equal compares kind and value.
func (a Atom) Equal(b Atom) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindFloat:
		return a.Num == b.Num
	case KindSymbol:
		return a.Sym == b.Sym
	}
	return true
}

// String renders the atom in text syntax.
func (a Atom) String() string {
	switch a.Kind {
	case KindFloat:
		return strconv.FormatFloat(a.Num, 'g', -1, 64)
	case KindSymbol:
		return escapeSymbol(a.Sym)
	case KindSemi:
		return ";"
	case KindComma:
		return ","
	}
	return "?"
}

// Floats builds a run of float atoms.
func Floats(vals ...float64) []Atom {
	out := make([]Atom, len(vals))
	for i, v := range vals {
		out[i] = Float(v)
	}
	return out
}
