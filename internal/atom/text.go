package atom

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parse reads the text syntax of a stream: whitespace-separated tokens, ';'
// and ',' as terminators, numbers as floats and anything else as symbols.
// A backslash escapes the next character inside a symbol.
func Parse(text string) []Atom {
	var (
		out []Atom
		buf strings.Builder
		esc bool // current token contains an escape, never a number
	)
	flush := func() {
		if buf.Len() == 0 && !esc {
			return
		}
		word := buf.String()
		buf.Reset()
		if !esc {
			if f, ok := parseNumber(word); ok {
				out = append(out, Float(f))
				return
			}
		}
		esc = false
		out = append(out, Symbol(word))
	}
	rs := []rune(text)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\\' && i+1 < len(rs):
			i++
			buf.WriteRune(rs[i])
			esc = true
		case r == ';':
			flush()
			out = append(out, Semi())
		case r == ',':
			flush()
			out = append(out, Comma())
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return out
}

// Format renders atoms in text syntax, one message per line.
func Format(atoms []Atom) string {
	var b strings.Builder
	newline := true
	for _, a := range atoms {
		switch a.Kind {
		case KindSemi, KindComma:
			b.WriteString(a.String())
			if a.Kind == KindSemi {
				b.WriteByte('\n')
				newline = true
			} else {
				newline = false
			}
		default:
			if !newline {
				b.WriteByte(' ')
			}
			b.WriteString(a.String())
			newline = false
		}
	}
	return b.String()
}

// ReadText parses a whole reader into the stream, replacing its contents.
func (s *Stream) ReadText(r io.Reader) error {
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return errors.Wrap(err, "read text stream")
	}
	s.atoms = Parse(string(data))
	return nil
}

// WriteText writes the stream in text syntax.
func (s *Stream) WriteText(w io.Writer) error {
	if _, err := io.WriteString(w, Format(s.atoms)); err != nil {
		return errors.Wrap(err, "write text stream")
	}
	return nil
}

func (s *Stream) String() string { return Format(s.Atoms()) }

func parseNumber(word string) (float64, bool) {
	f, err := strconv.ParseFloat(word, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func escapeSymbol(sym string) string {
	if sym == "" {
		return `\ `
	}
	_, needs := parseNumber(sym)
	if !needs && !strings.ContainsAny(sym, " \t\n\r;,\\") {
		return sym
	}
	var b strings.Builder
	for i, r := range sym {
		if strings.ContainsRune(" \t\n\r;,\\", r) || (needs && i == 0) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
