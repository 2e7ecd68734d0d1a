// Package seqfile moves sequences between token streams and MIDI files.
//
// A file is read into one 7-token slot per channel event:
//
//	delay target status data1 data2|channel channel|0 ;
//
// which keeps every event the same width so tracks can be merged and
// separated by sorting in place.
package seqfile

import (
	"fmt"
	"math"
	"strings"
)

const (
	defaultBase  = "-"
	defaultTrack = "-track"
)

// Template selects and names tracks. Its text form is
// [first]:[last]:[start]<base>; see ParseTemplate.
type Template struct {
	First   int
	Last    int
	Start   int // zero for a constant target
	Base    string
	Default string // set when the base is a bare dash
	Given   string
}

// ParseTemplate decodes a track template. Up to three colon-separated
// numbers give first, last and start; the rest is the base name.
//
// "" and "-" read every track under its own name, or "<n>-track" when it
// has none. "lead" merges every track into one target. "2:3:5-lead" keeps
// tracks 2 and 3 as "5-lead" and "6-lead".
func ParseTemplate(s string) Template {
	if s == "" {
		s = defaultBase
	}
	t := Template{Given: s}
	var nums [3]int
	colons := 0
	rest := s
	for i := range nums {
		j := 0
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			if nums[i] < math.MaxInt32/10 {
				nums[i] = nums[i]*10 + int(rest[j]-'0')
			}
			j++
		}
		rest = rest[j:]
		if strings.HasPrefix(rest, ":") && colons < 2 {
			colons++
			rest = rest[1:]
		}
	}
	switch colons {
	case 2:
		t.First, t.Last, t.Start = nums[0], nums[1], nums[2]
	case 1:
		t.First, t.Last = nums[0], nums[1]
	default:
		t.First, t.Last = nums[0], nums[0]
	}
	if t.First == 0 {
		t.First = 1
	}
	if t.Last == 0 {
		t.Last = math.MaxInt32
	} else if t.Last < t.First {
		t.First = math.MaxInt32
	}
	switch {
	case rest == "":
		if t.Start == 0 {
			t.Start = t.First
		}
		t.Base = defaultBase
		t.Default = defaultTrack
	case rest[0] == '-':
		t.Base = rest
		if t.Start == 0 {
			t.Start = t.First
		}
		if rest == defaultBase {
			t.Default = defaultTrack
		}
	default:
		t.Base = rest
	}
	return t
}

func (t Template) String() string { return t.Given }

// Constant reports whether every selected track maps to the same target.
func (t Template) Constant() bool { return t.Start == 0 }

// InRange reports whether the n-th nonempty track (1-based) is selected.
func (t Template) InRange(n int) bool { return n >= t.First && n <= t.Last }

func (t Template) suffix() string {
	if t.Default != "" {
		return t.Default
	}
	return t.Base
}

// Target names the i-th selected track (0-based) when the file gives it no
// name.
func (t Template) Target(i int) string {
	if t.Constant() {
		return t.Base
	}
	return fmt.Sprintf("%d%s", i+t.Start, t.suffix())
}

// Match reports whether a target name belongs to the template and returns
// its track id. Constant templates match their base only, with id 0.
// Default templates match any name, and the id is the name's numeric
// prefix, if any. Other templates match <digits><base> when the id derived
// from the digits falls in range.
func (t Template) Match(name string) (int, bool) {
	if t.Constant() {
		return 0, name == t.Base
	}
	digits, rest := splitNumber(name)
	if t.Default != "" {
		return digits, true
	}
	if rest != t.Base || len(rest) == len(name) {
		return 0, false
	}
	id := digits - t.Start + t.First
	return id, t.InRange(id)
}

func splitNumber(name string) (int, string) {
	n, j := 0, 0
	for j < len(name) && name[j] >= '0' && name[j] <= '9' {
		if n < math.MaxInt32/10 {
			n = n*10 + int(name[j]-'0')
		}
		j++
	}
	return n, name[j:]
}

// cleanTrackName turns a trackname meta-event into a target name: outer
// spaces trimmed, inner separators replaced by dashes.
func cleanTrackName(text string) string {
	text = strings.Trim(text, " ")
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', ',', ';':
			return '-'
		}
		return r
	}, text)
}
