package sequencer

import (
	"github.com/cbegin/xeq-go/internal/seqfile"
)

// Transform is the per-sequence filter applied to events before they are
// played: track selection by template, then transposition through the
// note table.
type Transform struct {
	Tracks    *seqfile.Template // nil selects every target
	Transpose int
	Notes     *NoteTable
}

func NewTransform() *Transform {
	return &Transform{Notes: NewNoteTable()}
}

// Apply reports whether ev, addressed to target, is to be played.
func (tr *Transform) Apply(target string, ev *Event) bool {
	if tr.Tracks != nil {
		if _, ok := tr.Tracks.Match(target); !ok {
			return false
		}
	}
	if tr.Notes == nil {
		tr.Notes = NewNoteTable()
	}
	return tr.Notes.Apply(ev, tr.Transpose)
}

// Hook adapts Apply to Hooks.OnTransform.
func (tr *Transform) Hook() func(*Iterator, string, *Event) bool {
	return func(_ *Iterator, target string, ev *Event) bool {
		return tr.Apply(target, ev)
	}
}
