package seqfile

import (
	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/midifile"
	"github.com/pkg/errors"
)

// SlotSize is the number of tokens a stored channel event occupies.
const SlotSize = 7

// ErrNotSlots reports a stream that is not made of whole event slots.
var ErrNotSlots = errors.New("seqfile: stream is not a sequence of event slots")

// slots views a token slice as fixed-width event slots. It is the time
// cursor folding works through.
type slots []atom.Atom

func asSlots(s *atom.Stream) (slots, error) {
	a := s.Atoms()
	if len(a)%SlotSize != 0 {
		return nil, errors.Wrapf(ErrNotSlots, "%d tokens", len(a))
	}
	for i := 0; i < len(a); i += SlotSize {
		if !a[i].IsFloat() || !a[i+1].IsSymbol() || !a[i+SlotSize-1].IsSemi() {
			return nil, errors.Wrapf(ErrNotSlots, "slot at token %d", i)
		}
	}
	return slots(a), nil
}

func (s slots) Len() int                 { return len(s) / SlotSize }
func (s slots) Time(i int) float64       { return s[i*SlotSize].Num }
func (s slots) SetTime(i int, t float64) { s[i*SlotSize].Num = t }
func (s slots) Target(i int) string      { return s[i*SlotSize+1].Sym }

func (s slots) Swap(i, j int) {
	var tmp [SlotSize]atom.Atom
	a, b := s[i*SlotSize:(i+1)*SlotSize], s[j*SlotSize:(j+1)*SlotSize]
	copy(tmp[:], a)
	copy(a, b)
	copy(b, tmp[:])
}

// fill stores e at slot i with the given time and target.
func (s slots) fill(i int, onset float64, target string, e *midifile.Event) {
	a := s[i*SlotSize : (i+1)*SlotSize]
	a[0] = atom.Float(onset)
	a[1] = atom.Symbol(target)
	a[2] = atom.Float(float64(e.Status))
	a[3] = atom.Float(float64(e.Data[0]))
	if midifile.OneDataByte(e.Status) {
		a[4] = atom.Float(float64(e.Channel) + 1)
		a[5] = atom.Float(0)
	} else {
		a[4] = atom.Float(float64(e.Data[1]))
		a[5] = atom.Float(float64(e.Channel) + 1)
	}
	a[6] = atom.Semi()
}

// byOnset orders slots by time.
type byOnset struct{ slots }

func (s byOnset) Less(i, j int) bool { return s.Time(i) < s.Time(j) }

// byTrack orders slots by track rank, then time. Slots whose target the
// template rejects sort last.
type byTrack struct {
	slots
	rank []int
}

func (s byTrack) Less(i, j int) bool {
	if s.rank[i] != s.rank[j] {
		return s.rank[i] < s.rank[j]
	}
	return s.Time(i) < s.Time(j)
}

func (s byTrack) Swap(i, j int) {
	s.slots.Swap(i, j)
	s.rank[i], s.rank[j] = s.rank[j], s.rank[i]
}
