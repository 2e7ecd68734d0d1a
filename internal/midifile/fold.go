package midifile

// TimeCursor exposes the time field of each event of a sequence, whatever
// its storage layout.
type TimeCursor interface {
	Len() int
	Time(i int) float64
	SetTime(i int, t float64)
}

// ClampFunc is called when folding would move event i back in time.
// computed is the time the tempo map gave, previous the time it was clamped
// to, both in milliseconds.
type ClampFunc func(i int, computed, previous float64)

// Fold rewrites absolute onsets in ticks as delays in milliseconds. Onsets
// must be in ascending order and tm sorted.
func Fold(c TimeCursor, tb Timebase, tm TempoMap, onClamp ClampFunc) {
	n := c.Len()
	if tb.SMPTE() {
		coef := tb.TicksToMsecs(0)
		var last float64
		for i := 0; i < n; i++ {
			this := c.Time(i) * coef
			c.SetTime(i, this-last)
			last = this
		}
		return
	}
	coef := tb.TicksToMsecs(DefaultTempo)
	var (
		last       float64
		since      float64 // msecs elapsed up to the tempo change in force
		tempoOnset float64
		tempoIndex int
	)
	for i := 0; i < n; i++ {
		onset := c.Time(i)
		for tempoIndex < len(tm) && float64(tm[tempoIndex].Onset) < onset {
			next := float64(tm[tempoIndex].Onset)
			since += (next - tempoOnset) * coef
			tempoOnset = next
			coef = tb.TicksToMsecs(tm[tempoIndex].Tempo)
			tempoIndex++
		}
		this := since + (onset-tempoOnset)*coef
		if this < last {
			if onClamp != nil {
				onClamp(i, this, last)
			}
			this = last
		}
		c.SetTime(i, this-last)
		last = this
	}
}

// Unfold turns delays back into absolute onsets.
func Unfold(c TimeCursor) {
	var onset float64
	for i, n := 0, c.Len(); i < n; i++ {
		onset += c.Time(i)
		c.SetTime(i, onset)
	}
}

// Refold turns absolute onsets into delays, the inverse of Unfold.
func Refold(c TimeCursor) {
	var last float64
	for i, n := 0, c.Len(); i < n; i++ {
		onset := c.Time(i)
		c.SetTime(i, onset-last)
		last = onset
	}
}
