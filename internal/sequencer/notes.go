package sequencer

// NoteTable remembers, per channel and key, the transposed pitch a note-on
// was sent with, so the matching note-off goes to the same pitch even if
// transposition changed in between. -1 marks a silent key.
type NoteTable [16][128]int8

func NewNoteTable() *NoteTable {
	t := &NoteTable{}
	t.Clear()
	return t
}

func (t *NoteTable) Clear() {
	for ch := range t {
		for key := range t[ch] {
			t[ch][key] = -1
		}
	}
}

// Sounding returns the pitch sounding for a key, or -1.
func (t *NoteTable) Sounding(channel, key int) int {
	if channel < 0 || channel > 15 || key < 0 || key > 127 {
		return -1
	}
	return int(t[channel][key])
}

// Apply transposes ev and records or releases its note. It returns false
// when the event must be dropped: a repeated note-on for a key already
// sounding, or a note-on transposed out of range.
func (t *NoteTable) Apply(ev *Event, transpose int) bool {
	if ev.Channel < 0 || ev.Channel > 15 || ev.Data1 < 0 || ev.Data1 > 127 {
		return false
	}
	slot := &t[ev.Channel][ev.Data1]
	if ev.Status == 0x90 && ev.Data2 > 0 {
		if *slot >= 0 {
			return false
		}
		pitch := ev.Data1 + transpose
		if pitch < 0 || pitch > 127 {
			return false
		}
		*slot = int8(pitch)
		ev.Data1 = pitch
		return true
	}
	if ev.Status <= 0x90 && *slot >= 0 {
		ev.Data1 = int(*slot)
		*slot = -1
	}
	return true
}

// Flush calls off for every sounding note with the note-off to send, and
// clears the table.
func (t *NoteTable) Flush(off func(Event)) {
	for ch := range t {
		for key := range t[ch] {
			if pitch := t[ch][key]; pitch >= 0 {
				off(Event{Status: 0x90, Channel: ch, Data1: int(pitch), Data2: 0})
				t[ch][key] = -1
			}
		}
	}
}
