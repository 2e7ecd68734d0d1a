package sequencer

import (
	"fmt"

	"github.com/cbegin/xeq-go/internal/atom"
)

// Event is a channel message decoded from a payload. Channel is 0-based;
// Data2 is -1 for statuses carrying a single data byte.
type Event struct {
	Status  int
	Channel int
	Data1   int
	Data2   int
}

// Valid reports whether the event holds a channel message. The iterator
// clears Status for payloads that are not MIDI or were dropped.
func (e Event) Valid() bool { return e.Status != 0 }

// Bytes renders the event as wire bytes, never with running status.
func (e Event) Bytes() []byte {
	if e.Status == 0 {
		return nil
	}
	out := []byte{byte(e.Status|e.Channel) | 0x80, byte(e.Data1)}
	if e.Data2 >= 0 {
		out = append(out, byte(e.Data2))
	}
	return out
}

func (e Event) String() string {
	if e.Data2 < 0 {
		return fmt.Sprintf("%#02x ch%d %d", e.Status, e.Channel+1, e.Data1)
	}
	return fmt.Sprintf("%#02x ch%d %d %d", e.Status, e.Channel+1, e.Data1, e.Data2)
}

// ParseMessage decodes a payload of the form
//
//	status data1 [data2] channel
//
// where the channel is 1-based and data2 is present for every status but
// program change and channel pressure. Tokens past the channel are ignored.
func ParseMessage(payload []atom.Atom) (Event, bool) {
	ev := Event{Data2: -1}
	if len(payload) < 3 || !payload[0].IsFloat() || !payload[1].IsFloat() {
		return ev, false
	}
	ev.Status = int(payload[0].Num)
	ev.Data1 = int(payload[1].Num)
	if ev.Data1 < 0 || ev.Data1 > 127 || !payload[2].IsFloat() {
		return ev, false
	}
	next := 2
	switch ev.Status {
	case 0x80, 0x90, 0xa0, 0xb0, 0xe0:
		ev.Data2 = int(payload[2].Num)
		if ev.Data2 < 0 || ev.Data2 > 127 || len(payload) < 4 || !payload[3].IsFloat() {
			return ev, false
		}
		next = 3
	case 0xc0, 0xd0:
	default:
		return ev, false
	}
	ev.Channel = int(payload[next].Num)
	if ev.Channel <= 0 || ev.Channel > 16 {
		return ev, false
	}
	ev.Channel--
	return ev, true
}
