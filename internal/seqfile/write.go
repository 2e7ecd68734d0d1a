package seqfile

import (
	"io"
	"math"
	"sort"

	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/midifile"
	"github.com/pkg/errors"
)

// ErrEmpty reports a stream holding no event the template selects.
var ErrEmpty = errors.New("seqfile: nothing to write")

// parsed is one writable channel event found in a stream.
type parsed struct {
	onset  uint32 // ticks from the start of the stream
	target string
	id     int
	event  midifile.Event
}

// scan walks the messages of a folded stream, accumulating time in ticks
// over every message that starts with a delay, and reports each one that
// has the channel-event shape and a target the template accepts.
func scan(a []atom.Atom, tt Template, msecs2ticks float64, fn func(p *parsed) error) error {
	var (
		ticks uint32
		p     parsed
	)
	for i := 0; i < len(a); {
		end := i
		for end < len(a) && !a[end].IsSemi() {
			end++
		}
		msg := a[i:end]
		i = end + 1
		if end == len(a) {
			break // unterminated tail
		}
		if len(msg) == 0 || !msg[0].IsFloat() || msg[0].Num < 0 {
			continue
		}
		ticks += uint32(math.Round(msg[0].Num * msecs2ticks))
		if !parseSlot(msg, tt, &p) {
			continue
		}
		p.onset = ticks
		if err := fn(&p); err != nil {
			return err
		}
	}
	return nil
}

func parseSlot(msg []atom.Atom, tt Template, p *parsed) bool {
	if len(msg) != SlotSize-1 || !msg[1].IsSymbol() {
		return false
	}
	id, ok := tt.Match(msg[1].Sym)
	if !ok {
		return false
	}
	status, ok := floatIn(msg[2], 128, 239)
	if !ok {
		return false
	}
	status &= 0xf0
	data1, ok := floatIn(msg[3], 0, 127)
	if !ok {
		return false
	}
	var data2, channel int
	if midifile.OneDataByte(byte(status)) {
		if channel, ok = floatIn(msg[4], 0, 16); !ok {
			return false
		}
	} else {
		if data2, ok = floatIn(msg[4], 0, 127); !ok {
			return false
		}
		if channel, ok = floatIn(msg[5], 0, 16); !ok {
			return false
		}
	}
	if channel > 0 {
		channel--
	}
	p.target = msg[1].Sym
	p.id = id
	p.event.SetChannel(0, byte(status), byte(channel), byte(data1), byte(data2))
	return true
}

func floatIn(a atom.Atom, lo, hi float64) (int, bool) {
	if !a.IsFloat() || a.Num < lo || a.Num > hi {
		return 0, false
	}
	return int(a.Num), true
}

// Write stores the channel-event messages of s whose target the template
// accepts. A variable template writes a format 1 file with one track per
// target, unless it would hold a single default-named track; otherwise the
// file is format 0. s is not modified.
func Write(w io.WriteSeeker, s *atom.Stream, tt Template, opts Options) (*Info, error) {
	log := opts.logger()
	tb := midifile.Timebase{Ticks: opts.Ticks}
	if tb.Ticks == 0 {
		tb.Ticks = midifile.DefaultTicks
	}
	tempo := opts.Tempo
	if tempo == 0 {
		tempo = midifile.DefaultTempo
	}
	coef := tb.MsecsToTicks(tempo)
	a := s.Atoms()

	info := &Info{Timebase: tb}
	err := scan(a, tt, coef, func(p *parsed) error {
		if i := info.Tracks.Find(p.target); i >= 0 {
			info.Tracks[i].Events++
		} else {
			info.Tracks = append(info.Tracks, midifile.Track{ID: p.id, Name: p.target, Events: 1})
		}
		info.Events++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(info.Tracks) == 0 {
		log.Warnf("seqfile: request to write empty midifile ignored")
		return nil, ErrEmpty
	}
	sort.SliceStable(info.Tracks, func(i, j int) bool { return info.Tracks[i].ID < info.Tracks[j].ID })

	multi := !tt.Constant() && !(len(info.Tracks) == 1 && tt.Default != "")
	h := midifile.Header{Format: 0, Tracks: 1, Timebase: tb}
	if multi {
		h.Format = 1
		h.Tracks = uint16(len(info.Tracks))
	}
	info.Format = h.Format
	info.HdTracks = int(h.Tracks)
	info.AllTracks = len(info.Tracks)
	if tempo != midifile.DefaultTempo {
		info.Tempi = midifile.TempoMap{{Onset: 0, Tempo: tempo}}
	}
	wr, err := midifile.NewWriter(w, h)
	if err != nil {
		return nil, err
	}
	log.Debugf("writing midifile (format %d, %d tracks)", h.Format, h.Tracks)

	writeTrack := func(name string, first bool, keep func(p *parsed) bool) error {
		if err := wr.StartTrack(); err != nil {
			return err
		}
		if err := wr.WriteText(midifile.MetaTrackName, name); err != nil {
			return err
		}
		if first && tempo != midifile.DefaultTempo {
			if err := wr.WriteTempo(0, tempo); err != nil {
				return err
			}
		}
		var last uint32
		err := scan(a, tt, coef, func(p *parsed) error {
			if !keep(p) {
				return nil
			}
			p.event.Delay = p.onset - last
			last = p.onset
			return wr.WriteEvent(&p.event)
		})
		if err != nil {
			return err
		}
		return wr.EndTrack(0)
	}

	if multi {
		for i, tr := range info.Tracks {
			name := tr.Name
			if err := writeTrack(name, i == 0, func(p *parsed) bool { return p.target == name }); err != nil {
				return nil, err
			}
		}
		return info, nil
	}
	name := tt.Base
	if tt.Default != "" {
		name = "1-track"
	}
	if err := writeTrack(name, true, func(*parsed) bool { return true }); err != nil {
		return nil, err
	}
	return info, nil
}
