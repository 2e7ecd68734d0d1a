package seqfile

import (
	"io"

	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/midifile"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options configures reading and writing.
type Options struct {
	Log logrus.FieldLogger
	// OnClamp is called when tempo folding moves an event back in time.
	// The default logs at debug level.
	OnClamp midifile.ClampFunc
	// Ticks and Tempo set the division and tempo of written files.
	// Zero means midifile.DefaultTicks and midifile.DefaultTempo.
	Ticks int
	Tempo uint32
}

func (o Options) logger() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

// Info describes a file read or written.
type Info struct {
	Format    uint16
	HdTracks  int // tracks declared in the header
	AllTracks int // tracks holding channel events
	Timebase  midifile.Timebase
	Tempi     midifile.TempoMap
	Tracks    midifile.TrackMap
	Events    int
}

// Read fills s from a MIDI file, one slot per channel event of the tracks
// the template selects, merged and folded to millisecond delays.
//
// On error s holds a partial fill and should be discarded.
func Read(r io.ReadSeeker, s *atom.Stream, tt Template, opts Options) (*Info, error) {
	log := opts.logger()
	rd, err := midifile.NewReader(r, log)
	if err != nil {
		return nil, err
	}
	h := rd.Header()
	info := &Info{Format: h.Format, HdTracks: int(h.Tracks), Timebase: h.Timebase}
	if h.SMPTE() {
		log.Debugf("midifile (format %d): %d tracks, %d ticks (%d smpte frames)",
			h.Format, h.Tracks, h.Ticks, h.Frames)
	} else {
		log.Debugf("midifile (format %d): %d tracks, %d ticks per beat",
			h.Format, h.Tracks, h.Ticks)
	}

	ntempi, err := analyse(rd, tt, info)
	if err != nil {
		return nil, err
	}
	if err := rd.Restart(); err != nil {
		return nil, err
	}
	log.Debugf("filling %d-token stream from %d tracks out of %d channel-tracks (%d total)",
		info.Events*SlotSize, len(info.Tracks), info.AllTracks, info.HdTracks)
	s.Resize(info.Events * SlotSize)
	info.Tempi = make(midifile.TempoMap, 0, ntempi)
	if err := fill(rd, tt, s, info); err != nil {
		return nil, err
	}

	info.Tempi.Sort()
	view := slots(s.Atoms())
	merge(view)
	onClamp := opts.OnClamp
	if onClamp == nil {
		onClamp = func(i int, computed, previous float64) {
			log.Debugf("seqfile: event %d folded to %.9f, clamped to %.9f", i, computed, previous)
		}
	}
	midifile.Fold(view, info.Timebase, info.Tempi, onClamp)
	log.Debugf("finished reading %d events from midifile", info.Events)
	return info, nil
}

// analyse is the first pass: count selected tracks and their events, count
// tempo changes and pick track names.
func analyse(rd *midifile.Reader, tt Template, info *Info) (int, error) {
	var (
		e       midifile.Event
		ntempi  int
		track   = -1
		fresh   bool   // no channel event seen yet in this track
		inRange bool   // this track is selected
		named   bool   // this track's name is settled
		pending string // trackname seen before the first channel event
	)
	for {
		err := rd.ReadEvent(&e)
		if err == io.EOF {
			break
		}
		if err == midifile.ErrSkipped {
			continue
		}
		if err != nil {
			return 0, err
		}
		if rd.Track() != track {
			track = rd.Track()
			fresh, inRange, named, pending = true, false, false, ""
		}
		switch {
		case e.IsChannel():
			if fresh {
				fresh = false
				info.AllTracks++
				inRange = tt.InRange(info.AllTracks)
				if inRange {
					name := ""
					if tt.Default != "" && pending != "" {
						name, named = pending, true
					}
					info.Tracks = append(info.Tracks, midifile.Track{ID: info.AllTracks, Name: name})
				}
			}
			if inRange {
				info.Tracks[len(info.Tracks)-1].Events++
				info.Events++
			}
		case e.IsMeta(midifile.MetaTempo):
			ntempi++
		case e.IsMeta(midifile.MetaTrackName) && tt.Default != "":
			name := cleanTrackName(e.Text())
			if name == "" || named || pending != "" {
				continue
			}
			if !fresh && inRange {
				info.Tracks[len(info.Tracks)-1].Name = name
				named = true
			} else {
				pending = name
			}
		}
	}
	for i := range info.Tracks {
		if info.Tracks[i].Name == "" {
			info.Tracks[i].Name = tt.Target(i)
		}
	}
	return ntempi, nil
}

// fill is the second pass: store selected channel events as slots holding
// absolute onsets in ticks, and collect the tempo map.
func fill(rd *midifile.Reader, tt Template, s *atom.Stream, info *Info) error {
	var (
		e        midifile.Event
		view     = slots(s.Atoms())
		n        int
		track    = -1
		all      int
		selected int
		fresh    bool
		inRange  bool
		target   string
	)
	for {
		err := rd.ReadEvent(&e)
		if err == io.EOF {
			break
		}
		if err == midifile.ErrSkipped {
			continue
		}
		if err != nil {
			return err
		}
		if rd.Track() != track {
			track = rd.Track()
			fresh, inRange = true, false
		}
		if e.IsMeta(midifile.MetaTempo) {
			info.Tempi = append(info.Tempi, midifile.TempoEntry{Onset: rd.Time(), Tempo: rd.Tempo()})
			continue
		}
		if !e.IsChannel() {
			continue
		}
		if fresh {
			fresh = false
			all++
			inRange = tt.InRange(all)
			if inRange {
				if selected >= len(info.Tracks) {
					return errors.New("seqfile: track count changed between passes")
				}
				target = info.Tracks[selected].Name
				selected++
			}
		}
		if !inRange {
			continue
		}
		if n >= view.Len() {
			return errors.New("seqfile: event count changed between passes")
		}
		view.fill(n, float64(rd.Time()), target, &e)
		n++
	}
	if n != view.Len() {
		return errors.Errorf("seqfile: %d events analysed, %d read", view.Len(), n)
	}
	return nil
}
