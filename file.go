package xeq

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cbegin/xeq-go/internal/atom"
	"github.com/cbegin/xeq-go/internal/seqfile"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// ReadMIDI replaces the contents with the tracks of a MIDI file that tt
// selects. The sequence is unchanged on error.
func (s *Sequence) ReadMIDI(r io.ReadSeeker, tt string) (*seqfile.Info, error) {
	st := atom.NewStream()
	info, err := seqfile.Read(r, st, seqfile.ParseTemplate(tt), s.fileOptions())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(st)
	return info, nil
}

// WriteMIDI stores the channel messages of the targets tt accepts.
func (s *Sequence) WriteMIDI(w io.WriteSeeker, tt string) (*seqfile.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seqfile.Write(w, s.stream, seqfile.ParseTemplate(tt), s.fileOpts)
}

// ReadText replaces the contents with a text listing.
func (s *Sequence) ReadText(r io.Reader) error {
	st := atom.NewStream()
	if err := st.ReadText(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(st)
	return nil
}

// WriteText writes the contents as a text listing, one message per line.
func (s *Sequence) WriteText(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.WriteText(w)
}

// SetFileOptions sets the division, tempo and logging of MIDI reads and
// writes.
func (s *Sequence) SetFileOptions(opts seqfile.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileOpts = opts
}

func (s *Sequence) fileOptions() seqfile.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileOpts
}

// IsMIDIPath reports whether a path names a MIDI file rather than a text
// listing, by extension.
func IsMIDIPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi", ".smf":
		return true
	}
	return false
}

// LoadFile reads a MIDI file or text listing, chosen by extension. A
// leading ~ in path is expanded.
func (s *Sequence) LoadFile(path, tt string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return errors.Wrap(err, "expand path")
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	if IsMIDIPath(path) {
		_, err = s.ReadMIDI(f, tt)
	} else {
		err = s.ReadText(f)
	}
	return errors.Wrapf(err, "read %s", path)
}

// SaveFile writes a MIDI file or text listing, chosen by extension.
func (s *Sequence) SaveFile(path, tt string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return errors.Wrap(err, "expand path")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if IsMIDIPath(path) {
		_, err = s.WriteMIDI(f, tt)
	} else {
		err = s.WriteText(f)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return errors.Wrapf(err, "write %s", path)
}
