package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/cbegin/xeq-go"
	"github.com/cbegin/xeq-go/internal/config"
	"github.com/cbegin/xeq-go/internal/mididev"
	"github.com/cbegin/xeq-go/internal/seqfile"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errNoFile = errors.New("no -file given")

const usage = `usage: xeq <command> [flags]

commands:
  play     play a MIDI file or text listing to a device
  info     print the header, tracks and tempo map of a MIDI file
  dump     print a file as a text listing
  convert  convert between MIDI files and text listings
  record   record a MIDI input port to a file
  ports    list MIDI and serial ports
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "play":
		err = runPlay(args)
	case "info":
		err = runInfo(args)
	case "dump":
		err = runDump(args)
	case "convert":
		err = runConvert(args)
	case "record":
		err = runRecord(args)
	case "ports":
		err = runPorts(args)
	case "-h", "-help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// common holds the flags every command accepts.
type common struct {
	configPath string
	verbose    bool
	cfg        config.Config
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath+")")
	fs.BoolVar(&c.verbose, "v", false, "log debug output")
}

// load reads the config file and sets up logging. Call after parsing.
func (c *common) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	logrus.SetLevel(cfg.LogLevel())
	if c.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

func (c *common) fileOptions() seqfile.Options {
	return seqfile.Options{
		Log:   logrus.StandardLogger(),
		Ticks: c.cfg.File.Division,
		Tempo: c.cfg.File.Tempo,
	}
}

func (c *common) device() mididev.Config {
	return mididev.Config{
		Driver: c.cfg.Device.Driver,
		Port:   c.cfg.Device.Port,
		Baud:   c.cfg.Device.Baud,
		Log:    logrus.StandardLogger(),
	}
}

// isSet reports whether a flag was given on the command line.
func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func runPlay(args []string) error {
	var c common
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	c.register(fs)
	var (
		path      = fs.String("file", "", "MIDI file or text listing to play")
		tracks    = fs.String("tracks", "", "track template, e.g. 1:3 or 2:3:5-lead")
		tempo     = fs.Float64("tempo", 1, "tempo factor, 2 plays twice as fast")
		transpose = fs.Int("transpose", 0, "semitones added to note messages")
		loop      = fs.Bool("loop", false, "loop playback; use with -loops to count then stop")
		loops     = fs.Int("loops", 0, "when -loop, stop after N loops (0 = loop forever)")
		out       = fs.String("out", "", "output driver: log|serial|rtmidi")
		port      = fs.String("port", "", "output port name or index")
	)
	fs.Parse(args)
	if err := c.load(); err != nil {
		return err
	}
	if *path == "" && fs.NArg() > 0 {
		*path = fs.Arg(0)
	}
	if *path == "" {
		return errNoFile
	}

	pb := c.cfg.Playback
	if isSet(fs, "tracks") {
		pb.Tracks = *tracks
	}
	if isSet(fs, "tempo") {
		pb.Tempo = *tempo
	}
	if isSet(fs, "transpose") {
		pb.Transpose = *transpose
	}
	if isSet(fs, "loop") {
		pb.Loop = *loop
	}
	if isSet(fs, "loops") {
		pb.Loops = *loops
	}
	dev := c.device()
	if *out != "" {
		dev.Driver = *out
	}
	if *port != "" {
		dev.Port = *port
	}

	output, err := mididev.Open(dev)
	if err != nil {
		return err
	}
	defer mididev.CloseDriver()
	defer output.Close()

	pl := xeq.NewPlayer(output,
		xeq.WithName("xeq"),
		xeq.WithLoopPlayback(pb.Loop),
		xeq.WithPlayerTempo(pb.Tempo),
		xeq.WithPlayerTranspose(pb.Transpose),
		xeq.WithPlayerTracks(pb.Tracks),
		xeq.WithPlayerLogger(logrus.StandardLogger()),
	)
	defer pl.Sequence().Close()
	pl.Sequence().SetFileOptions(c.fileOptions())
	if err := pl.Load(*path, pb.Tracks); err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	go func() {
		if _, ok := <-interrupt; ok {
			pl.Stop()
		}
	}()

	ch := pl.Watch()
	if err := pl.Play(); err != nil {
		return err
	}
	loopCount := 0
	for event := range ch {
		switch event.Kind {
		case xeq.EventPlaybackEnded:
			fmt.Println("playback completed")
			goto done
		case xeq.EventLoopCompleted:
			loopCount++
			fmt.Printf("loop %d completed\n", loopCount)
			if pb.Loop && pb.Loops > 0 && loopCount >= pb.Loops {
				pl.Stop()
			}
		}
	}
done:
	pl.Wait()
	return nil
}

func runInfo(args []string) error {
	var c common
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	c.register(fs)
	path := fs.String("file", "", "MIDI file")
	tracks := fs.String("tracks", "", "track template")
	fs.Parse(args)
	if err := c.load(); err != nil {
		return err
	}
	if *path == "" && fs.NArg() > 0 {
		*path = fs.Arg(0)
	}
	if *path == "" {
		return errNoFile
	}
	f, err := os.Open(*path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	seq := xeq.New("info", xeq.WithFileOptions(c.fileOptions()))
	defer seq.Close()
	info, err := seq.ReadMIDI(f, *tracks)
	if err != nil {
		return err
	}
	fmt.Printf("format %d, %d tracks declared, %d with channel events\n", info.Format, info.HdTracks, info.AllTracks)
	if info.Timebase.SMPTE() {
		fmt.Printf("timebase: %d fps, %d ticks per frame\n", info.Timebase.Frames, info.Timebase.Ticks)
	} else {
		fmt.Printf("timebase: %d ticks per quarter note\n", info.Timebase.Ticks)
	}
	for _, t := range info.Tracks {
		fmt.Printf("track %-3d %-24q %d events\n", t.ID, t.Name, t.Events)
	}
	for _, e := range info.Tempi {
		fmt.Printf("tempo at tick %-8d %d us/qn (%.2f bpm)\n", e.Onset, e.Tempo, 60e6/float64(e.Tempo))
	}
	fmt.Printf("%d events read, %s\n", info.Events, seq.Status())
	return nil
}

func runDump(args []string) error {
	var c common
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	c.register(fs)
	path := fs.String("file", "", "MIDI file or text listing")
	tracks := fs.String("tracks", "", "track template")
	fs.Parse(args)
	if err := c.load(); err != nil {
		return err
	}
	if *path == "" && fs.NArg() > 0 {
		*path = fs.Arg(0)
	}
	if *path == "" {
		return errNoFile
	}
	seq := xeq.New("dump", xeq.WithFileOptions(c.fileOptions()))
	defer seq.Close()
	if err := seq.LoadFile(*path, *tracks); err != nil {
		return err
	}
	return seq.WriteText(os.Stdout)
}

func runConvert(args []string) error {
	var c common
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	c.register(fs)
	in := fs.String("in", "", "input file, .mid or text")
	out := fs.String("out", "", "output file, .mid or text")
	tracks := fs.String("tracks", "", "track template for reading and writing")
	fs.Parse(args)
	if err := c.load(); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("convert: -in and -out are required")
	}
	seq := xeq.New("convert", xeq.WithFileOptions(c.fileOptions()))
	defer seq.Close()
	if err := seq.LoadFile(*in, *tracks); err != nil {
		return err
	}
	if err := seq.SaveFile(*out, *tracks); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"in": *in, "out": *out}).Info(seq.Status())
	return nil
}

func runRecord(args []string) error {
	var c common
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	c.register(fs)
	in := fs.String("in", "", "input port name or index")
	out := fs.String("out", "", "file to save, .mid or text")
	seconds := fs.Float64("seconds", 0, "stop after this many seconds (0 = until interrupted)")
	fs.Parse(args)
	if err := c.load(); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("record: no -out given")
	}
	dev := c.device()
	dev.Driver = mididev.DriverNative
	if *in != "" {
		dev.Port = *in
	}
	input, err := mididev.OpenIn(dev)
	if err != nil {
		return err
	}
	defer mididev.CloseDriver()

	rec := xeq.NewRecorder("record", xeq.WithFileOptions(c.fileOptions()))
	defer rec.Sequence().Close()
	rec.Record()
	if err := input.Listen(func(msg []byte, _ int32) {
		rec.AddMIDI(msg)
	}); err != nil {
		input.Close()
		return err
	}
	logrus.Info("recording, interrupt to stop")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	var timeout <-chan time.Time
	if *seconds > 0 {
		timeout = time.After(time.Duration(*seconds * float64(time.Second)))
	}
	select {
	case <-interrupt:
	case <-timeout:
	}
	input.Close()
	rec.StopRecording()
	if err := rec.Sequence().SaveFile(*out, ""); err != nil {
		return err
	}
	fmt.Println(rec.Sequence().Status())
	return nil
}

func runPorts(args []string) error {
	var c common
	fs := flag.NewFlagSet("ports", flag.ExitOnError)
	c.register(fs)
	fs.Parse(args)
	if err := c.load(); err != nil {
		return err
	}
	defer mididev.CloseDriver()
	ports := mididev.Ports()
	if len(ports) == 0 {
		fmt.Println("no ports found")
		return nil
	}
	for i, p := range ports {
		dir := "out"
		if p.Input {
			dir = "in"
		}
		fmt.Printf("%2d %-7s %-3s %s\n", i, p.Driver, dir, p.Name)
	}
	return nil
}
