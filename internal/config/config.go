// Package config loads the xeq command's YAML settings.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no -config flag is given. A missing file there
// is not an error.
const DefaultPath = "~/.config/xeq/config.yaml"

type Device struct {
	Driver string `yaml:"driver"`
	Port   string `yaml:"port"`
	Baud   int    `yaml:"baud"`
}

type Playback struct {
	Tempo     float64 `yaml:"tempo"`
	Transpose int     `yaml:"transpose"`
	Tracks    string  `yaml:"tracks"`
	Loop      bool    `yaml:"loop"`
	Loops     int     `yaml:"loops"` // 0 loops forever
}

type File struct {
	Division int    `yaml:"division"`
	Tempo    uint32 `yaml:"tempo"` // microseconds per quarter note
}

type Log struct {
	Level string `yaml:"level"`
}

type Config struct {
	Device   Device   `yaml:"device"`
	Playback Playback `yaml:"playback"`
	File     File     `yaml:"file"`
	Log      Log      `yaml:"log"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Device:   Device{Driver: "log"},
		Playback: Playback{Tempo: 1},
		File:     File{Division: 192, Tempo: 500000},
		Log:      Log{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path means DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	full, err := homedir.Expand(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "expand %s", path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read config %s", full)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config %s", full)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, leaving absent fields unchanged.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return errors.Wrap(err, "parse yaml")
	}
	return cfg.Validate()
}

// Validate rejects values no command can use.
func (c *Config) Validate() error {
	if c.Playback.Tempo < 0 {
		return errors.Errorf("playback.tempo %g is negative", c.Playback.Tempo)
	}
	if c.Playback.Loops < 0 {
		return errors.Errorf("playback.loops %d is negative", c.Playback.Loops)
	}
	if c.File.Division < 0 || c.File.Division > 0x7fff {
		return errors.Errorf("file.division %d out of range", c.File.Division)
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return errors.Wrap(err, "log.level")
		}
	}
	return nil
}

// LogLevel returns the configured level, or info.
func (c *Config) LogLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Marshal encodes cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	return data, errors.Wrap(err, "marshal yaml")
}
