package config

import (
	"bytes"
	"flag"
	"io"
	"os"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/qkdmap/api"
	"gopkg.in/yaml.v3"
)

var configFile = flag.String("config", "", "path to a config yaml")

type Config struct {
	Backend Backend `yaml:"backend"`
	Refresh Refresh `yaml:"refresh"`
	View    View    `yaml:"view"`
	// Defaults are the controls of a viewer that never changed one.
	Defaults Defaults `yaml:"defaults"`
	// Viewer keys the stored preferences of this map.
	Viewer string `yaml:"viewer"`
}

type Backend struct {
	URL             string        `yaml:"url"`
	Token           string        `yaml:"token"`
	Timeout         time.Duration `yaml:"timeout"`
	Retries         int           `yaml:"retries"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

type Refresh struct {
	Auto     bool          `yaml:"auto"`
	Interval time.Duration `yaml:"interval"`
}

type View struct {
	// Center is lon, lat.
	Center        []float64     `yaml:"center"`
	Zoom          float64       `yaml:"zoom"`
	Width         float64       `yaml:"width"`
	Height        float64       `yaml:"height"`
	FrameInterval time.Duration `yaml:"frame_interval"`
}

type Defaults struct {
	App        string `yaml:"app"`
	Animations bool   `yaml:"animations"`
	Debug      bool   `yaml:"debug"`
}

func (d Defaults) Preferences() api.Preferences {
	return api.Preferences{SelectedApp: d.App, Animations: d.Animations, Debug: d.Debug}
}

func Default() Config {
	return Config{
		Backend: Backend{
			URL:             "http://localhost:8090",
			Timeout:         10 * time.Second,
			Retries:         2,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Refresh: Refresh{Interval: time.Minute},
		View: View{
			Center:        []float64{25.0, 45.9432},
			Zoom:          8,
			Width:         1280,
			Height:        720,
			FrameInterval: 16 * time.Millisecond,
		},
		Defaults: Defaults{App: "global", Animations: true},
		Viewer:   "default",
	}
}

// CenterPoint returns the configured centre as lon, lat.
func (v View) CenterPoint() [2]float64 {
	return [2]float64{v.Center[0], v.Center[1]}
}

func (c Config) Validate() error {
	if c.Backend.URL == "" {
		return errors.New("backend url required")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend timeout must be positive", j.KV("timeout", c.Backend.Timeout))
	}
	if len(c.View.Center) != 2 {
		return errors.New("view center must be [lon, lat]", j.KV("values", len(c.View.Center)))
	}
	if c.View.Zoom < 0 {
		return errors.New("view zoom must not be negative")
	}
	if c.View.Width <= 0 || c.View.Height <= 0 {
		return errors.New("view size must be positive")
	}
	if c.View.FrameInterval <= 0 {
		return errors.New("frame interval must be positive")
	}
	if c.Refresh.Auto && c.Refresh.Interval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	if c.Defaults.App == "" {
		return errors.New("default app required")
	}
	if c.Viewer == "" {
		return errors.New("viewer required")
	}
	return nil
}

var config = Default()

func MustLoadConfig() {
	if *configFile == "" {
		return
	}
	c, err := os.ReadFile(*configFile)
	if err != nil {
		panic(err)
	}
	config, err = decodeConfig(c)
	if err != nil {
		panic(err)
	}
}

func GetConfig() Config {
	return config
}

// decodeConfig reads content over the defaults, unset fields keep their
// default value.
func decodeConfig(content []byte) (Config, error) {
	c := Default()
	d := yaml.NewDecoder(bytes.NewReader(content))
	d.KnownFields(true)
	err := d.Decode(&c)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
