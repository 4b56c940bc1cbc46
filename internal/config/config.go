package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cjeanneret/PiCam/internal/hw/camera"
	"gopkg.in/yaml.v3"
)

// CameraConfig describes how captures are launched.
type CameraConfig struct {
	Folder      string `yaml:"folder" toml:"folder"`             // base folder; empty = <home>/pictures|videos
	Home        string `yaml:"home" toml:"home"`                 // parent of the default folders; empty = executable dir
	StillBinary string `yaml:"still_binary" toml:"still_binary"` // default raspistill
	VideoBinary string `yaml:"video_binary" toml:"video_binary"` // default raspivid
	ExecMode    string `yaml:"exec_mode" toml:"exec_mode"`       // "shell" (default) or "argv"

	// Settings are applied to every capture, then Still or Video.
	Settings camera.Settings `yaml:"settings" toml:"-"`
	Still    camera.Settings `yaml:"still" toml:"-"`
	Video    camera.Settings `yaml:"video" toml:"-"`
}

// IndicatorConfig describes the optional busy LED.
type IndicatorConfig struct {
	LEDPin   int  `yaml:"led_pin" toml:"led_pin"`     // BCM pin, 0 = no LED
	MockGPIO bool `yaml:"mock_gpio" toml:"mock_gpio"` // true off the Pi
}

// MQTTConfig describes the optional completion notifier.
type MQTTConfig struct {
	Broker   string `yaml:"broker" toml:"broker"` // e.g. tcp://localhost:1883; empty = disabled
	Topic    string `yaml:"topic" toml:"topic"`
	ClientID string `yaml:"client_id" toml:"client_id"`
	QoS      int    `yaml:"qos" toml:"qos"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int `yaml:"debug_level" toml:"debug_level"` // 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	WebPort    int `yaml:"web_port" toml:"web_port"`
}

// Config aggregates all application configuration.
type Config struct {
	Camera    CameraConfig    `yaml:"camera" toml:"camera"`
	Indicator IndicatorConfig `yaml:"indicator" toml:"indicator"`
	MQTT      MQTTConfig      `yaml:"mqtt" toml:"mqtt"`
	Defaults  DefaultsConfig  `yaml:"defaults" toml:"defaults"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Indicator: IndicatorConfig{MockGPIO: true}}
	cfg.Defaults.DebugLevel = 1
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file, or a TOML file when the extension is .toml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Decoding keeps fields the file does not mention.
	cfg := &Config{Defaults: DefaultsConfig{DebugLevel: 1}}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = decodeTOML(data, cfg)
	} else {
		err = decodeYAML(data, cfg)
	}
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal yaml: %w", err)
	}
	return nil
}

// tomlSettings carries the camera settings tables, which need their key
// order restored from the metadata.
type tomlSettings struct {
	Camera struct {
		Settings map[string]any `toml:"settings"`
		Still    map[string]any `toml:"still"`
		Video    map[string]any `toml:"video"`
	} `toml:"camera"`
}

func decodeTOML(data []byte, cfg *Config) error {
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
		return fmt.Errorf("unmarshal toml: %w", err)
	}

	var raw tomlSettings
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw)
	if err != nil {
		return fmt.Errorf("unmarshal toml: %w", err)
	}
	cfg.Camera.Settings = orderedSettings(md, raw.Camera.Settings, "camera", "settings")
	cfg.Camera.Still = orderedSettings(md, raw.Camera.Still, "camera", "still")
	cfg.Camera.Video = orderedSettings(md, raw.Camera.Video, "camera", "video")
	return nil
}

// orderedSettings lists m in the order its keys appear in the document.
func orderedSettings(md toml.MetaData, m map[string]any, table ...string) camera.Settings {
	if len(m) == 0 {
		return nil
	}
	out := make(camera.Settings, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, key := range md.Keys() {
		if len(key) != len(table)+1 || !hasPrefix(key, table) {
			continue
		}
		name := key[len(table)]
		if v, ok := m[name]; ok && !seen[name] {
			out = append(out, camera.Setting{Name: name, Value: v})
			seen[name] = true
		}
	}
	var rest []string
	for name := range m {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		out = append(out, camera.Setting{Name: name, Value: m[name]})
	}
	return out
}

func hasPrefix(key toml.Key, prefix []string) bool {
	for i, p := range prefix {
		if key[i] != p {
			return false
		}
	}
	return true
}

func (c *Config) applyDefaults() {
	if c.Camera.StillBinary == "" {
		c.Camera.StillBinary = camera.Still.Binary()
	}
	if c.Camera.VideoBinary == "" {
		c.Camera.VideoBinary = camera.Video.Binary()
	}
	if c.Camera.ExecMode == "" {
		c.Camera.ExecMode = "shell"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "picam/captures"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "picam"
	}
	if c.Defaults.WebPort <= 0 {
		c.Defaults.WebPort = 8080
	}
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Camera.ExecMode {
	case "shell", "argv":
	default:
		return fmt.Errorf("camera.exec_mode must be shell or argv, got %q", c.Camera.ExecMode)
	}
	if c.Indicator.LEDPin < 0 || c.Indicator.LEDPin > 27 {
		return fmt.Errorf("indicator.led_pin must be between 0 and 27, got %d", c.Indicator.LEDPin)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	if c.Defaults.WebPort > 65535 {
		return fmt.Errorf("defaults.web_port must be 1-65535, got %d", c.Defaults.WebPort)
	}
	return nil
}

// ValidateConfigPath rejects paths with ".." elements and files that are
// neither .yaml nor .toml.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain ..", path)
		}
	}
	switch filepath.Ext(path) {
	case ".yaml", ".toml":
		return nil
	}
	return fmt.Errorf("config path %q must end in .yaml or .toml", path)
}

// CameraOptions returns the construction options for a Camera.
func (c *Config) CameraOptions() []camera.Option {
	opts := []camera.Option{
		camera.WithRunner(camera.RunnerFor(c.Camera.ExecMode)),
		camera.WithBinary(camera.Still, c.Camera.StillBinary),
		camera.WithBinary(camera.Video, c.Camera.VideoBinary),
	}
	if c.Camera.Home != "" {
		opts = append(opts, camera.WithHomeDir(c.Camera.Home))
	}
	return opts
}

// NewCamera returns an empty Camera with the configured binaries, runner,
// home and base folder.
func (c *Config) NewCamera() *camera.Camera {
	cam := camera.New(c.CameraOptions()...)
	if c.Camera.Folder != "" {
		cam.BaseFolder(c.Camera.Folder)
	}
	return cam
}

// SettingsFor returns the shared settings followed by the kind's own.
func (c *Config) SettingsFor(kind camera.Kind) camera.Settings {
	out := make(camera.Settings, 0, len(c.Camera.Settings)+len(c.Camera.Video)+len(c.Camera.Still))
	out = append(out, c.Camera.Settings...)
	if kind == camera.Video {
		return append(out, c.Camera.Video...)
	}
	return append(out, c.Camera.Still...)
}

// UnknownSettings lists configured setting names no setter handles. They
// are ignored at capture time; the CLI warns about them.
func (c *Config) UnknownSettings() []string {
	var unknown []string
	for _, group := range []camera.Settings{c.Camera.Settings, c.Camera.Still, c.Camera.Video} {
		for _, st := range group {
			if !camera.IsSetting(st.Name) {
				unknown = append(unknown, st.Name)
			}
		}
	}
	return unknown
}
