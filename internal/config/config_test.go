package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cjeanneret/PiCam/internal/hw/camera"
)

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	cases := []string{
		"configs/default.yaml",
		"configs/default.toml",
		"/etc/picam/picam.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err != nil {
			t.Errorf("expected valid path %q, got error: %v", path, err)
		}
	}
}

func TestValidateConfigPath_PathTraversal(t *testing.T) {
	cases := []string{
		"../../etc/passwd.yaml",
		"configs/../../../etc/shadow.toml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for traversal path %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_WrongExtension(t *testing.T) {
	cases := []string{
		"configs/default.json",
		"configs/default.yml",
		"configs/default.txt",
		"configs/default",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for extension in %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_EmptyPath(t *testing.T) {
	if err := ValidateConfigPath(""); err == nil {
		t.Error("expected error for empty path, got nil")
	}
}

// ---------- Load ----------

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const fullYAML = `
camera:
  folder: /srv/captures
  home: /opt/picam
  exec_mode: argv
  settings:
    width: 1920
    height: 1080
    nopreview: true
  still:
    quality: 90
    encoding: png
  video:
    timeout: 5000
    framerate: 30
indicator:
  led_pin: 17
  mock_gpio: true
mqtt:
  broker: tcp://localhost:1883
  topic: studio/captures
  qos: 1
defaults:
  debug_level: 3
  web_port: 9090
`

func TestLoad_ValidFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "picam.yaml", fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Camera.Folder != "/srv/captures" || cfg.Camera.Home != "/opt/picam" {
		t.Errorf("camera paths = %q, %q", cfg.Camera.Folder, cfg.Camera.Home)
	}
	if cfg.Camera.ExecMode != "argv" {
		t.Errorf("exec_mode = %q, want argv", cfg.Camera.ExecMode)
	}
	if cfg.Indicator.LEDPin != 17 {
		t.Errorf("led_pin = %d, want 17", cfg.Indicator.LEDPin)
	}
	if cfg.MQTT.Topic != "studio/captures" || cfg.MQTT.QoS != 1 {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
	if cfg.Defaults.DebugLevel != 3 || cfg.Defaults.WebPort != 9090 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	assertNames(t, cfg.Camera.Settings, "width", "height", "nopreview")
}

func TestLoad_TOMLKeepsSettingsOrder(t *testing.T) {
	path := writeConfig(t, "picam.toml", `
[camera]
exec_mode = "shell"

[camera.settings]
width = 1920
height = 1080
nopreview = true

[camera.video]
timeout = 5000
bitrate = 17000000

[mqtt]
qos = 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertNames(t, cfg.Camera.Settings, "width", "height", "nopreview")
	assertNames(t, cfg.Camera.Video, "timeout", "bitrate")
	if v, _ := cfg.Camera.Settings.Lookup("width"); v != int64(1920) {
		t.Errorf("width = %#v, want int64(1920)", v)
	}
	if cfg.MQTT.QoS != 2 {
		t.Errorf("qos = %d, want 2", cfg.MQTT.QoS)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, "min.yaml", "camera:\n  folder: /tmp/x\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Camera.StillBinary != "raspistill" || cfg.Camera.VideoBinary != "raspivid" {
		t.Errorf("binaries = %q, %q", cfg.Camera.StillBinary, cfg.Camera.VideoBinary)
	}
	if cfg.Camera.ExecMode != "shell" {
		t.Errorf("exec_mode = %q, want shell", cfg.Camera.ExecMode)
	}
	if cfg.MQTT.Topic != "picam/captures" {
		t.Errorf("topic = %q", cfg.MQTT.Topic)
	}
	if cfg.Defaults.WebPort != 8080 {
		t.Errorf("web_port = %d, want 8080", cfg.Defaults.WebPort)
	}
	if cfg.Defaults.DebugLevel != 1 {
		t.Errorf("debug_level = %d, want 1", cfg.Defaults.DebugLevel)
	}
}

func TestLoad_ExplicitDebugLevelZero(t *testing.T) {
	cfg, err := Load(writeConfig(t, "quiet.yaml", "defaults:\n  debug_level: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.DebugLevel != 0 {
		t.Errorf("debug_level = %d, want 0", cfg.Defaults.DebugLevel)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Defaults.DebugLevel != 1 {
		t.Errorf("debug_level = %d, want 1", cfg.Defaults.DebugLevel)
	}
	if !cfg.Indicator.MockGPIO {
		t.Error("default config should use the mock GPIO driver")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"exec mode":    "camera:\n  exec_mode: ssh\n",
		"negative pin": "indicator:\n  led_pin: -1\n",
		"pin too high": "indicator:\n  led_pin: 40\n",
		"qos":          "mqtt:\n  qos: 3\n",
		"debug level":  "defaults:\n  debug_level: 9\n",
		"web port":     "defaults:\n  web_port: 70000\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, "bad.yaml", content)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "bad.yaml", "camera: [unclosed")); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_SettingsMustBeMapping(t *testing.T) {
	_, err := Load(writeConfig(t, "bad.yaml", "camera:\n  settings: [width, height]\n"))
	if err == nil || !strings.Contains(err.Error(), "mapping") {
		t.Errorf("expected mapping error, got %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "empty.yaml", ""))
	if err != nil {
		t.Fatalf("empty file should load with defaults: %v", err)
	}
	if cfg.Camera.ExecMode != "shell" {
		t.Errorf("exec_mode = %q", cfg.Camera.ExecMode)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

// ---------- accessors ----------

func TestSettingsFor(t *testing.T) {
	cfg, err := Load(writeConfig(t, "picam.yaml", fullYAML))
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, cfg.SettingsFor(camera.Still), "width", "height", "nopreview", "quality", "encoding")
	assertNames(t, cfg.SettingsFor(camera.Video), "width", "height", "nopreview", "timeout", "framerate")
}

func TestCameraOptions(t *testing.T) {
	cfg := Default()
	cfg.Camera.Home = "/opt/picam"
	cfg.Camera.StillBinary = "/usr/bin/libcamera-still"

	c := camera.New(cfg.CameraOptions()...)
	inv := c.Width(640).Command(camera.Still)
	if inv.Binary != "/usr/bin/libcamera-still" {
		t.Errorf("binary = %q", inv.Binary)
	}
	if got := c.ResolveFilename(camera.Still, "a.jpg"); got != "/opt/picam/pictures/a.jpg" {
		t.Errorf("filename = %q", got)
	}
}

func TestNewCamera_UsesFolder(t *testing.T) {
	cfg := Default()
	cfg.Camera.Folder = "/srv/captures"
	if got := cfg.NewCamera().ResolveFilename(camera.Video, "clip.h264"); got != "/srv/captures/clip.h264" {
		t.Errorf("filename = %q", got)
	}
}

func TestUnknownSettings(t *testing.T) {
	cfg := Default()
	cfg.Camera.Settings = camera.Settings{{Name: "width", Value: 1}, {Name: "zoom", Value: 2}}
	cfg.Camera.Video = camera.Settings{{Name: "colour", Value: "x"}}
	got := cfg.UnknownSettings()
	if len(got) != 2 || got[0] != "zoom" || got[1] != "colour" {
		t.Errorf("UnknownSettings() = %v", got)
	}
}

func assertNames(t *testing.T, s camera.Settings, want ...string) {
	t.Helper()
	if len(s) != len(want) {
		t.Fatalf("settings = %v, want names %v", s, want)
	}
	for i, st := range s {
		if st.Name != want[i] {
			t.Errorf("settings[%d] = %q, want %q", i, st.Name, want[i])
		}
	}
}
