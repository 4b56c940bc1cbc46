package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cjeanneret/PiCam/internal/config"
	"github.com/cjeanneret/PiCam/internal/debug"
	"github.com/cjeanneret/PiCam/internal/hw/gpio"
	"github.com/cjeanneret/PiCam/internal/hw/led"
	"github.com/cjeanneret/PiCam/internal/logic/capture"
	"github.com/cjeanneret/PiCam/internal/notify"
)

// app is the state shared by the subcommands once the config is loaded.
type app struct {
	v   *viper.Viper
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "picam",
		Short: "PiCam - raspistill/raspivid launcher",
		Long: `PiCam builds raspistill and raspivid command lines from named settings
and runs them, from the command line or through a small web API.

Settings come from the config file (applied to every capture) and from
--set flags or the JSON body of a web request (applied after).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	root.PersistentFlags().String("config", "", "config file, .yaml or .toml (default: built-in defaults)")
	root.PersistentFlags().Int("debug-level", 1, "debug level 0-4 (overrides defaults.debug_level)")

	a.v.SetEnvPrefix("PICAM")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	a.v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	a.v.BindPFlag("debug_level", root.PersistentFlags().Lookup("debug-level"))

	root.AddCommand(newCaptureCmd(a, captureStill), newCaptureCmd(a, captureVideo), newServeCmd(a))
	return root
}

// load reads the config file and initializes logging.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	path := a.v.GetString("config")
	if path == "" {
		a.cfg = config.Default()
	} else {
		if err := config.ValidateConfigPath(path); err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
	}

	if a.v.IsSet("debug_level") {
		a.cfg.Defaults.DebugLevel = a.v.GetInt("debug_level")
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	debug.Init(a.cfg.Defaults.DebugLevel)
	debug.SetOutput(cmd.ErrOrStderr())
	debug.Section("Initialization")
	debug.Value("config", path)
	debug.Value("exec_mode", a.cfg.Camera.ExecMode)
	for _, name := range a.cfg.UnknownSettings() {
		debug.Info("Config setting %q is not a camera option, ignored", name)
	}
	return nil
}

// session wires a capture session to the busy LED and the notifiers. The
// returned cleanup releases the GPIO driver and the MQTT connection.
func (a *app) session(extra ...notify.Notifier) (*capture.Session, func(), error) {
	// No LED pin, nothing to drive.
	drv, err := gpio.NewDriver(a.cfg.Indicator.MockGPIO || a.cfg.Indicator.LEDPin == 0)
	if err != nil {
		return nil, nil, fmt.Errorf("init GPIO: %w", err)
	}
	indicator, err := led.New(drv, a.cfg.Indicator.LEDPin)
	if err != nil {
		drv.Close()
		return nil, nil, err
	}

	mqtt, err := notify.New(a.cfg.MQTT)
	if err != nil {
		drv.Close()
		return nil, nil, err
	}
	notifiers := append(notify.Multi{mqtt}, extra...)

	s := capture.NewSession(a.cfg.NewCamera,
		capture.WithBaseSettings(a.cfg.SettingsFor),
		capture.WithIndicator(indicator),
		capture.WithNotifier(notifiers),
	)
	cleanup := func() {
		if err := notifiers.Close(); err != nil {
			debug.Warn(err, "Closing notifiers")
		}
		if err := drv.Close(); err != nil {
			debug.Warn(err, "Closing GPIO driver")
		}
	}
	return s, cleanup, nil
}
