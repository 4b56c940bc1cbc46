package debug

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (resolved files, config summary)
	LevelLive    = 2 // Live info (captures started and finished)
	LevelVerbose = 3 // Verbose (command lines, settings applied)
	LevelTrace   = 4 // Trace (GPIO, skipped settings, raw stderr)
)

var (
	level  int
	out    io.Writer = os.Stdout
	logger           = zerolog.Nop()
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info
// 2 = live info (captures)
// 3 = verbose (command lines, settings)
// 4 = trace (GPIO, very low level)
func Init(debugLevel int) {
	level = debugLevel
	rebuild()
}

// SetOutput redirects log output, e.g. to also feed the web status stream.
func SetOutput(w io.Writer) {
	out = w
	rebuild()
}

func rebuild() {
	if level <= LevelOff {
		logger = zerolog.Nop()
		return
	}
	// Filtering is done on our own 0-4 scale.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05.000",
		NoColor:    out != os.Stdout,
	}).With().Timestamp().Str("app", "picam").Logger()
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// --- Level 1 ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo {
		logger.Info().Msgf(format, args...)
	}
}

// Value prints a named value (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo {
		logger.Info().Interface(name, value).Msg("")
	}
}

// Error prints an error (level 1+).
func Error(err error) {
	if level >= LevelInfo && err != nil {
		logger.Error().Err(err).Msg("")
	}
}

// Warn prints a warning with context (level 1+).
func Warn(err error, format string, args ...interface{}) {
	if level >= LevelInfo {
		logger.Warn().Err(err).Msgf(format, args...)
	}
}

// --- Level 2 ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive {
		logger.Info().Str("lvl", "live").Msgf(format, args...)
	}
}

// Shot prints a finished capture (level 2).
func Shot(kind, filename string) {
	if level >= LevelLive {
		logger.Info().Str("lvl", "live").Str("kind", kind).Str("file", filename).Msg("capture finished")
	}
}

// --- Level 3 ---

// Verbose prints a level 3 message.
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose {
		logger.Debug().Msgf(format, args...)
	}
}

// Command prints a command line about to be spawned (level 3).
func Command(binary, line string) {
	if level >= LevelVerbose {
		logger.Debug().Str("binary", binary).Str("cmd", line).Msg("spawning")
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose {
		logger.Debug().Msg(strings.Repeat("━", 40))
		logger.Debug().Msg("  " + name)
		logger.Debug().Msg(strings.Repeat("━", 40))
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose {
		logger.Debug().Int("step", num).Msg(description)
	}
}

// --- Level 4 ---

// Trace prints a level 4 message.
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace {
		logger.Trace().Msgf(format, args...)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if level >= LevelTrace {
		logger.Trace().Str("op", operation).Int("pin", pin).Interface("value", value).Msg("gpio")
	}
}
