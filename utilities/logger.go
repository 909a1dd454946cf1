package utilities

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// InitLogger configures the process logger for the given environment.
// local writes human readable lines at trace level, dev emits JSON at debug
// level and prod emits JSON at info level.
func InitLogger(env string) error {
	return initLogger(env, os.Stdout)
}

func initLogger(env string, out io.Writer) error {
	zerolog.TimestampFieldName = "timestamp"

	w := out
	level := zerolog.InfoLevel
	switch env {
	case EnvLocal:
		level = zerolog.TraceLevel
		console := zerolog.NewConsoleWriter()
		console.TimeFormat = time.DateTime
		console.Out = out
		w = console
	case EnvDev:
		level = zerolog.DebugLevel
	case EnvProd:
	default:
		return fmt.Errorf("unknown env: %q", env)
	}

	l := zerolog.New(w).Level(level).With().
		Timestamp().
		Int("pid", os.Getpid()).
		Str("env", env).
		Logger()

	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

// SetOutput replaces the logger with one writing JSON to w. Tests use it to
// capture log lines.
func SetOutput(w io.Writer, level zerolog.Level) {
	mu.Lock()
	logger = zerolog.New(w).Level(level)
	mu.Unlock()
}

// Logger returns the process logger for call sites that need structured fields.
func Logger() *zerolog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	return &l
}

// LogRequest records one served HTTP request.
func LogRequest(method, path, remoteAddr string, status int, duration time.Duration) {
	ev := Logger().Info()
	if status >= 500 {
		ev = Logger().Error()
	}
	ev.Str("method", method).
		Str("path", path).
		Str("remote", remoteAddr).
		Int("status", status).
		Dur("duration", duration).
		Msg("request")
}

// LogError records err with a short description of what failed.
func LogError(err error, context string) {
	Logger().Error().Err(err).Msg(context)
}

func LogDebug(format string, v ...any) {
	Logger().Debug().Msgf(format, v...)
}

func LogInfo(format string, v ...any) {
	Logger().Info().Msgf(format, v...)
}

func LogWarn(format string, v ...any) {
	Logger().Warn().Msgf(format, v...)
}
