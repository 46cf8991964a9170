package log

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Only the first stack line ("goroutine 123 [running]:") is needed.
	stackBufSize = 32
	// Shortest stack header that can still carry an id.
	minStackHeaderLen = 12
	// len("goroutine ").
	goroutinePrefixLen = 10
)

var (
	Logger    zerolog.Logger
	stackPool sync.Pool
)

func init() {
	stackPool.New = func() interface{} {
		return make([]byte, stackBufSize)
	}
	Logger = New(os.Stderr, false)
	log.Logger = Logger
}

// goroutineID reads the current goroutine id from the stack header.
func goroutineID() string {
	buf, ok := stackPool.Get().([]byte)
	if !ok {
		return "unknown"
	}
	defer stackPool.Put(buf) //nolint:staticcheck // buf is a slice, this is the correct usage

	n := runtime.Stack(buf, false)
	if n < minStackHeaderLen {
		return "unknown"
	}

	idx := goroutinePrefixLen
	start := idx
	for idx < n && buf[idx] >= '0' && buf[idx] <= '9' {
		idx++
	}
	if idx > start {
		return string(buf[start:idx])
	}
	return "unknown"
}

// New builds a logger writing to out. JSON output is used when jsonOutput is
// set, otherwise a colored console writer.
func New(out io.Writer, jsonOutput bool) zerolog.Logger {
	writer := out
	if !jsonOutput {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(writer).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Info logs an info message with goroutine ID.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message with goroutine ID.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message with goroutine ID.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message with goroutine ID.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs a fatal message with goroutine ID and exits.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}

// SetLevel switches the logger to the named level ("debug", "info", ...).
// An empty name leaves the level unchanged.
func SetLevel(name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	Logger = Logger.Level(level)
	log.Logger = Logger
	return nil
}
