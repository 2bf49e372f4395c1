package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"
)

// Level orders log messages by severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel converts a level name into a Level.
func ParseLevel(name string) (Level, error) {
	for level, n := range levelNames {
		if strings.EqualFold(n, name) {
			return level, nil
		}
	}
	if strings.EqualFold(name, "warning") {
		return LevelWarn, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

var (
	InfoStyleBG  = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnStyleBG  = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorStyleBG = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	DebugStyleBG = pterm.NewStyle(pterm.BgGray, pterm.FgBlack)
)

var printers = map[Level]pterm.PrefixPrinter{
	LevelDebug: {
		MessageStyle: pterm.NewStyle(pterm.FgGray),
		Prefix:       pterm.Prefix{Style: DebugStyleBG, Text: "DEBUG"},
	},
	LevelInfo: {
		MessageStyle: pterm.NewStyle(pterm.FgDefault),
		Prefix:       pterm.Prefix{Style: InfoStyleBG, Text: " INFO"},
	},
	LevelWarn: {
		MessageStyle: pterm.NewStyle(pterm.FgYellow),
		Prefix:       pterm.Prefix{Style: WarnStyleBG, Text: " WARN"},
	},
	LevelError: {
		MessageStyle: pterm.NewStyle(pterm.FgRed),
		Prefix:       pterm.Prefix{Style: ErrorStyleBG, Text: "ERROR"},
	},
}

// Logger writes leveled messages through pterm prefix printers. It is safe
// for concurrent use; every message is written with a single Write call.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

// New creates a Logger writing to out at the given minimum level.
func New(out io.Writer, level Level) *Logger {
	return &Logger{out: out, level: level}
}

// Default returns a Logger writing to stderr at info level.
func Default() *Logger {
	return New(os.Stderr, LevelInfo)
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

// Level reports the minimum level written by the logger.
func (l *Logger) Level() Level {
	return l.level
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) log(level Level, msg string) {
	if l == nil || !l.Enabled(level) {
		return
	}
	line := printers[level].Sprintln(msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, line)
}

func (l *Logger) Debug(msg string) { l.log(LevelDebug, msg) }
func (l *Logger) Info(msg string)  { l.log(LevelInfo, msg) }
func (l *Logger) Warn(msg string)  { l.log(LevelWarn, msg) }
func (l *Logger) Error(msg string) { l.log(LevelError, msg) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, fmt.Sprintf(format, args...))
}
