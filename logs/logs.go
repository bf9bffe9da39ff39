// Package logs implements the subsystem logging backend shared by every
// package in tlcd: one rotated backend, one named logger per subsystem,
// independently leveled.
package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jrick/logrotate/rotator"
)

// Level is a logging severity.
type Level uint8

// Severity levels, lowest to highest.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

func levelFromString(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "critical":
		return LevelCritical, true
	case "off":
		return LevelOff, true
	}
	return LevelInfo, false
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRC"
	case LevelDebug:
		return "DBG"
	case LevelInfo:
		return "INF"
	case LevelWarn:
		return "WRN"
	case LevelError:
		return "ERR"
	case LevelCritical:
		return "CRT"
	default:
		return "OFF"
	}
}

// Logger writes leveled, tagged messages to the shared backend.
type Logger struct {
	tag   string
	level Level
}

// Subsystem tags. Add one here and to defaultTags when a new
// package needs its own logger.
const (
	TagChain = "CHAN"
	TagScrp  = "SCRP"
	TagP2P   = "P2P "
	TagNode  = "NODE"
	TagStor  = "STOR"
)

var (
	mu          sync.Mutex
	logRotator  *rotator.Rotator
	initiated   bool
	subsystems  = map[string]*Logger{}
	defaultTags = []string{TagChain, TagScrp, TagP2P, TagNode, TagStor}
)

func init() {
	for _, tag := range defaultTags {
		subsystems[tag] = &Logger{tag: tag, level: LevelInfo}
	}
}

// InitLogRotator sets up file rotation for every subsystem logger. Until
// this is called, loggers only write to stdout.
func InitLogRotator(logFile string) error {
	mu.Lock()
	defer mu.Unlock()

	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return err
		}
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	initiated = true
	return nil
}

// Get returns the logger for a subsystem tag, creating it on first use.
func Get(tag string) *Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := subsystems[tag]; ok {
		return l
	}
	l := &Logger{tag: tag, level: LevelInfo}
	subsystems[tag] = l
	return l
}

// SetLevel sets the level of a single subsystem logger. Unknown tags are
// ignored.
func SetLevel(tag, levelStr string) {
	mu.Lock()
	defer mu.Unlock()
	l, ok := subsystems[tag]
	if !ok {
		return
	}
	level, ok := levelFromString(levelStr)
	if !ok {
		level = LevelInfo
	}
	l.level = level
}

// SetAllLevels sets every subsystem logger to the same level.
func SetAllLevels(levelStr string) {
	mu.Lock()
	tags := make([]string, 0, len(subsystems))
	for tag := range subsystems {
		tags = append(tags, tag)
	}
	mu.Unlock()
	for _, tag := range tags {
		SetLevel(tag, levelStr)
	}
}

// SupportedSubsystems returns the known subsystem tags, sorted.
func SupportedSubsystems() []string {
	mu.Lock()
	defer mu.Unlock()
	tags := make([]string, 0, len(subsystems))
	for tag := range subsystems {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (l *Logger) write(level Level, msg string) {
	mu.Lock()
	enabled := level >= l.level
	r := logRotator
	ok := initiated
	mu.Unlock()
	if !enabled {
		return
	}
	line := fmt.Sprintf("%s [%s] %s %s\n", time.Now().Format("2006-01-02 15:04:05.000"), level, l.tag, msg)
	os.Stdout.WriteString(line)
	if ok && r != nil {
		r.Write([]byte(line))
	}
}

// Tracef logs at trace level.
func (l *Logger) Tracef(format string, args ...interface{}) { l.write(LevelTrace, fmt.Sprintf(format, args...)) }

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...interface{}) { l.write(LevelDebug, fmt.Sprintf(format, args...)) }

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...interface{}) { l.write(LevelInfo, fmt.Sprintf(format, args...)) }

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, args ...interface{}) { l.write(LevelWarn, fmt.Sprintf(format, args...)) }

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...interface{}) { l.write(LevelError, fmt.Sprintf(format, args...)) }

// Info logs a single already-formatted message at info level.
func (l *Logger) Info(msg string) { l.write(LevelInfo, msg) }

// Warn logs a single already-formatted message at warn level.
func (l *Logger) Warn(msg string) { l.write(LevelWarn, msg) }
