package exodbc

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is the closed set of verbosity levels a LogHandler can be
// configured at (spec.md §5/§6).
type LogLevel int

const (
	LevelNone LogLevel = iota
	LevelError
	LevelWarning
	LevelOutput
	LevelInfo
	LevelDebug
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelError:
		return zapcore.ErrorLevel
	case LevelWarning:
		return zapcore.WarnLevel
	case LevelOutput, LevelInfo:
		return zapcore.InfoLevel
	case LevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.FatalLevel + 1 // disables all output
	}
}

// LogSink selects where a LogHandler writes (spec.md §6 command table).
type LogSink int

const (
	SinkStderr LogSink = iota
	SinkStdout
	SinkFile
	SinkNull
)

// LogHandler is the module's logging facade: one level, one sink, safe for
// concurrent use (spec.md §5). Built on zap, grounded in the pack's only
// structured-logging dependency.
type LogHandler struct {
	mu     sync.Mutex
	level  LogLevel
	logger *zap.Logger
}

// NewLogHandler constructs a handler writing to sink at level. path is
// used only when sink is SinkFile.
func NewLogHandler(level LogLevel, sink LogSink, path string) (*LogHandler, error) {
	if sink == SinkNull || level == LevelNone {
		return &LogHandler{level: LevelNone, logger: zap.NewNop()}, nil
	}
	var ws zapcore.WriteSyncer
	switch sink {
	case SinkFile:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, &WrapperError{Inner: err}
		}
		ws = zapcore.AddSync(f)
	case SinkStdout:
		ws = zapcore.AddSync(os.Stdout)
	default:
		ws = zapcore.AddSync(os.Stderr)
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	// The core accepts every level; h.level alone filters in log, so
	// SetLevel can raise or lower verbosity.
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), ws, zapcore.DebugLevel)
	return &LogHandler{level: level, logger: zap.New(core)}, nil
}

// SetLevel changes the handler's active level without rebuilding the sink.
func (h *LogHandler) SetLevel(level LogLevel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Level returns the handler's current level.
func (h *LogHandler) Level() LogLevel {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

func (h *LogHandler) log(level LogLevel, format string, args []interface{}) {
	h.mu.Lock()
	active := h.level
	logger := h.logger
	h.mu.Unlock()
	if level > active || active == LevelNone {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	switch level {
	case LevelError:
		logger.Error(msg)
	case LevelWarning:
		logger.Warn(msg)
	case LevelDebug:
		logger.Debug(msg)
	default:
		logger.Info(msg)
	}
}

// Error logs at LevelError.
func (h *LogHandler) Error(format string, args ...interface{}) { h.log(LevelError, format, args) }

// Warning logs at LevelWarning.
func (h *LogHandler) Warning(format string, args ...interface{}) { h.log(LevelWarning, format, args) }

// Output logs at LevelOutput (user-facing progress, distinct from Info).
func (h *LogHandler) Output(format string, args ...interface{}) { h.log(LevelOutput, format, args) }

// Info logs at LevelInfo.
func (h *LogHandler) Info(format string, args ...interface{}) { h.log(LevelInfo, format, args) }

// Debug logs at LevelDebug.
func (h *LogHandler) Debug(format string, args ...interface{}) { h.log(LevelDebug, format, args) }

var (
	defaultLogMu      sync.Mutex
	defaultLogHandler *LogHandler
)

func init() {
	defaultLogHandler, _ = NewLogHandler(LevelWarning, SinkStderr, "")
}

// SetDefaultLogHandler installs the package-wide log handler used by Log.
func SetDefaultLogHandler(h *LogHandler) {
	defaultLogMu.Lock()
	defer defaultLogMu.Unlock()
	defaultLogHandler = h
}

// Log writes through the package's default LogHandler. Internal call sites
// (connection lifecycle, catalog, buffers) use this rather than holding
// their own handler reference.
func Log(level LogLevel, format string, args ...interface{}) {
	defaultLogMu.Lock()
	h := defaultLogHandler
	defaultLogMu.Unlock()
	if h == nil {
		return
	}
	h.log(level, format, args)
}
