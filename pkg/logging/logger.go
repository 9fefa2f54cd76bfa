package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Config selects level, format and destination for New.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json (default) or text
	Output string `yaml:"output"` // stdout (default), stderr or a file path
}

// New builds a logger from cfg. The returned closer releases the output file
// when one was opened; it is a no-op for stdout and stderr.
func New(cfg Config) (Logger, io.Closer, error) {
	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log output: %w", err)
		}
		w, closer = f, f
	}

	format := Format(strings.ToLower(cfg.Format))
	switch format {
	case "", FormatJSON:
		format = FormatJSON
	case FormatText:
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return newLogger(w, ParseLevel(cfg.Level), format), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewJSONLogger creates a JSON-lines logger
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	return newLogger(writer, level, FormatJSON)
}

// NewTextLogger creates a logger writing "time LEVEL msg key=value" lines.
func NewTextLogger(writer io.Writer, level Level) *JSONLogger {
	return newLogger(writer, level, FormatText)
}

func newLogger(w io.Writer, level Level, format Format) *JSONLogger {
	return &JSONLogger{
		out:    &syncWriter{w: w},
		level:  &levelBox{level: level},
		format: format,
	}
}

func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.level.get() {
		return
	}

	fieldMap := make(map[string]any, len(l.fields)+len(fields))
	for _, f := range l.fields {
		fieldMap[f.Key] = f.Value
	}
	for _, f := range fields {
		fieldMap[f.Key] = f.Value
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if l.format == FormatText {
		l.out.write(encodeText(now, level, msg, fieldMap))
		return
	}

	entry := LogEntry{Time: now, Level: level.String(), Message: msg}
	if len(fieldMap) > 0 {
		entry.Fields = fieldMap
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.out.write([]byte(fmt.Sprintf("[ERROR] failed to marshal log entry: %v\n", err)))
		return
	}
	l.out.write(append(data, '\n'))
}

func encodeText(now string, level Level, msg string, fields map[string]any) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", now, level, msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fmt.Sprint(fields[k])
		if strings.ContainsAny(v, " \t\"=") {
			v = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

// With returns a child sharing the writer and level.
func (l *JSONLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &JSONLogger{out: l.out, level: l.level, format: l.format, fields: merged}
}

// SetLevel changes the minimum level for this logger and every child.
func (l *JSONLogger) SetLevel(level Level) { l.level.set(level) }

func (l *JSONLogger) GetLevel() Level { return l.level.get() }

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// DefaultLogger returns the process-wide logger, creating a JSON stdout
// logger at LOG_LEVEL on first use.
func DefaultLogger() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewJSONLogger(os.Stdout, ParseLevel(os.Getenv("LOG_LEVEL")))
	}
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger.
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

func Debug(msg string, fields ...Field) { DefaultLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { DefaultLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { DefaultLogger().Warn(msg, fields...) }

// ErrorLog logs at error level on the default logger. Error is taken by the
// field constructor.
func ErrorLog(msg string, fields ...Field) { DefaultLogger().Error(msg, fields...) }

func With(fields ...Field) Logger { return DefaultLogger().With(fields...) }

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{logger: logger, msg: msg, start: time.Now(), fields: fields}
}

// Elapsed returns the time since StartTimer.
func (t *TimedOperation) Elapsed() time.Duration {
	return time.Since(t.start)
}

// End logs the operation at debug level with its latency. Query paths are
// hot; operators raise the level when they want per-request lines.
func (t *TimedOperation) End(extra ...Field) {
	t.logger.Debug(t.msg, t.with(extra)...)
}

// EndWarn logs the operation at warn level, used for slow queries.
func (t *TimedOperation) EndWarn(msg string, extra ...Field) {
	t.logger.Warn(msg, t.with(extra)...)
}

// EndError logs the operation as an error with its duration
func (t *TimedOperation) EndError(err error, extra ...Field) {
	t.logger.Error(t.msg, append(t.with(extra), Error(err))...)
}

func (t *TimedOperation) with(extra []Field) []Field {
	fields := make([]Field, 0, len(t.fields)+len(extra)+1)
	fields = append(fields, t.fields...)
	fields = append(fields, extra...)
	return append(fields, Latency(t.Elapsed()))
}
