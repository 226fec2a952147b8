// Package logger provides the structured logger shared by the client, the
// streaming engine and the command line tools.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LoggingConfig configures a Logger.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// Logger wraps logrus with a component name and trace id propagation.
type Logger struct {
	*logrus.Logger
	component string
	closer    io.Closer
}

// New builds a logger from cfg. Unknown levels fall back to info and unknown
// outputs fall back to stdout.
func New(cfg LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
	default:
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}

	out := &Logger{Logger: l}
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "stderr":
		l.SetOutput(os.Stderr)
	case "file":
		f, err := openLogFile(cfg.FilePrefix)
		if err != nil {
			l.SetOutput(os.Stdout)
			l.WithError(err).Warn("log file unavailable, using stdout")
			break
		}
		l.SetOutput(f)
		out.closer = f
	default:
		l.SetOutput(os.Stdout)
	}

	l.AddHook(traceHook{})
	return out
}

// NewDefault returns an info-level JSON logger tagged with component.
func NewDefault(component string) *Logger {
	l := New(LoggingConfig{Level: "info", Format: "json", Output: "stdout"})
	l.component = component
	l.AddHook(componentHook{name: component})
	return l
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return &Logger{Logger: l}
}

// Component returns the component name given to NewDefault, if any.
func (l *Logger) Component() string {
	if l == nil {
		return ""
	}
	return l.component
}

// Close releases the log file when the logger writes to one.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func openLogFile(prefix string) (*os.File, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "ledger"
	}
	name := fmt.Sprintf("%s-%s.log", prefix, time.Now().UTC().Format("20060102"))
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// =============================================================================
// Trace IDs
// =============================================================================

type traceIDKey struct{}

// NewTraceID returns a fresh random trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores id on ctx so that entries created with WithContext carry it.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceIDFromContext returns the trace id stored on ctx or "".
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

type traceHook struct{}

func (traceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (traceHook) Fire(e *logrus.Entry) error {
	if id := TraceIDFromContext(e.Context); id != "" {
		if _, exists := e.Data["trace_id"]; !exists {
			e.Data["trace_id"] = id
		}
	}
	return nil
}

type componentHook struct{ name string }

func (componentHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h componentHook) Fire(e *logrus.Entry) error {
	if _, exists := e.Data["component"]; !exists {
		e.Data["component"] = h.name
	}
	return nil
}
