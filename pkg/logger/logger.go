package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with a process-wide singleton.
type Logger struct {
	*logrus.Logger
	mu sync.RWMutex
}

type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

type LogFormat string

const (
	JSONFormat LogFormat = "json"
	TextFormat LogFormat = "text"
)

// Config represents logger configuration
type Config struct {
	Level  LogLevel
	Format LogFormat
	Output string // file path or "stdout"
}

var (
	instance *Logger
	once     sync.Once
)

// Init initializes the global logger
func Init() {
	once.Do(func() {
		instance = NewLogger(getLoggerConfig())
	})
}

// NewLogger creates a new logger instance
func NewLogger(config Config) *Logger {
	logger := &Logger{
		Logger: logrus.New(),
	}

	logger.SetLevel(getLogrusLevel(config.Level))

	if config.Format == JSONFormat {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
				logrus.FieldKeyFunc:  "caller",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				filename := filepath.Base(f.File)
				return fmt.Sprintf("%s()", f.Function), fmt.Sprintf("%s:%d", filename, f.Line)
			},
		})
	}

	if config.Output == "stdout" || config.Output == "" {
		logger.SetOutput(os.Stdout)
	} else {
		logDir := filepath.Dir(config.Output)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Failed to create log directory: %v", err)
			logger.SetOutput(os.Stdout)
		} else {
			writer, err := setupFileOutput(config)
			if err != nil {
				log.Printf("Failed to setup file output: %v", err)
				logger.SetOutput(os.Stdout)
			} else {
				logger.SetOutput(writer)
			}
		}
	}

	logger.SetReportCaller(true)

	return logger
}

func setupFileOutput(config Config) (io.Writer, error) {
	file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	// Mirror to stdout in development so logs stay visible in the terminal
	if os.Getenv("APP_ENV") == "development" {
		return io.MultiWriter(file, os.Stdout), nil
	}

	return file, nil
}

func getLoggerConfig() Config {
	config := Config{
		Level:  InfoLevel,
		Format: JSONFormat,
		Output: "stdout",
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = LogLevel(strings.ToLower(level))
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Format = LogFormat(strings.ToLower(format))
	}

	if output := os.Getenv("LOG_OUTPUT"); output != "" {
		config.Output = output
	}

	if os.Getenv("APP_ENV") == "production" && config.Output == "stdout" {
		config.Output = "logs/app.log"
	}

	return config
}

func getLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Global logger functions. get initializes the singleton on first use
// so callers never see a nil logger, Init or not.

func get() *Logger {
	Init()
	return instance
}

func Debug(args ...interface{}) {
	get().Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

func Info(args ...interface{}) {
	get().Info(args...)
}

func Infof(format string, args ...interface{}) {
	get().Infof(format, args...)
}

func Warn(args ...interface{}) {
	get().Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	get().Warnf(format, args...)
}

func Error(args ...interface{}) {
	get().Error(args...)
}

func Errorf(format string, args ...interface{}) {
	get().Errorf(format, args...)
}

func Fatal(args ...interface{}) {
	get().Fatal(args...)
}

func Fatalf(format string, args ...interface{}) {
	get().Fatalf(format, args...)
}

// WithField creates a logger entry with a field
func WithField(key string, value interface{}) *logrus.Entry {
	return get().WithField(key, value)
}

// WithFields creates a logger entry with multiple fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return get().WithFields(fields)
}

// WithError creates a logger entry with an error field
func WithError(err error) *logrus.Entry {
	return get().WithError(err)
}

// Structured event logging

// LogRequest logs HTTP request information
func LogRequest(method, path, ip, userAgent string, duration time.Duration, statusCode int) {
	WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"ip":          ip,
		"user_agent":  userAgent,
		"duration_ms": duration.Milliseconds(),
		"status_code": statusCode,
		"type":        "request",
	}).Info("HTTP Request")
}

// LogUserAction logs account-level actions (login, register, profile edits)
func LogUserAction(userID, action string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"user_id": userID,
		"action":  action,
		"type":    "user_action",
	}
	for k, v := range metadata {
		fields[k] = v
	}
	WithFields(fields).Info("User Action")
}

// LogAppointmentEvent logs appointment lifecycle transitions
func LogAppointmentEvent(event, appointmentID, actorID string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":          event,
		"appointment_id": appointmentID,
		"actor_id":       actorID,
		"type":           "appointment_event",
	}
	for k, v := range metadata {
		fields[k] = v
	}
	WithFields(fields).Info("Appointment Event")
}

// LogChatEvent logs chat thread and message events
func LogChatEvent(event, threadID, userID string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":     event,
		"thread_id": threadID,
		"user_id":   userID,
		"type":      "chat_event",
	}
	for k, v := range metadata {
		fields[k] = v
	}
	WithFields(fields).Info("Chat Event")
}

// LogCallEvent logs call start/end and signaling room activity
func LogCallEvent(event, roomID, userID string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":   event,
		"room_id": roomID,
		"user_id": userID,
		"type":    "call_event",
	}
	for k, v := range metadata {
		fields[k] = v
	}
	WithFields(fields).Info("Call Event")
}

// LogSecurityEvent logs security-related events
func LogSecurityEvent(event, userID, ip string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":   event,
		"user_id": userID,
		"ip":      ip,
		"type":    "security_event",
	}
	for k, v := range metadata {
		fields[k] = v
	}
	WithFields(fields).Warn("Security Event")
}

// SetLevel changes the logger level at runtime
func SetLevel(level LogLevel) {
	if instance != nil {
		instance.mu.Lock()
		defer instance.mu.Unlock()
		instance.SetLevel(getLogrusLevel(level))
	}
}

// Close closes the logger output if it is a file
func Close() error {
	if instance != nil {
		if file, ok := instance.Out.(*os.File); ok && file != os.Stdout && file != os.Stderr {
			return file.Close()
		}
	}
	return nil
}
