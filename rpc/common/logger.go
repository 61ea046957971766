package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LoggerNames lists every package logger of the client
var LoggerNames = []string{"client", "transport", "transport/pool", "transport/http", "cli"}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// dplaneLogger implements the ILogger interface with custom formatting
type dplaneLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *dplaneLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *dplaneLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *dplaneLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *dplaneLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *dplaneLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *dplaneLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *dplaneLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

var (
	outputMu sync.RWMutex
	output   io.Writer = os.Stdout
)

// SetLogOutput redirects loggers created afterwards to w
func SetLogOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	output = w
}

// CreateLogger implements the dragonboat logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	outputMu.RLock()
	w := output
	outputMu.RUnlock()

	// Create standard logger with custom flags
	stdLogger := log.New(w, "", log.Ldate|log.Ltime)

	return &dplaneLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: stdLogger,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the custom logger factory and sets the level of all client loggers.
// Tracing requests requires debug output of the transport loggers.
func InitLoggers(config ClientConfig) {
	// Set as the global logger factory
	logger.SetLoggerFactory(CreateLogger)

	level, err := ParseLogLevel(config.LogLevel)
	if err != nil {
		logger.GetLogger("client").Warningf("%v, using info", err)
	}

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(level)
	}

	if config.TraceRequests {
		logger.GetLogger("transport").SetLevel(logger.DEBUG)
		logger.GetLogger("transport/http").SetLevel(logger.DEBUG)
	}
}
