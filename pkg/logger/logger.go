package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Logger handles all logging for the toolkit
type Logger struct {
	level           LogLevel
	writer          io.Writer
	cpuEnabled      bool
	analyzerEnabled bool
	emulatorEnabled bool
	disasmEnabled   bool
}

var globalLogger *Logger

// Initialize sets up the global logger
func Initialize(level LogLevel, filename string) error {
	var writer io.Writer = os.Stdout

	if filename != "" {
		file, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		writer = file
	}

	globalLogger = &Logger{
		level:           level,
		writer:          writer,
		cpuEnabled:      true,
		analyzerEnabled: true,
		emulatorEnabled: true,
		disasmEnabled:   true,
	}

	return nil
}

// SetCPULogging enables or disables CPU instruction logging
func SetCPULogging(enabled bool) {
	if globalLogger != nil {
		globalLogger.cpuEnabled = enabled
	}
}

// SetAnalyzerLogging enables or disables memory-analyzer logging
func SetAnalyzerLogging(enabled bool) {
	if globalLogger != nil {
		globalLogger.analyzerEnabled = enabled
	}
}

// SetEmulatorLogging enables or disables emulation-driver logging
func SetEmulatorLogging(enabled bool) {
	if globalLogger != nil {
		globalLogger.emulatorEnabled = enabled
	}
}

// SetDisasmLogging enables or disables disassembler/emitter logging
func SetDisasmLogging(enabled bool) {
	if globalLogger != nil {
		globalLogger.disasmEnabled = enabled
	}
}

// LogCPU logs CPU instruction execution (emitted only at Debug level or above)
func LogCPU(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.cpuEnabled && globalLogger.level >= LogLevelDebug {
		emit(globalLogger, "CPU", format, args...)
	}
}

// LogAnalyzer logs memory-analyzer pass progress
func LogAnalyzer(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.analyzerEnabled && globalLogger.level >= LogLevelDebug {
		emit(globalLogger, "ANALYZER", format, args...)
	}
}

// LogEmulator logs emulation-driver progress
func LogEmulator(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.emulatorEnabled && globalLogger.level >= LogLevelDebug {
		emit(globalLogger, "EMULATOR", format, args...)
	}
}

// LogDisasm logs disassembler/emitter progress
func LogDisasm(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.disasmEnabled && globalLogger.level >= LogLevelDebug {
		emit(globalLogger, "DISASM", format, args...)
	}
}

// LogInfo logs general information
func LogInfo(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.level >= LogLevelInfo {
		emit(globalLogger, "INFO", format, args...)
	}
}

// LogWarn logs a warning (used for suspicious-but-not-fatal run conditions)
func LogWarn(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.level >= LogLevelWarn {
		emit(globalLogger, "WARN", format, args...)
	}
}

// LogError logs errors
func LogError(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.level >= LogLevelError {
		emit(globalLogger, "ERROR", format, args...)
	}
}

// LogDebug logs debug information
func LogDebug(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.level >= LogLevelDebug {
		emit(globalLogger, "DEBUG", format, args...)
	}
}

// LogStateDump writes a spew dump of v under the DEBUG tag; used for
// dumping CPU/memory state when a subroutine run aborts.
func LogStateDump(label string, v interface{}) {
	if globalLogger != nil && globalLogger.level >= LogLevelDebug {
		emit(globalLogger, "DEBUG", "%s:\n%s", label, spew.Sdump(v))
	}
}

func emit(l *Logger, tag, format string, args ...interface{}) {
	timestamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.writer, "[%s] %s: %s\n", timestamp, tag, message)
}

// GetLogLevelFromString converts string to LogLevel
func GetLogLevelFromString(level string) LogLevel {
	switch level {
	case "off":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "warn":
		return LogLevelWarn
	case "info":
		return LogLevelInfo
	case "debug":
		return LogLevelDebug
	case "trace":
		return LogLevelTrace
	default:
		return LogLevelInfo
	}
}

// Close closes the logger and any associated files
func Close() {
	if globalLogger != nil {
		if file, ok := globalLogger.writer.(*os.File); ok && file != os.Stdout && file != os.Stderr {
			file.Close()
		}
	}
}
