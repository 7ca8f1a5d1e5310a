package config

import (
	"strings"
	"time"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// StalePolicy enumerates behaviors for transient no-detection samples.
type StalePolicy string

const (
	// StaleImmediate writes the unavailable sentinel on the first miss.
	StaleImmediate StalePolicy = "immediate"
	// StaleHold keeps the last reading for a few consecutive misses to
	// suppress flicker.
	StaleHold StalePolicy = "hold"
)

// NormalizeLogLevel maps raw input to a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// NormalizeLogFormat maps raw input to a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(raw), "json") {
		return LogFormatJSON
	}
	return LogFormatText
}

// NormalizeStalePolicy maps raw input to a StalePolicy, defaulting to
// immediate.
func NormalizeStalePolicy(raw string) StalePolicy {
	if strings.EqualFold(strings.TrimSpace(raw), string(StaleHold)) {
		return StaleHold
	}
	return StaleImmediate
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NormalizeWeekStart maps raw input to a weekday name, defaulting to monday.
func NormalizeWeekStart(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := weekdays[key]; ok {
		return key
	}
	return "monday"
}

// WeekStart returns the configured first day of week.
func (h HistoryConfig) WeekStart() time.Weekday {
	if d, ok := weekdays[strings.ToLower(h.WeekStartsOn)]; ok {
		return d
	}
	return time.Monday
}
