package config

import (
	"fmt"
	"sort"
	"strings"
)

// enumNormalizer maps case-insensitive raw strings onto enum values.
type enumNormalizer[T ~string] struct {
	name   string
	values map[string]T
	def    T
}

func newEnumNormalizer[T ~string](name string, def T, values ...T) *enumNormalizer[T] {
	m := make(map[string]T, len(values))
	for _, v := range values {
		m[string(v)] = v
	}
	return &enumNormalizer[T]{name: name, values: m, def: def}
}

// Normalize returns the default for empty or unknown input.
func (n *enumNormalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v
	}
	return n.def
}

// NormalizeWithValidation accepts empty input as the default.
func (n *enumNormalizer[T]) NormalizeWithValidation(raw string) (T, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return n.def, nil
	}
	if v, ok := n.values[key]; ok {
		return v, nil
	}
	return n.def, fmt.Errorf("invalid %s %q (valid: %s)", n.name, raw, strings.Join(n.valid(), ", "))
}

func (n *enumNormalizer[T]) valid() []string {
	keys := make([]string, 0, len(n.values))
	for k := range n.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SinkKind selects the output sink.
type SinkKind string

const (
	SinkFS   SinkKind = "fs"
	SinkNATS SinkKind = "nats"
)

var sinkNormalizer = newEnumNormalizer("output sink", SinkFS, SinkFS, SinkNATS)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = newEnumNormalizer("log level", LogLevelInfo,
	LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)

func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = newEnumNormalizer("log format", LogFormatText, LogFormatJSON, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}
