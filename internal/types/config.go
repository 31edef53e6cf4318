package types

type RunMode string

const (
	// ModeLocal runs the API server and the notification consumer with development defaults
	ModeLocal RunMode = "local"
	// ModeProduction runs the same processes with production logging and sentry enabled by config
	ModeProduction RunMode = "production"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
