package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/subsync/subsync/internal/logger"
)

// LoggerAdapter routes watermill logs through the service logger
type LoggerAdapter struct {
	logger *logger.Logger
	fields watermill.LogFields
}

var _ watermill.LoggerAdapter = (*LoggerAdapter)(nil)

func NewLoggerAdapter(l *logger.Logger) *LoggerAdapter {
	return &LoggerAdapter{logger: l}
}

func (a *LoggerAdapter) keyvals(fields watermill.LogFields) []interface{} {
	merged := a.fields.Add(fields)
	kv := make([]interface{}, 0, len(merged)*2)
	for k, v := range merged {
		kv = append(kv, k, v)
	}
	return kv
}

func (a *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Errorw(msg, append(a.keyvals(fields), "error", err)...)
}

func (a *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Infow(msg, a.keyvals(fields)...)
}

func (a *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debugw(msg, a.keyvals(fields)...)
}

// Trace is folded into debug
func (a *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debugw(msg, a.keyvals(fields)...)
}

func (a *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LoggerAdapter{logger: a.logger, fields: a.fields.Add(fields)}
}
