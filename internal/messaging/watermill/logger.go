package watermill

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

// zapAdapter routes watermill's logging into the application logger.
type zapAdapter struct {
	log *logger.Logger
}

func NewLogger(log *logger.Logger) watermill.LoggerAdapter {
	return &zapAdapter{log: log}
}

func (a *zapAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(flatten(fields), "err", err)...)
}

func (a *zapAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, flatten(fields)...)
}

func (a *zapAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, flatten(fields)...)
}

// Trace is mapped to debug; zap has no trace level.
func (a *zapAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, flatten(fields)...)
}

func (a *zapAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapAdapter{log: a.log.With(flatten(fields)...)}
}

func flatten(fields watermill.LogFields) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
