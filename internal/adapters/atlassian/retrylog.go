package atlassian

import (
	"context"
	"fmt"

	"github.com/okian/overtime/pkg/logger"
)

// leveledLogger adapts logger.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log logger.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) {
	l.log.Error(context.Background(), msg, fields(kv)...)
}

func (l leveledLogger) Warn(msg string, kv ...interface{}) {
	l.log.Warn(context.Background(), msg, fields(kv)...)
}

func (l leveledLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug(context.Background(), msg, fields(kv)...)
}

func (l leveledLogger) Debug(msg string, kv ...interface{}) {
	l.log.Debug(context.Background(), msg, fields(kv)...)
}

func fields(kv []interface{}) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, logger.Any("extra", kv[len(kv)-1]))
	}
	return out
}
