package adapters

import (
	"github.com/sirupsen/logrus"

	"github.com/xelexin/fixedkv/fixedkv"
)

// Logrus wraps a logrus.Logger to implement fixedkv.Logger.
type Logrus struct {
	logger *logrus.Logger
}

// NewLogrus creates a fixedkv.Logger from a logrus.Logger.
func NewLogrus(logger *logrus.Logger) fixedkv.Logger {
	return &Logrus{logger: logger}
}

func (l *Logrus) Error(msg string, args ...any) {
	l.logger.WithFields(argsToFields(args)).Error(msg)
}

func (l *Logrus) Warn(msg string, args ...any) {
	l.logger.WithFields(argsToFields(args)).Warn(msg)
}

func (l *Logrus) Info(msg string, args ...any) {
	l.logger.WithFields(argsToFields(args)).Info(msg)
}

func argsToFields(args []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	return fields
}
