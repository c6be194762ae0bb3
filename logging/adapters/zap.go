package adapters

import (
	"go.uber.org/zap"

	"github.com/xelexin/fixedkv/fixedkv"
)

// Zap wraps a zap.Logger to implement fixedkv.Logger.
type Zap struct {
	logger *zap.Logger
}

// NewZap creates a fixedkv.Logger from a zap.Logger.
func NewZap(logger *zap.Logger) fixedkv.Logger {
	return &Zap{logger: logger}
}

func (z *Zap) Error(msg string, args ...any) {
	z.logger.Sugar().Errorw(msg, args...)
}

func (z *Zap) Warn(msg string, args ...any) {
	z.logger.Sugar().Warnw(msg, args...)
}

func (z *Zap) Info(msg string, args ...any) {
	z.logger.Sugar().Infow(msg, args...)
}
