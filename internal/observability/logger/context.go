package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext guarda l en ctx. El servidor de ops lo usa para el logger del
// request; el transporte push puede hacer lo mismo con el host del gateway
// antes del handshake.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From devuelve el logger de ctx, o el singleton si no hay ninguno
// (ctx nil incluido).
func From(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return L()
}

// Scoped es From(ctx) con el campo component y fields agregados.
func Scoped(ctx context.Context, component string, fields ...zap.Field) *zap.Logger {
	return From(ctx).With(append([]zap.Field{Component(component)}, fields...)...)
}
