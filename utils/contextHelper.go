package utils

import (
	"context"

	"github.com/True-Good-Craft/TGC-BUS-Core/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyDevMode       = appctx.ContextKeyDevMode
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetDevModeFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyDevMode)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetDevModeInContext(ctx context.Context, dev bool) context.Context {
	return appctx.Set(ctx, ContextKeyDevMode, dev)
}
