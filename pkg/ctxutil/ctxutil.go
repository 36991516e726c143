package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	actorIDKey   ctxKey = "actor_id"
	guildIDKey   ctxKey = "guild_id"
	requestIDKey ctxKey = "request_id"
)

// WithActorID stores the id of the user on whose behalf the request runs.
func WithActorID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

// ActorIDFromCtx extracts the actor ID from the context.
// Returns 0 and false if the value is missing, zero, or wrong type.
func ActorIDFromCtx(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(actorIDKey).(uint64)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// WithGuildID stores the guild the request is scoped to.
func WithGuildID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, guildIDKey, id)
}

// GuildIDFromCtx extracts the guild ID from the context.
func GuildIDFromCtx(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(guildIDKey).(uint64)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// EnsureRequestID returns ctx unchanged if it already carries a request ID,
// otherwise a copy carrying a new random one.
func EnsureRequestID(ctx context.Context) context.Context {
	if RequestIDFromCtx(ctx) != "" {
		return ctx
	}
	return WithRequestID(ctx, uuid.NewString())
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
