package auth

import (
	"context"
	"strings"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserHeader carries the acting user's id on API requests.
const UserHeader = "X-User-ID"

// ContextWithUserID returns a new context that carries the acting user.
func ContextWithUserID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext retrieves the acting user from the context, if any.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// UserRef returns the acting user as an optional reference for attribution.
func UserRef(ctx context.Context) *uuid.UUID {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return nil
	}
	return &id
}

// ParseUserID validates a raw header value. An empty value means anonymous.
func ParseUserID(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return nil, domain.InvalidInputf("%s must be a UUID", UserHeader)
	}
	return &id, nil
}
