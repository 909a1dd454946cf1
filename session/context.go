package session

import (
	"context"

	"taskboard/models"
)

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by the route guard.
func FromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*models.Session)
	return s, ok && s.Valid()
}

// UserID is the id of the session user, or "" when ctx has no session.
func UserID(ctx context.Context) string {
	if s, ok := FromContext(ctx); ok {
		return s.User.ID
	}
	return ""
}
