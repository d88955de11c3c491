package auth

import (
	"context"
	"time"
)

const (
	RoleAdmin      = "ADMIN"
	RoleStrategist = "STRATEGIST"
	RoleNominee    = "NOMINEE"
)

// Identity is the authenticated caller, resolved once per request and
// passed explicitly to services.
type Identity struct {
	ID   string
	Role string
	Name string

	// TokenID and ExpiresAt describe the bearer token that produced this
	// identity; logout uses them.
	TokenID   string
	ExpiresAt time.Time
}

func (i Identity) Is(role string) bool { return i.Role == role }

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
