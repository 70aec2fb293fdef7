// Package actor carries the tenant and acting user through a request context.
package actor

import (
	"context"
	"errors"
)

var ErrNoActor = errors.New("no tenant in context")

type Actor struct {
	CompanyID string
	UserID    string
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.CompanyID != ""
}

// Require returns the context actor or ErrNoActor.
func Require(ctx context.Context) (Actor, error) {
	a, ok := FromContext(ctx)
	if !ok {
		return Actor{}, ErrNoActor
	}
	return a, nil
}
