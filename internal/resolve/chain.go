// Package resolve turns a normalized post link into something a chat
// transport can deliver.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"thirdcoast.systems/reelgrab/internal/dispatch"
)

// Named is a resolver with a label for logs.
type Named struct {
	Name     string
	Resolver dispatch.Resolver
}

// Chain tries each resolver in order and returns the first success.
type Chain struct {
	links []Named
}

func NewChain(links ...Named) *Chain {
	out := make([]Named, 0, len(links))
	for _, l := range links {
		if l.Resolver != nil {
			out = append(out, l)
		}
	}
	return &Chain{links: out}
}

// Resolve returns the first success. When every resolver fails the errors
// are joined, so the result matches dispatch.ErrNotResolvable if any
// resolver judged the post itself unavailable.
func (c *Chain) Resolve(ctx context.Context, locator string) (dispatch.Resolution, error) {
	if len(c.links) == 0 {
		return dispatch.Resolution{}, fmt.Errorf("resolve: no resolvers configured")
	}

	var errs []error
	for _, l := range c.links {
		res, err := l.Resolver.Resolve(ctx, locator)
		if err == nil {
			slog.Debug("resolved", "resolver", l.Name, "locator", locator)
			return res, nil
		}
		if ctx.Err() != nil {
			return dispatch.Resolution{}, ctx.Err()
		}
		slog.Warn("resolver failed", "resolver", l.Name, "locator", locator, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", l.Name, err))
	}
	return dispatch.Resolution{}, errors.Join(errs...)
}
