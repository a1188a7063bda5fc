package pipeline

import (
	"context"
	"fmt"

	"lexideck/internal/services"
)

// Router dispatches requests to a fetcher per kind.
type Router map[Kind]Fetcher

// Fetch implements Fetcher. Kinds without a registered fetcher fail as fatal.
func (r Router) Fetch(ctx context.Context, req Request) ([]byte, error) {
	fetcher, ok := r[req.Kind]
	if !ok || fetcher == nil {
		return nil, services.Wrap(services.ErrFatal, "pipeline", "route",
			fmt.Sprintf("no fetcher for kind %q", req.Kind), nil)
	}
	return fetcher.Fetch(ctx, req)
}
