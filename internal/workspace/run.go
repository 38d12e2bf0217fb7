// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Run calls fn for every project with at most concurrency calls in flight
// and returns the results in project order. The first error cancels the
// context passed to the remaining calls and is returned. A concurrency below
// one means no limit.
func Run[T any](ctx context.Context, projects []Project, concurrency int, fn func(context.Context, Project) (T, error)) ([]T, error) {
	results := make([]T, len(projects))

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, p := range projects {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := fn(ctx, p)
			if err != nil {
				return fmt.Errorf("project %s: %w", p.ID, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
