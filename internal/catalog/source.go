package catalog

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"storeviewer/internal/viewer/media"
)

// Source is the read side: reviews and products as seen by one user.
type Source interface {
	ListReviews(ctx context.Context, userID string) ([]media.Review, error)
	ListProducts(ctx context.Context, userID string) ([]media.Product, error)
}

// Feed holds both source lists for one viewer session.
type Feed struct {
	Reviews  []media.Review
	Products []media.Product
}

// LoadFeed fetches both lists concurrently. Either failure fails the load.
func LoadFeed(ctx context.Context, src Source, userID string) (Feed, error) {
	var feed Feed
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reviews, err := src.ListReviews(gctx, userID)
		if err != nil {
			return fmt.Errorf("load reviews: %w", err)
		}
		feed.Reviews = reviews
		return nil
	})
	g.Go(func() error {
		products, err := src.ListProducts(gctx, userID)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		feed.Products = products
		return nil
	})

	if err := g.Wait(); err != nil {
		return Feed{}, err
	}
	return feed, nil
}
