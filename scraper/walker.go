package scraper

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dmtroyer/auctioneye/models"
)

// Walker drives the fetch/parse loop across browse pages.
type Walker struct {
	fetcher    PageFetcher
	parser     *Parser
	maxPages   int
	dedupeSize int
}

// NewWalker builds a walker that visits at most maxPages pages per run.
// dedupeSize bounds the cross-page dedup cache; it should comfortably
// exceed the number of listings one run can see.
func NewWalker(fetcher PageFetcher, parser *Parser, maxPages, dedupeSize int) (*Walker, error) {
	if maxPages <= 0 {
		return nil, fmt.Errorf("max pages must be positive")
	}
	if dedupeSize <= 0 {
		return nil, fmt.Errorf("dedupe cache size must be positive")
	}
	return &Walker{
		fetcher:    fetcher,
		parser:     parser,
		maxPages:   maxPages,
		dedupeSize: dedupeSize,
	}, nil
}

// FetchAll walks page indices 0..maxPages-1 in order, stopping early at the
// first page that yields no items, and returns the accumulated listings
// deduplicated by id across pages. Fetch and parse failures are fatal for
// the run. The dedup cache is created per call so one run never suppresses
// another's results.
func (w *Walker) FetchAll(ctx context.Context) ([]models.Item, error) {
	dedupe, err := lru.New[string, struct{}](w.dedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}

	var all []models.Item
	for page := 0; page < w.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := w.fetcher.FetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		items, err := w.parser.Parse(content)
		if err != nil {
			return nil, fmt.Errorf("parse page %d: %w", page, err)
		}
		if len(items) == 0 {
			slog.Debug("no items on page, stopping walk", slog.Int("page", page))
			break
		}

		kept := 0
		for _, item := range items {
			if ok, _ := dedupe.ContainsOrAdd(item.ID, struct{}{}); ok {
				continue
			}
			all = append(all, item)
			kept++
		}
		slog.Debug("walked page",
			slog.Int("page", page),
			slog.Int("items", len(items)),
			slog.Int("kept", kept),
		)
	}

	slog.Info("walk complete", slog.Int("total_items", len(all)))
	return all, nil
}
