// Package watcher orchestrates a single watch cycle: fetch the current
// listings, diff them against the seen-id store, record what is new and send
// the summary notification.
package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmtroyer/auctioneye/models"
	"github.com/dmtroyer/auctioneye/store"
)

// ItemSource produces the current listings across all pages.
type ItemSource interface {
	FetchAll(ctx context.Context) ([]models.Item, error)
}

// Notifier delivers the run summary.
type Notifier interface {
	Notify(ctx context.Context, newItems []models.Item, totalCount int) error
}

// ItemSink receives newly discovered items, typically a file export.
type ItemSink interface {
	Write(items []models.Item) error
}

// Watcher wires the seen-id store, the listing source and the notifier into
// one run.
type Watcher struct {
	store    store.SeenStore
	source   ItemSource
	notifier Notifier
	sink     ItemSink
}

// New builds a Watcher. A nil sink disables file export.
func New(st store.SeenStore, source ItemSource, notifier Notifier, sink ItemSink) *Watcher {
	return &Watcher{
		store:    st,
		source:   source,
		notifier: notifier,
		sink:     sink,
	}
}

// Run performs one watch cycle and reports how many items were new and how
// many were listed in total. Any failure aborts the cycle with a zero result.
//
// New ids are recorded before the notification is dispatched. If the send
// then fails, those items are never reported again; a run may notify at most
// once per item, never twice.
func (w *Watcher) Run(ctx context.Context) (models.WatchResult, error) {
	if err := w.store.Init(ctx); err != nil {
		return models.WatchResult{}, fmt.Errorf("init store: %w", err)
	}

	seen, err := w.store.SeenIDs(ctx)
	if err != nil {
		return models.WatchResult{}, fmt.Errorf("load seen ids: %w", err)
	}

	items, err := w.source.FetchAll(ctx)
	if err != nil {
		return models.WatchResult{}, fmt.Errorf("fetch listings: %w", err)
	}

	fresh := NewItems(items, seen)
	slog.Info("listings diffed",
		slog.Int("total_items", len(items)),
		slog.Int("seen_ids", len(seen)),
		slog.Int("new_items", len(fresh)),
	)

	if len(fresh) > 0 {
		ids := make([]string, len(fresh))
		for i, item := range fresh {
			ids[i] = item.ID
		}
		inserted, err := w.store.AddSeenIDs(ctx, ids)
		if err != nil {
			return models.WatchResult{}, fmt.Errorf("record seen ids: %w", err)
		}
		if inserted < len(ids) {
			slog.Warn("some new ids were already recorded",
				slog.Int("new_items", len(ids)),
				slog.Int("inserted", inserted),
			)
		}

		if w.sink != nil {
			if err := w.sink.Write(fresh); err != nil {
				return models.WatchResult{}, fmt.Errorf("export new items: %w", err)
			}
		}
	}

	if err := w.notifier.Notify(ctx, fresh, len(items)); err != nil {
		return models.WatchResult{}, err
	}

	return models.WatchResult{NewItems: len(fresh), TotalItems: len(items)}, nil
}
