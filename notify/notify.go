// Package notify formats the run summary and dispatches it as an email.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dmtroyer/auctioneye/models"
)

// Sender dispatches one composed message. Implementations own the transport
// details; the Notifier owns what is sent and when.
type Sender interface {
	Send(ctx context.Context, subject, textBody, htmlBody string) error
}

// Notifier builds the run summary and hands it to a Sender.
type Notifier struct {
	sender Sender
}

// NewNotifier builds a notifier that dispatches through sender.
func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// Notify emails a summary of the run: the new items when there are any, the
// "no new items" variant otherwise. Dispatch failures propagate to the
// caller; a silently lost notification would defeat the watcher's purpose.
func (n *Notifier) Notify(ctx context.Context, newItems []models.Item, totalCount int) error {
	var (
		subject  string
		textBody string
		htmlBody string
		err      error
	)

	if len(newItems) == 0 {
		subject = "No new auction items"
		textBody = "No new auction items.\n\nThe watcher ran successfully."
		htmlBody, err = renderNoItems(time.Now().UTC())
	} else {
		items := sortByTitle(newItems)
		subject = fmt.Sprintf("%d new auction item(s) found", len(items))
		textBody = formatItemsText(items)
		htmlBody, err = renderItems(items, totalCount)
	}
	if err != nil {
		return fmt.Errorf("render notification body: %w", err)
	}

	if err := n.sender.Send(ctx, subject, textBody, htmlBody); err != nil {
		return fmt.Errorf("dispatch notification: %w", err)
	}

	slog.Info("notification sent",
		slog.String("subject", subject),
		slog.Int("new_items", len(newItems)),
		slog.Int("total_items", totalCount),
	)
	return nil
}

// sortByTitle returns a copy of items ordered by title, case-insensitive
// ascending. The caller's slice is left untouched.
func sortByTitle(items []models.Item) []models.Item {
	sorted := make([]models.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Title) < strings.ToLower(sorted[j].Title)
	})
	return sorted
}

func formatItemsText(items []models.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New auction items (%d):\n\n", len(items))
	for _, item := range items {
		price := item.Price
		if price == "" {
			price = "N/A"
		}
		fmt.Fprintf(&b, "- %s (%s)\n", item.Title, price)
		fmt.Fprintf(&b, "  %s\n", item.URL)
		if item.Image != "" {
			fmt.Fprintf(&b, "  Image: %s\n", item.Image)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
