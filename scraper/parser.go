package scraper

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dmtroyer/auctioneye/models"
)

// Parser extracts listing items from browse-page markup.
type Parser struct {
	baseURL *url.URL
	metrics *Metrics
}

// NewParser builds a parser that resolves listing links against baseURL.
func NewParser(baseURL string, metrics *Metrics) (*Parser, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}
	return &Parser{baseURL: parsed, metrics: metrics}, nil
}

// Parse extracts every listing item from one page of markup. A malformed
// fragment is logged and skipped without aborting the rest of the page.
// Duplicate listing ids within the page collapse to the first occurrence.
func (p *Parser) Parse(content string) ([]models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse page markup: %w", err)
	}

	var items []models.Item
	seen := make(map[string]struct{})

	doc.Find("section[data-listingid]").Each(func(_ int, sel *goquery.Selection) {
		item, err := p.extractItem(sel)
		if err != nil {
			p.metrics.IncFragmentSkipped("extract_error")
			slog.Error("skipping malformed listing fragment",
				slog.String("listing_id", sel.AttrOr("data-listingid", "")),
				slog.Any("error", err),
			)
			return
		}
		if item == nil {
			return
		}
		if _, dup := seen[item.ID]; dup {
			return
		}
		seen[item.ID] = struct{}{}
		items = append(items, *item)
		p.metrics.IncItems()
	})

	return items, nil
}

// extractItem pulls one listing out of its fragment. A nil item with a nil
// error means the fragment was skipped on purpose (no usable title).
func (p *Parser) extractItem(sel *goquery.Selection) (*models.Item, error) {
	id := strings.TrimSpace(sel.AttrOr("data-listingid", ""))
	if id == "" {
		return nil, fmt.Errorf("fragment has an empty listing id")
	}

	link := sel.Find("h2.title a[href]").First()
	if link.Length() == 0 {
		p.metrics.IncFragmentSkipped("no_title")
		slog.Debug("skipping listing without title link", slog.String("listing_id", id))
		return nil, nil
	}
	title := strings.TrimSpace(link.Text())
	if title == "" {
		p.metrics.IncFragmentSkipped("no_title")
		slog.Debug("skipping listing with empty title", slog.String("listing_id", id))
		return nil, nil
	}

	href, _ := link.Attr("href")
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, fmt.Errorf("resolve listing url %q: %w", href, err)
	}

	item := &models.Item{
		ID:    id,
		Title: title,
		URL:   p.baseURL.ResolveReference(ref).String(),
	}

	price := sel.Find("span.price span.NumberPart").First()
	if price.Length() == 0 {
		slog.Warn("listing has no price",
			slog.String("listing_id", id),
			slog.String("title", title),
		)
	} else {
		item.Price = strings.TrimSpace(price.Text())
	}

	if img := sel.Find("div.img-container img[src]").First(); img.Length() > 0 {
		item.Image = strings.TrimSpace(img.AttrOr("src", ""))
	}

	return item, nil
}
