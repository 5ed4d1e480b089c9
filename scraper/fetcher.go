// Package scraper fetches browse pages from the auction site and extracts
// listing items from their markup.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/dmtroyer/auctioneye/config"
)

// PageFetcher retrieves the raw markup of one browse page by 0-based page
// index. Implementations need not be safe for concurrent use; the walker
// fetches one page at a time.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (string, error)
}

// SiteFetcher fetches browse pages over HTTP through a colly collector.
type SiteFetcher struct {
	collector *colly.Collector
	browseURL *url.URL
	metrics   *Metrics

	// per-visit capture, reset on every FetchPage call
	body       []byte
	statusCode int
	fetchErr   error
}

// NewSiteFetcher builds a fetcher for the configured site.
func NewSiteFetcher(cfg *config.Config, metrics *Metrics) (*SiteFetcher, error) {
	browse, err := cfg.BrowseURL()
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(browse)
	if err != nil {
		return nil, fmt.Errorf("parse browse url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("browse url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &SiteFetcher{
		collector: collector,
		browseURL: parsed,
		metrics:   metrics,
	}
	f.registerHandlers()
	return f, nil
}

func (f *SiteFetcher) registerHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		f.metrics.IncRequest("started")
		slog.Debug("fetching page", slog.String("url", r.URL.String()))
	})

	f.collector.OnResponse(func(r *colly.Response) {
		f.statusCode = r.StatusCode
		f.body = r.Body
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		f.statusCode = statusCode
		f.fetchErr = classifyError(err, statusCode)
	})
}

// FetchPage requests the browse page with the given 0-based index and
// returns its raw markup. Any non-2xx status fails the fetch; the caller
// treats that as fatal for the run.
func (f *SiteFetcher) FetchPage(ctx context.Context, page int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.body = nil
	f.statusCode = 0
	f.fetchErr = nil

	if err := f.collector.Visit(f.pageURL(page)); err != nil {
		if f.fetchErr != nil {
			err = f.fetchErr
		} else {
			err = classifyError(err, f.statusCode)
		}
		f.metrics.IncError(errorTypeLabel(err))
		return "", fmt.Errorf("fetch page %d: %w", page, err)
	}
	if f.fetchErr != nil {
		f.metrics.IncError(errorTypeLabel(f.fetchErr))
		return "", fmt.Errorf("fetch page %d: %w", page, f.fetchErr)
	}

	f.metrics.IncPages()
	return string(f.body), nil
}

func (f *SiteFetcher) pageURL(page int) string {
	u := *f.browseURL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 && (statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices) {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		return ErrBadStatus{Code: statusCode, Err: wrapped}
	}

	return err
}
