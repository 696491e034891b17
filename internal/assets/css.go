// Package assets downloads linked page assets referenced by a scrape,
// currently external stylesheets, so the synthesizer can see real styling.
package assets

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls the stylesheet collector.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxSheets bounds how many stylesheet URLs are fetched per page.
	MaxSheets int
	// MaxBytes bounds the combined CSS kept per page.
	MaxBytes int
}

// CSSFetcher retrieves external stylesheets with a colly collector. Errors
// on individual sheets are logged and skipped; a page with no reachable
// CSS still synthesizes.
type CSSFetcher struct {
	cfg           Config
	logger        *zap.Logger
	baseCollector *colly.Collector
}

// NewCSSFetcher builds a fetcher with pooled transport.
func NewCSSFetcher(cfg Config, logger *zap.Logger) *CSSFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxSheets <= 0 {
		cfg.MaxSheets = 8
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 256 * 1024
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())

	return &CSSFetcher{
		cfg:           cfg,
		logger:        logger,
		baseCollector: c,
	}
}

// FetchAll downloads up to MaxSheets stylesheets and returns their
// concatenated text, truncated to MaxBytes.
func (f *CSSFetcher) FetchAll(ctx context.Context, urls []string) string {
	var buf strings.Builder
	count := 0
	for _, rawURL := range urls {
		if count >= f.cfg.MaxSheets || buf.Len() >= f.cfg.MaxBytes {
			break
		}
		if ctx.Err() != nil {
			break
		}
		body, err := f.fetchOne(ctx, rawURL)
		if err != nil {
			if f.logger != nil {
				f.logger.Debug("stylesheet fetch skipped",
					zap.String("url", rawURL), zap.Error(err))
			}
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(fmt.Sprintf("/* %s */\n", rawURL))
		buf.Write(body)
		count++
	}
	return truncate(buf.String(), f.cfg.MaxBytes)
}

func (f *CSSFetcher) fetchOne(ctx context.Context, rawURL string) ([]byte, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		mu       sync.Mutex
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		mu.Lock()
		defer mu.Unlock()
		if r.StatusCode != http.StatusOK {
			fetchErr = fmt.Errorf("stylesheet status %d", r.StatusCode)
			return
		}
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		mu.Lock()
		fetchErr = err
		mu.Unlock()
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("stylesheet fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("stylesheet visit failed: %w", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if fetchErr != nil {
		return nil, fetchErr
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty stylesheet body")
	}
	return body, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
