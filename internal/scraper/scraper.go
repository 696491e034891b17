// Package scraper loads pages in headless Chrome and extracts the rendered
// structure used by the layout summarizer.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

// Config controls the behavior of the headless scraper.
type Config struct {
	NavigationTimeout time.Duration
	SettleWait        time.Duration
	ViewportWidth     int
	ViewportHeight    int
	MaxNodes          int
	UserAgent         string
	// DomainQPS caps scrape starts per source domain. Zero disables the cap.
	DomainQPS   float64
	MaxParallel int
}

// Scraper implements clone.Scraper using chromedp. Each scrape runs in a
// fresh browser context, so jobs never share cookies or cache.
type Scraper struct {
	cfg            Config
	logger         *zap.Logger
	allocator      context.Context
	allocCancel    context.CancelFunc
	sem            chan struct{}
	domainLimiters sync.Map
}

// New creates a chromedp-backed scraper.
func New(cfg Config, logger *zap.Logger) (*Scraper, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.SettleWait <= 0 {
		cfg.SettleWait = 500 * time.Millisecond
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 800
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = 1500
	}
	var sem chan struct{}
	if cfg.MaxParallel > 0 {
		sem = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Scraper{
		cfg:         cfg,
		logger:      logger,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		sem:         sem,
	}, nil
}

// Close cancels the allocator context, killing any remaining browsers.
func (s *Scraper) Close() {
	s.allocCancel()
}

// Scrape navigates to the URL, waits for the page to settle, and extracts
// the rendered DOM plus per-node geometry and style.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (clone.ScrapeResult, error) {
	release, err := s.acquireSlot(ctx)
	if err != nil {
		return clone.ScrapeResult{}, err
	}
	defer release()

	if err := s.waitDomainBudget(ctx, rawURL); err != nil {
		return clone.ScrapeResult{}, fmt.Errorf("scrape rate limit: %w", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(s.allocator)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, s.cfg.NavigationTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	start := time.Now()
	var (
		dom      string
		finalURL string
		raw      extraction
	)
	actions := []chromedp.Action{
		s.sessionSetupAction(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.SettleWait),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &dom, chromedp.ByQuery),
		chromedp.Evaluate(extractScript(s.cfg.MaxNodes), &raw),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return clone.ScrapeResult{}, fmt.Errorf("chromedp run: %w", err)
	}

	status, responseURL := meta.snapshotWithFallbacks(rawURL, finalURL)
	if err := errorStatus(status); err != nil {
		return clone.ScrapeResult{}, err
	}
	result := raw.toResult(s.cfg.MaxNodes)
	result.URL = rawURL
	result.FinalURL = responseURL
	result.StatusCode = status
	result.DOM = dom
	result.Viewport = clone.Viewport{Width: s.cfg.ViewportWidth, Height: s.cfg.ViewportHeight}
	result.FetchedAt = start.UTC()
	result.Duration = time.Since(start)

	if s.logger != nil {
		s.logger.Debug("scrape finished",
			zap.String("url", rawURL),
			zap.Int("status", status),
			zap.Int("nodes", len(result.Nodes)),
			zap.Duration("duration", result.Duration),
		)
	}
	return result, nil
}

func (s *Scraper) sessionSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetDeviceMetricsOverride(
			int64(s.cfg.ViewportWidth), int64(s.cfg.ViewportHeight), 1, false,
		).Do(ctx); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (s *Scraper) acquireSlot(ctx context.Context) (func(), error) {
	if s.sem == nil {
		return func() {}, nil
	}
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire scrape slot: %w", ctx.Err())
	}
}

func (s *Scraper) waitDomainBudget(ctx context.Context, rawURL string) error {
	if s.cfg.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse scrape url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := s.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(s.cfg.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// errorStatus rejects documents that loaded with an HTTP error status.
func errorStatus(status int) error {
	if status >= http.StatusBadRequest {
		return fmt.Errorf("page returned status %d", status)
	}
	return nil
}

// responseMeta records the first document response seen on the target. The
// CDP listener fires on its own goroutine, so reads go through the mutex.
type responseMeta struct {
	mu         sync.Mutex
	captured   bool
	statusCode int
	url        string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.captured {
		return
	}
	m.captured = true
	m.statusCode = int(resp.Response.Status)
	m.url = resp.Response.URL
}

func (m *responseMeta) snapshotWithFallbacks(requestURL, finalURL string) (int, string) {
	m.mu.Lock()
	status := m.statusCode
	url := m.url
	m.mu.Unlock()

	switch {
	case url != "":
	case finalURL != "":
		url = finalURL
	default:
		url = requestURL
	}
	if status == 0 {
		status = 200
	}
	return status, url
}
