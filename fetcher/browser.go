// Package fetcher drives a real browser through the two CUHK pages a human
// has to unlock (captcha, single sign-on) and hands the resulting HTML to the
// scraper package.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("cuhk-timetable/fetcher")

type BrowserOptions struct {
	Headless bool
	Timeout  time.Duration
}

// Session is one browser with one page, driven by a human and the fetchers
// in turn.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	timeout time.Duration
}

func Open(opts BrowserOptions) (*Session, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright (run `go run github.com/playwright-community/playwright-go/cmd/playwright install chromium` once): %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	page, err := browser.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("could not create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	return &Session{pw: pw, browser: browser, page: page, timeout: opts.Timeout}, nil
}

func (s *Session) Close() error {
	return errors.Join(s.browser.Close(), s.pw.Stop())
}

func (s *Session) goTo(url string) error {
	slog.Debug("navigating", "url", url)
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("could not navigate to %s: %w", url, err)
	}
	return nil
}

// pause waits for d unless ctx ends first. PeopleSoft re-renders its frame
// after every postback and offers nothing better to wait on.
func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
