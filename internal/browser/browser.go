package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"nimas-seat-alert/internal/models"
	"nimas-seat-alert/internal/scraper"
)

// rowSelector matches the body rows of the course table
const rowSelector = "table tbody tr"

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the rendered-page lookup
type Options struct {
	PageURL   string
	Timeout   time.Duration
	UserAgent string
}

// Renderer looks up availability by rendering the course page in headless
// Chromium. Every lookup runs in its own browser instance.
type Renderer struct {
	opts Options
}

// NewRenderer creates a new Renderer
func NewRenderer(opts Options) *Renderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Renderer{opts: opts}
}

// Lookup renders the page and reads the availability of the row whose first
// cell matches identifier.
func (r *Renderer) Lookup(ctx context.Context, identifier string) (int, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return snap.Availability(identifier)
}

// Snapshot loads the page, waits for the first table row and returns the
// table as rendered. The browser is closed before Snapshot returns.
func (r *Renderer) Snapshot(ctx context.Context) (scraper.TableSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return scraper.TableSnapshot{}, err
	}
	timeout := r.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	s, err := r.start()
	if err != nil {
		return scraper.TableSnapshot{}, err
	}
	defer s.Close()

	ms := playwright.Float(float64(timeout.Milliseconds()))

	_, err = s.page.Goto(r.opts.PageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms,
	})
	if err != nil {
		return scraper.TableSnapshot{}, waitError("load "+r.opts.PageURL, timeout, err)
	}

	err = s.page.Locator(rowSelector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: ms,
	})
	if err != nil {
		return scraper.TableSnapshot{}, waitError("wait for "+rowSelector, timeout, err)
	}

	content, err := s.page.Content()
	if err != nil {
		return scraper.TableSnapshot{}, fmt.Errorf("failed to get page content: %w", err)
	}
	return scraper.ParseTable(strings.NewReader(content))
}

func waitError(op string, timeout time.Duration, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return &models.TimeoutError{Op: op, Timeout: timeout, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// session holds everything one lookup acquires from playwright
type session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

func (r *Renderer) start() (*session, error) {
	s := &session{}
	var err error

	s.pw, err = playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	s.browser, err = s.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s.context, err = s.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(r.opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	s.page, err = s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return s, nil
}

// Close releases the page, context, browser and driver, in that order
func (s *session) Close() {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.context != nil {
		_ = s.context.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		_ = s.pw.Stop()
	}
}

// Probe reports whether the playwright driver can be started on this host.
// Its result decides if the rendered-page lookup is offered at all.
func Probe() error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("playwright driver not available: %w", err)
	}
	return pw.Stop()
}
