package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/amryu/dibot/internal/roster"
)

// DefaultTimeout bounds a full roster page fetch, navigation and
// client-side rendering included.
const DefaultTimeout = 60 * time.Second

// Cookie is a session cookie installed into the browser before
// navigation. The roster page requires an authenticated session.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Client fetches the roster page through a headless Chromium instance and
// parses it into raw member records. It implements roster.Source.
type Client struct {
	pageURL string
	cookies []Cookie
	timeout time.Duration
	log     *zap.Logger
}

// NewClient returns a roster source for the page at baseURL + "mdr/".
func NewClient(baseURL string, cookies []Cookie, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		pageURL: baseURL + "mdr/",
		cookies: cookies,
		timeout: timeout,
		log:     log,
	}
}

// FetchMembers renders the roster page and returns the parsed member
// records.
func (c *Client) FetchMembers(ctx context.Context) ([]roster.RawMember, error) {
	html, err := c.fetchHTML(ctx)
	if err != nil {
		return nil, err
	}
	members, err := ParseRoster(html)
	if err != nil {
		return nil, err
	}
	c.log.Debug("roster page parsed",
		zap.String("url", c.pageURL),
		zap.Int("members", len(members)))
	return members, nil
}

// fetchHTML navigates to the roster page with the session cookies set and
// returns the rendered document markup.
func (c *Client) fetchHTML(parentCtx context.Context) (string, error) {
	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, c.timeout)
	defer timeoutCancel()

	var html string
	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, ck := range c.cookies {
				err := network.SetCookie(ck.Name, ck.Value).
					WithDomain(ck.Domain).
					WithPath(ck.Path).
					Do(ctx)
				if err != nil {
					return fmt.Errorf("scrape: set cookie %s: %w", ck.Name, err)
				}
			}
			return nil
		}),
		chromedp.Navigate(c.pageURL),
		// The member tree is built by scripts after load; the house
		// containers appearing means the tree is in the DOM.
		chromedp.WaitReady("div.house-container", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", fmt.Errorf("scrape: chromedp run failed: %w", err)
	}
	return html, nil
}
