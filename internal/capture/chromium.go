package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultCaptureTimeout bounds the entire navigate-and-screenshot
	// sequence.
	DefaultCaptureTimeout = 60 * time.Second

	// DefaultSettleDelay is the extra wait after the body becomes visible,
	// so asynchronous page content finishes loading before the shot.
	DefaultSettleDelay = 3 * time.Second

	// screenshotQuality below 100 makes chromedp emit JPEG instead of PNG,
	// keeping the pipeline's image/jpeg contract.
	screenshotQuality = 90
)

// Chromium acquires screenshots by driving a headless Chromium session
// via chromedp.
type Chromium struct {
	// RemoteURL is the DevTools websocket endpoint of a remote browser
	// (e.g. "ws://chromium:9222"). If empty, a local headless instance is
	// launched.
	RemoteURL string

	// Timeout bounds the whole capture. If zero, DefaultCaptureTimeout.
	Timeout time.Duration

	// Settle is the fixed delay after the page body is visible. If zero,
	// DefaultSettleDelay.
	Settle time.Duration
}

// AcquireImage navigates to the URL, waits until the document body is
// visible, applies the settle delay, and captures a full-page screenshot.
// The browser session is torn down on every exit path, including error
// and cancellation, via the deferred context cancels.
func (c *Chromium) AcquireImage(ctx context.Context, pageURL string) ([]byte, error) {
	if pageURL == "" {
		return nil, errors.New("capture: URL is required")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCaptureTimeout
	}
	settle := c.Settle
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	parent := ctx
	if c.RemoteURL != "" {
		allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, c.RemoteURL)
		defer allocCancel()
		parent = allocCtx
	}

	browserCtx, cancel := chromedp.NewContext(parent)
	defer cancel()

	runCtx, timeoutCancel := context.WithTimeout(browserCtx, timeout)
	defer timeoutCancel()

	log.Debug().Str("url", redactURL(pageURL)).Dur("settle", settle).Msg("chromium capture start")

	var shot []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		// Let asynchronous content finish loading before the shot.
		chromedp.Sleep(settle),
		chromedp.FullScreenshot(&shot, screenshotQuality),
	}

	if err := chromedp.Run(runCtx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	if len(shot) == 0 {
		return nil, errors.New("capture: empty screenshot")
	}

	log.Debug().Int("bytes", len(shot)).Str("url", redactURL(pageURL)).Msg("chromium capture done")
	return shot, nil
}
