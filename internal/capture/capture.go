// Package capture obtains a rendered image of a web page. Two strategies
// are provided behind one interface: a URL-to-image rendering API
// (APIFlash) and a headless Chromium session driven via chromedp.
package capture

import "context"

// Acquirer produces raw image bytes for a page, or fails. Failures are
// never retried here; a failed acquisition fails the whole request.
type Acquirer interface {
	AcquireImage(ctx context.Context, pageURL string) ([]byte, error)
}

// redactURL hides path and query of a URL for logging, since page URLs
// may embed tokens.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
