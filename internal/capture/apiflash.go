package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultAPIFlashEndpoint is the public urltoimage endpoint.
	// https://apiflash.com/documentation
	DefaultAPIFlashEndpoint = "https://api.apiflash.com/v1/urltoimage"

	// DefaultRenderDelay is the wait imposed before capture so that slow,
	// script-heavy pages finish loading. We are not in a rush; correctness
	// over latency.
	DefaultRenderDelay = 10 * time.Second
)

// APIFlash acquires screenshots through the APIFlash rendering API.
type APIFlash struct {
	Key      string
	Endpoint string

	// Delay is the server-side rendering delay requested from the API.
	// Values below DefaultRenderDelay are raised to it.
	Delay time.Duration

	// Client is the HTTP client used for the fetch. If nil, a client with
	// a transport timeout covering the render delay is used.
	Client *http.Client
}

// AcquireImage submits the URL to the rendering API and returns the
// resulting JPEG bytes. The response is decode-verified before being
// returned: corrupt or non-image bodies are a failure, not forwarded.
func (a *APIFlash) AcquireImage(ctx context.Context, pageURL string) ([]byte, error) {
	if a.Key == "" {
		return nil, errors.New("capture: apiflash access key is missing")
	}
	endpoint := a.Endpoint
	if endpoint == "" {
		endpoint = DefaultAPIFlashEndpoint
	}
	delay := a.Delay
	if delay < DefaultRenderDelay {
		delay = DefaultRenderDelay
	}
	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: delay + 30*time.Second}
	}

	q := url.Values{}
	q.Set("access_key", a.Key)
	q.Set("url", pageURL)
	q.Set("delay", strconv.Itoa(int(delay/time.Second)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("capture: build request: %w", err)
	}

	log.Debug().Str("url", redactURL(pageURL)).Dur("delay", delay).Msg("apiflash capture start")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture: apiflash request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capture: apiflash returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("capture: read apiflash body: %w", err)
	}

	// Sanity check: the body must be a decodable JPEG.
	if _, err := jpeg.Decode(bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("capture: apiflash body is not a valid JPEG: %w", err)
	}

	log.Debug().Int("bytes", len(body)).Str("url", redactURL(pageURL)).Msg("apiflash capture done")
	return body, nil
}
