package collaborator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gramdhan/ledger/internal/domain"
)

// HTTPQuoteFeed fetches fund NAVs from the price service. Any failure
// is reported as domain.ErrQuoteFailed; purchases never proceed on a
// stale or guessed price.
type HTTPQuoteFeed struct {
	baseURL string
	client  *http.Client
}

// NewHTTPQuoteFeed creates a new HTTPQuoteFeed.
func NewHTTPQuoteFeed(baseURL string, timeout time.Duration) *HTTPQuoteFeed {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPQuoteFeed{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type quoteResponse struct {
	Symbol string `json:"symbol"`
	NAV    string `json:"nav"`
}

// Quote returns the current NAV for a fund symbol.
func (f *HTTPQuoteFeed) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/quotes/%s", f.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrQuoteFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrQuoteFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: quote service returned %d", domain.ErrQuoteFailed, resp.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrQuoteFailed, err)
	}

	nav, err := decimal.NewFromString(body.NAV)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed nav %q", domain.ErrQuoteFailed, body.NAV)
	}

	return nav, nil
}
