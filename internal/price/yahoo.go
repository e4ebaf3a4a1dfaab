package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const userAgent = "Mozilla/5.0"

type chartMeta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	PreviousClose      *float64 `json:"previousClose"`
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooFetcher reads quotes from the Yahoo Finance chart endpoint
type YahooFetcher struct {
	// Endpoint is a URL template with a single %s for the escaped symbol
	Endpoint string
	Client   *http.Client
}

func NewYahooFetcher(endpoint string, timeout time.Duration) *YahooFetcher {
	return &YahooFetcher{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (y *YahooFetcher) Fetch(ctx context.Context, symbol string) (Quote, error) {
	apiURL := fmt.Sprintf(y.Endpoint, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return Quote{}, fetchError(symbol, errors.Wrap(err, "could not build request"))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := y.Client.Do(req)
	if err != nil {
		return Quote{}, fetchError(symbol, errors.Wrap(err, "request failed"))
	}
	defer resp.Body.Close()

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Quote{}, fetchError(symbol, errors.Errorf("unexpected status %d", resp.StatusCode))
		}
		return Quote{}, fetchError(symbol, errors.Wrap(err, "could not decode response"))
	}

	if payload.Chart.Error != nil {
		return Quote{}, fetchError(symbol, errors.Errorf("%s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description))
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fetchError(symbol, errors.Errorf("unexpected status %d", resp.StatusCode))
	}
	if len(payload.Chart.Result) == 0 {
		return Quote{}, fetchError(symbol, errors.New("empty chart result"))
	}

	meta := payload.Chart.Result[0].Meta
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("quote metadata for %s:\n%s", symbol, spew.Sdump(meta))
	}

	previousClose := meta.PreviousClose
	if previousClose == nil {
		previousClose = meta.ChartPreviousClose
	}
	if meta.RegularMarketPrice == nil || previousClose == nil {
		return Quote{}, fetchError(symbol, errors.New("missing price fields in chart metadata"))
	}

	q := Quote{
		Symbol:        symbol,
		Currency:      meta.Currency,
		Price:         *meta.RegularMarketPrice,
		PreviousClose: *previousClose,
	}
	if err := validate(q); err != nil {
		return Quote{}, fetchError(symbol, err)
	}
	return q, nil
}
