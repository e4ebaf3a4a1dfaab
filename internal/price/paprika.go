package price

import (
	"context"
	"net/http"
	"time"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
)

const PaprikaPrefix = "paprika"

// PaprikaFetcher reads USD quotes for coins from CoinPaprika. The API has no
// previous close, so it is derived from the 24h percent change.
type PaprikaFetcher struct {
	client *coinpaprika.Client
}

func NewPaprikaFetcher(apiProKey string, timeout time.Duration) *PaprikaFetcher {
	httpClient := &http.Client{Timeout: timeout}
	if apiProKey != "" {
		return &PaprikaFetcher{client: coinpaprika.NewClient(httpClient, coinpaprika.WithAPIKey(apiProKey))}
	}
	return &PaprikaFetcher{client: coinpaprika.NewClient(httpClient)}
}

func (p *PaprikaFetcher) Fetch(ctx context.Context, coinID string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, fetchError(coinID, err)
	}

	ticker, err := p.client.Tickers.GetByID(coinID, &coinpaprika.TickersOptions{Quotes: "USD"})
	if err != nil {
		return Quote{}, fetchError(coinID, errors.Wrap(err, "coinpaprika ticker"))
	}
	if ticker == nil || ticker.Quotes == nil {
		return Quote{}, fetchError(coinID, errors.New("coin is not actively traded"))
	}

	usd, ok := ticker.Quotes["USD"]
	if !ok {
		return Quote{}, fetchError(coinID, errors.New("no USD quote"))
	}
	return paprikaQuote(coinID, usd.Price, usd.PercentChange24h)
}

// paprikaQuote converts a price and its 24h change into a Quote
func paprikaQuote(coinID string, price, percentChange24h *float64) (Quote, error) {
	if price == nil || percentChange24h == nil {
		return Quote{}, fetchError(coinID, errors.New("missing price or 24h change"))
	}
	if *percentChange24h <= -100 {
		return Quote{}, fetchError(coinID, errors.Errorf("invalid 24h change %v", *percentChange24h))
	}

	q := Quote{
		Symbol:        coinID,
		Currency:      "USD",
		Price:         *price,
		PreviousClose: *price / (1 + *percentChange24h/100),
	}
	if err := validate(q); err != nil {
		return Quote{}, fetchError(coinID, err)
	}
	return q, nil
}
