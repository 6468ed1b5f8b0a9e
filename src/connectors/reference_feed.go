package connectors

import (
	"net/http"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// ReferenceFeed fetches a CEX reference price used by the position monitor to
// sanity-bound venue quotes: when the venue price deviates too far from the
// reference, the cycle skips the position instead of acting on it.
type ReferenceFeed struct {
	exchange goex.API
}

func NewReferenceFeed() *ReferenceFeed {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return &ReferenceFeed{exchange: binance.NewWithConfig(apiConfig)}
}

// ReferencePrice returns the last traded price of symbol against USDT.
// A zero result means no reference is available; callers fall back to
// trusting the venue price.
func (r *ReferenceFeed) ReferencePrice(symbol string) decimal.Decimal {
	pair := goex.NewCurrencyPair(goex.Currency{Symbol: symbol}, goex.Currency{Symbol: "USDT"})

	ticker, err := r.exchange.GetTicker(pair)
	if err != nil {
		logger.WithError(err).WithField("symbol", symbol).Debug("[reference] ticker fetch failed")
		return decimal.Zero
	}

	return decimal.NewFromFloat(ticker.Last)
}
