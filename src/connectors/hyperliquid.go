package connectors

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/model"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 5 * time.Second
)

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 || code == 408 {
		return true
	}
	return false
}

// HyperliquidConnector resolves mark prices from the Hyperliquid info API.
// Trade execution on this venue is not wired yet; the module only supports
// spot swaps.
type HyperliquidConnector struct {
	http *resty.Client
	mids *MidsStream
}

func NewHyperliquidConnector(mids *MidsStream) *HyperliquidConnector {
	config := GetConfig()

	httpClient := resty.New().
		SetBaseURL(config.HyperliquidBaseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &HyperliquidConnector{http: httpClient, mids: mids}
}

func (h *HyperliquidConnector) Venue() model.Venue { return model.VenueHyperliquid }

func (h *HyperliquidConnector) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*QuoteResult, error) {
	return nil, ErrVenueNotSupported
}

func (h *HyperliquidConnector) BuildSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*SwapPlan, error) {
	return nil, ErrVenueNotSupported
}

func (h *HyperliquidConnector) BuildCloseSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*SwapPlan, error) {
	return nil, ErrVenueNotSupported
}

func (h *HyperliquidConnector) ExecutionSummary(ctx context.Context, signal *model.Signal, deployment *model.Deployment) (*ExecutionSummary, error) {
	return &ExecutionSummary{CanExecute: false, Reason: "VenueUnavailable"}, nil
}

// GetPrice prefers the websocket mid cache and falls back to the info API.
func (h *HyperliquidConnector) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if h.mids != nil {
		if price, ok := h.mids.Mid(symbol); ok {
			return price, nil
		}
	}

	var mids map[string]string
	resp, err := h.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"type": "allMids"}).
		SetResult(&mids).
		Post("/info")
	if err != nil {
		logger.WithError(err).WithField("symbol", symbol).Warn("[hyperliquid] allMids request failed")
		return decimal.Zero, ErrPriceUnavailable
	}
	if resp.StatusCode() != 200 {
		logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"status": resp.StatusCode(),
		}).Warn("[hyperliquid] allMids non-200")
		return decimal.Zero, ErrPriceUnavailable
	}

	raw, ok := mids[symbol]
	if !ok {
		return decimal.Zero, ErrPriceUnavailable
	}

	price, err := decimal.NewFromString(raw)
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrPriceUnavailable
	}
	return price, nil
}

// MidsStream keeps a live mid-price cache fed by the Hyperliquid websocket.
type MidsStream struct {
	url string

	mu   sync.RWMutex
	mids map[string]decimal.Decimal
}

func NewMidsStream() *MidsStream {
	config := GetConfig()
	return &MidsStream{
		url:  config.HyperliquidWSURL,
		mids: make(map[string]decimal.Decimal),
	}
}

// Mid returns the cached mid price for a coin, if any.
func (m *MidsStream) Mid(symbol string) (decimal.Decimal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	price, ok := m.mids[symbol]
	return price, ok
}

type midsMessage struct {
	Channel string `json:"channel"`
	Data    struct {
		Mids map[string]string `json:"mids"`
	} `json:"data"`
}

// Run subscribes to allMids and keeps the cache current, reconnecting with a
// fixed delay until the context is cancelled.
func (m *MidsStream) Run(ctx context.Context) {
	for {
		if err := m.streamOnce(ctx); err != nil {
			logger.WithError(err).Warn("[hyperliquid] mids stream disconnected")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (m *MidsStream) streamOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	subscribe := map[string]interface{}{
		"method":       "subscribe",
		"subscription": map[string]string{"type": "allMids"},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return err
	}

	// Unblock ReadMessage when the context is cancelled. The done channel
	// releases the watcher when this connection ends, so reconnects do not
	// accumulate goroutines.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var msg midsMessage
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Channel != "allMids" {
			continue
		}

		m.mu.Lock()
		for coin, raw := range msg.Data.Mids {
			if price, err := decimal.NewFromString(raw); err == nil {
				m.mids[coin] = price
			}
		}
		m.mu.Unlock()
	}
}
