package connectors

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"agentexecutor/src/model"
)

var (
	// ErrVenueNotSupported is returned by venue stubs for trade operations.
	ErrVenueNotSupported = errors.New("venue not supported")

	// ErrPriceUnavailable means no price could be resolved this cycle. The
	// monitor skips the position; it never treats a missing price as a
	// close trigger.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrNoRouteFound means no fee tier produced a quote for the pair.
	ErrNoRouteFound = errors.New("no route found")
)

// QuoteResult is the output of a swap quote: the estimated amount out and
// the fee tier that produced it.
type QuoteResult struct {
	AmountOut *big.Int
	PoolFee   *big.Int
}

// SwapPlan is a fully parameterized swap ready for the execution gateway.
type SwapPlan struct {
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     *big.Int
	MinAmountOut *big.Int
	PoolFee      *big.Int
	Deadline     int64
}

// ExecutionSummary is a read-only affordability check run before committing
// gas to a trade.
type ExecutionSummary struct {
	CanExecute  bool            `json:"can_execute"`
	Reason      string          `json:"reason,omitempty"`
	BaseBalance decimal.Decimal `json:"base_balance"`
}

// VenueConnector translates abstract trade intents into venue-specific swap
// parameters and prices. Spot is the only executable implementation; the
// perpetual venues are stubs until their on-chain modules ship.
type VenueConnector interface {
	Venue() model.Venue
	Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*QuoteResult, error)
	BuildSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*SwapPlan, error)
	BuildCloseSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*SwapPlan, error)
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	ExecutionSummary(ctx context.Context, signal *model.Signal, deployment *model.Deployment) (*ExecutionSummary, error)
}

// ConnectorProvider resolves the connector for a venue.
type ConnectorProvider interface {
	ConnectorForVenue(venue model.Venue) (VenueConnector, error)
}

// StaticConnectorProvider is a fixed per-venue connector map.
type StaticConnectorProvider map[model.Venue]VenueConnector

func (p StaticConnectorProvider) ConnectorForVenue(venue model.Venue) (VenueConnector, error) {
	connector, ok := p[venue]
	if !ok {
		return nil, fmt.Errorf("connector for venue %s not found", venue)
	}
	return connector, nil
}

// TokenSource resolves token registry entries; implemented by the token
// registry repository.
type TokenSource interface {
	FindToken(ctx context.Context, chainID int64, symbol string) (*model.TokenRegistryEntry, error)
}

// BalanceReader reads live ERC-20 balances; implemented by the gateway.
type BalanceReader interface {
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
}
