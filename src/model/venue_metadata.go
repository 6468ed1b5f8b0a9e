package model

import "github.com/shopspring/decimal"

// VenueConstraint is per (venue, token) execution metadata, externally
// maintained and read-only for this service.
type VenueConstraint struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Venue            Venue           `gorm:"size:20;uniqueIndex:idx_venue_constraint" json:"venue"`
	TokenSymbol      string          `gorm:"size:20;uniqueIndex:idx_venue_constraint" json:"token_symbol"`
	MinOrderSize     decimal.Decimal `gorm:"type:numeric" json:"min_order_size"`
	TickSize         decimal.Decimal `gorm:"type:numeric" json:"tick_size"`
	SlippageLimitBps int             `json:"slippage_limit_bps"`
}

// TokenRegistryEntry maps a (chain, symbol) pair to its on-chain address and
// decimals. Externally maintained, read-only here.
type TokenRegistryEntry struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ChainID  int64  `gorm:"uniqueIndex:idx_token_registry" json:"chain_id"`
	Symbol   string `gorm:"size:20;uniqueIndex:idx_token_registry" json:"symbol"`
	Address  string `gorm:"size:64" json:"address"`
	Decimals int    `json:"decimals"`
}
