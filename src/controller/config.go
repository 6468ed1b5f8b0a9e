package controller

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SlippageBps bounds the accepted quote-to-execution price drift.
	SlippageBps int64 `envconfig:"SLIPPAGE_BPS" default:"100"`

	// ProfitShareBps mirrors the share the module distributes on-chain from
	// profitable closes; used only for the off-chain billing ledger.
	ProfitShareBps int64 `envconfig:"PROFIT_SHARE_BPS" default:"1000"`

	// TrailingPercent is the retrace from the watermark that closes a
	// position once trailing is active.
	TrailingPercent float64 `envconfig:"TRAILING_PERCENT" default:"1"`

	TrailingEnabled bool `envconfig:"TRAILING_ENABLED" default:"true"`

	// DexRouter is the swap router the module trades through; approvals are
	// issued against it during Safe setup.
	DexRouter string `envconfig:"UNISWAP_ROUTER" default:"0xE592427A0AEce92De3Edee1F18E0157C05861564"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
