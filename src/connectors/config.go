package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseAssetSymbol string `envconfig:"BASE_ASSET_SYMBOL" default:"USDC"`

	UniswapQuoter string `envconfig:"UNISWAP_QUOTER" default:"0x61fFE014bA17989E743c5F6cB21bF9697530B21e"`
	UniswapRouter string `envconfig:"UNISWAP_ROUTER" default:"0xE592427A0AEce92De3Edee1F18E0157C05861564"`

	SwapDeadline time.Duration `envconfig:"SWAP_DEADLINE" default:"5m"`

	HyperliquidBaseURL string `envconfig:"HYPERLIQUID_BASE_URL" default:"https://api.hyperliquid.xyz"`
	HyperliquidWSURL   string `envconfig:"HYPERLIQUID_WS_URL" default:"wss://api.hyperliquid.xyz/ws"`

	ReferenceFeedEnabled bool `envconfig:"REFERENCE_FEED_ENABLED" default:"false"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
