package gateway

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Module calls are complex and default gas estimation is unreliable, so each
// call family carries an explicit limit.
type Config struct {
	GasLimitTrade uint64 `envconfig:"GAS_LIMIT_TRADE" default:"1500000"`
	GasLimitSetup uint64 `envconfig:"GAS_LIMIT_SETUP" default:"400000"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
