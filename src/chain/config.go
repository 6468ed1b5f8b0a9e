package chain

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RPCURL  string `envconfig:"CHAIN_RPC_URL" default:"https://arb1.arbitrum.io/rpc"`
	ChainID int64  `envconfig:"CHAIN_ID" default:"42161"`

	// ExecutorKeyEncrypted is the secretbox-sealed hex private key of the
	// shared executor identity. Decrypted once at startup.
	ExecutorKeyEncrypted string `envconfig:"EXECUTOR_KEY_ENCRYPTED"`

	NonceAcquireTimeout time.Duration `envconfig:"NONCE_ACQUIRE_TIMEOUT" default:"30s"`
	ConfirmationTimeout time.Duration `envconfig:"CONFIRMATION_TIMEOUT" default:"2m"`
	ReceiptPollInterval time.Duration `envconfig:"RECEIPT_POLL_INTERVAL" default:"2s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
