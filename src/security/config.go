package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ExecutorKeyEncryptionKey string `envconfig:"EXECUTOR_KEY_ENCRYPTION_KEY"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
