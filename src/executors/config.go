package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SignalLoopPeriod  time.Duration `envconfig:"SIGNAL_LOOP_PERIOD" default:"15s"`
	MonitorLoopPeriod time.Duration `envconfig:"MONITOR_LOOP_PERIOD" default:"30s"`
	SignalBatchLimit  int           `envconfig:"SIGNAL_BATCH_LIMIT" default:"50"`

	// PositionDelay spaces position evaluations inside one monitor cycle so
	// close transactions are not submitted back to back.
	PositionDelay time.Duration `envconfig:"POSITION_DELAY" default:"2s"`

	// TrailingActivationPct is the favorable move from entry that arms the
	// trailing stop.
	TrailingActivationPct float64 `envconfig:"TRAILING_ACTIVATION_PCT" default:"3"`

	EnableFixedStopLoss bool `envconfig:"ENABLE_FIXED_STOP_LOSS" default:"false"`

	// ReferenceMaxDeviationPct bounds how far a venue price may sit from the
	// CEX reference before the cycle refuses to act on it.
	ReferenceMaxDeviationPct float64 `envconfig:"REFERENCE_MAX_DEVIATION_PCT" default:"10"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
