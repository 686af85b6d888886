package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	TargetSymbol string `envconfig:"TARGET_SYMBOL" default:"DOGE-USD"`
	// TVTicker is the TradingView ticker the signal is evaluated on. It is
	// not derivable from TargetSymbol because the indicator runs against a
	// different exchange's listing (e.g. BINANCE:DOGEUSDT).
	TVTicker string `envconfig:"TV_TICKER" default:"DOGEUSDT"`

	// OrderNotional is the dollar amount spent per buy.
	OrderNotional decimal.Decimal `envconfig:"ORDER_NOTIONAL" default:"10"`

	// BootstrapMode: first_signal or wait_for_sell.
	BootstrapMode string `envconfig:"BOOTSTRAP_MODE" default:"first_signal"`

	LoopPeriod  time.Duration `envconfig:"LOOP_PERIOD" default:"19s"`
	TickTimeout time.Duration `envconfig:"TICK_TIMEOUT" default:"60s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
