package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL string `envconfig:"RH_BASE_URL" default:"https://trading.robinhood.com"`

	// QuantityDecimals is the instrument's minimum tradable increment
	// expressed as decimal places. 6 suits low-unit-price assets like DOGE.
	QuantityDecimals int32           `envconfig:"RH_QUANTITY_DECIMALS" default:"6"`
	MinOrderQuantity decimal.Decimal `envconfig:"RH_MIN_ORDER_QTY" default:"0.000001"`

	// MinRequestInterval spaces outgoing requests to stay clear of
	// exchange rate limits.
	MinRequestInterval time.Duration `envconfig:"RH_MIN_REQUEST_INTERVAL" default:"250ms"`

	TradingViewScreener string `envconfig:"TV_SCREENER" default:"crypto"`
	TradingViewExchange string `envconfig:"TV_EXCHANGE" default:"BINANCE"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
