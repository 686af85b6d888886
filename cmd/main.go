package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradebot/cmd/bot"
	"tradebot/src/connectors"
	"tradebot/src/executors"
)

var Version string

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()

	app := cli.NewApp()
	app.Name = "tradebot"
	app.Usage = "Signal-driven crypto trading bot for Robinhood"
	app.Version = Version

	app.Commands = []cli.Command{
		runCMD,
		accountCMD,
		priceCMD,
		holdingsCMD,
		sellCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	runCMD = cli.Command{
		Name:        "run",
		Usage:       "run the trading loop",
		Action:      runAction,
		Description: `Poll the indicator signal and trade one symbol until interrupted`,
	}
	accountCMD = cli.Command{
		Name:        "account",
		Usage:       "show account info and buying power",
		Action:      accountAction,
		Description: `Fetch the crypto trading account`,
	}
	priceCMD = cli.Command{
		Name:        "price",
		Usage:       "show best bid/ask for the target symbol",
		Action:      priceAction,
		Description: `Fetch the current best bid and ask`,
	}
	holdingsCMD = cli.Command{
		Name:        "holdings",
		Usage:       "show holdings for the target symbol",
		Action:      holdingsAction,
		Description: `Fetch current holdings including the quantity available for trading`,
	}
	sellCMD = cli.Command{
		Name:        "sell",
		Usage:       "liquidate the entire available holding now",
		Action:      sellAction,
		Description: `Place one market sell for the full quantity available for trading`,
	}
)

func newClient() (*connectors.RobinhoodClient, error) {
	config, err := bot.GetConfig()
	if err != nil {
		return nil, err
	}
	return connectors.NewRobinhoodClient(config.APIKey, config.PrivateKey, connectors.GetConfig())
}

func printJSON(data any) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		logrus.WithError(err).Error("failed to marshal JSON for printing")
		return
	}
	fmt.Println(string(b))
}

func runAction(_ *cli.Context) error {
	logrus.Info("Starting trading bot")

	tradingBot := &bot.Bot{}
	if err := tradingBot.Start(); err != nil {
		logrus.WithError(err).Error("Trading bot exited with error")
		return err
	}
	return nil
}

func accountAction(_ *cli.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	account, err := client.GetAccount(ctx)
	if err != nil {
		return err
	}
	printJSON(account)
	return nil
}

func priceAction(_ *cli.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	quote, err := client.GetBestBidAsk(ctx, executors.GetConfig().TargetSymbol)
	if err != nil {
		return err
	}
	fmt.Printf("Buy Price (ask): $%s\n", quote.AskPrice)
	fmt.Printf("Sell Price (bid): $%s\n", quote.BidPrice)
	return nil
}

func holdingsAction(_ *cli.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	symbol := executors.GetConfig().TargetSymbol
	holdings, err := client.GetHoldings(ctx, connectors.AssetCodeFromSymbol(symbol))
	if err != nil {
		return err
	}
	printJSON(holdings)
	return nil
}

func sellAction(_ *cli.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	symbol := executors.GetConfig().TargetSymbol
	order, err := client.SellMarketAll(ctx, symbol)
	if err != nil {
		return err
	}
	if order == nil {
		fmt.Println("Nothing available to sell")
		return nil
	}
	printJSON(order)
	return nil
}
