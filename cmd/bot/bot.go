package bot

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"tradebot/src/connectors"
	"tradebot/src/database"
	"tradebot/src/executors"
	"tradebot/src/repository"
	"tradebot/src/server"
	"tradebot/src/strategy"
)

type Bot struct{}

// Start wires the connector, state machine, journal and status server, then
// runs the polling loop until interrupt. Returns nil on clean interrupt.
func (b *Bot) Start() error {
	config, err := GetConfig()
	if err != nil {
		logrus.WithError(err).Error("Missing API credentials in environment variables")
		return err
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	connConfig := connectors.GetConfig()
	client, err := connectors.NewRobinhoodClient(config.APIKey, config.PrivateKey, connConfig)
	if err != nil {
		logrus.WithError(err).Error("Failed to build Robinhood client")
		return err
	}

	// The journal is an audit log; failure to open it degrades to
	// journal-less operation rather than blocking trading.
	var journal strategy.Journal
	if config.JournalEnabled {
		if err := database.InitDB(); err != nil {
			logrus.WithError(err).Warn("Order journal unavailable, continuing without it")
		} else {
			journal = repository.NewOrderRepository()
		}
	}

	execConfig := executors.GetConfig()
	machine := strategy.NewMachine(
		logrus.WithField("component", "machine"),
		client,
		journal,
		strategy.MachineConfig{
			Symbol:        execConfig.TargetSymbol,
			Notional:      execConfig.OrderNotional,
			BootstrapMode: strategy.BootstrapMode(execConfig.BootstrapMode),
		},
	)

	srvConfig := server.GetConfig()
	if srvConfig.Enabled {
		srv := server.StartServer(srvConfig.Port, execConfig.TargetSymbol, machine)
		defer server.Shutdown(srv)
	}

	source := connectors.NewClientTV(nil, connConfig.TradingViewScreener, connConfig.TradingViewExchange)

	return executors.StartLoop(ctx, executors.Deps{
		Source:  source,
		Machine: machine,
	})
}
