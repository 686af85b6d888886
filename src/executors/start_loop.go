package executors

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradebot/src/metrics"
	"tradebot/src/model"
	"tradebot/src/strategy"
)

// SignalSource is the external indicator capability the loop consumes.
type SignalSource interface {
	FetchSignal(ctx context.Context, ticker string) (model.Signal, error)
}

type Deps struct {
	Source  SignalSource
	Machine *strategy.Machine
}

var allStates = []string{
	string(strategy.StateBootstrapping),
	string(strategy.StateFlat),
	string(strategy.StateInPosition),
}

// StartLoop drives the state machine on a fixed cadence until ctx is
// cancelled. One tick: fetch signal, feed it to the machine, update metrics.
// A failed tick never terminates the loop; interrupt triggers a best-effort
// liquidation before returning.
func StartLoop(ctx context.Context, deps Deps) error {
	if deps.Source == nil || deps.Machine == nil {
		return errors.New("signal source and machine are required")
	}

	config := GetConfig()

	ticker := time.NewTicker(config.LoopPeriod)
	defer ticker.Stop()

	logger.WithFields(logger.Fields{
		"symbol":    config.TargetSymbol,
		"tv_ticker": config.TVTicker,
		"period":    config.LoopPeriod.String(),
	}).Info("Starting trading loop, waiting for signals")

	metrics.SetState(string(deps.Machine.State()), allStates...)

	for {
		select {
		case <-ctx.Done():
			logger.Info("loop stopped, attempting liquidation before exit")
			liquidate(deps.Machine, config.TickTimeout)
			return nil

		case <-ticker.C:
			runTick(ctx, deps, config)
			metrics.SetState(string(deps.Machine.State()), allStates...)
		}
	}
}

// runTick executes one poll tick. Panics are recovered at this boundary and
// treated like a transient UNKNOWN tick.
func runTick(ctx context.Context, deps Deps, config Config) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("tick failed, treating as transient error")
		}
	}()

	tickCtx, cancel := context.WithTimeout(ctx, config.TickTimeout)
	defer cancel()

	signal, err := deps.Source.FetchSignal(tickCtx, config.TVTicker)
	if err != nil {
		signal = model.SignalUnknown
		logger.WithError(err).Warn("Error getting signal, waiting for next check")
	}
	metrics.TicksTotal.WithLabelValues(string(signal)).Inc()

	if signal == model.SignalUnknown {
		return
	}

	action, err := deps.Machine.HandleSignal(tickCtx, signal)
	if action == strategy.ActionNone {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
		logger.WithError(err).WithField("action", action).Error("order action failed")
	}
	metrics.OrdersTotal.WithLabelValues(string(action), result).Inc()
}

// liquidate runs outside the loop ctx, which is already done when the
// operator interrupts. One attempt, logged, never retried.
func liquidate(machine *strategy.Machine, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := machine.Liquidate(ctx); err != nil {
		logger.WithError(err).Error("failed to liquidate position on shutdown")
	}
}
