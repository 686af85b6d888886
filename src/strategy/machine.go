package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradebot/src/connectors"
	"tradebot/src/model"
)

// Broker is the capability the state machine needs from the exchange client.
type Broker interface {
	BuyMarketNotional(ctx context.Context, symbol string, notional decimal.Decimal) (*connectors.Order, error)
	SellMarketAll(ctx context.Context, symbol string) (*connectors.Order, error)
}

// Journal receives a record of every order attempt. A nil journal disables
// recording; journal failures never block trading.
type Journal interface {
	RecordOrder(ctx context.Context, record *model.OrderRecord) error
}

type State string

const (
	// StateBootstrapping withholds all trading until a qualifying signal
	// transition is observed, so a bot started mid-uptrend does not buy
	// into a trend of unknown age.
	StateBootstrapping State = "bootstrapping"
	StateFlat          State = "flat"
	StateInPosition    State = "in_position"
)

type BootstrapMode string

const (
	// BootstrapFirstSignal consumes exactly one valid signal to exit
	// bootstrap, regardless of its value.
	BootstrapFirstSignal BootstrapMode = "first_signal"
	// BootstrapWaitForSell absorbs BUY signals until a SELL is observed.
	BootstrapWaitForSell BootstrapMode = "wait_for_sell"
)

type Action string

const (
	ActionNone Action = "none"
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

type MachineConfig struct {
	Symbol        string
	Notional      decimal.Decimal
	BootstrapMode BootstrapMode
}

// Machine converts a stream of discrete signals into at-most-one-position
// order placement. Only the polling loop mutates it; the mutex exists so the
// status endpoint can read state from another goroutine.
type Machine struct {
	logger  *logrus.Entry
	broker  Broker
	journal Journal

	symbol   string
	notional decimal.Decimal
	mode     BootstrapMode

	mu         sync.RWMutex
	state      State
	lastSignal model.Signal

	now func() time.Time
}

func NewMachine(logger *logrus.Entry, broker Broker, journal Journal, cfg MachineConfig) *Machine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	mode := cfg.BootstrapMode
	if mode == "" {
		mode = BootstrapFirstSignal
	}

	return &Machine{
		logger:   logger,
		broker:   broker,
		journal:  journal,
		symbol:   cfg.Symbol,
		notional: cfg.Notional,
		mode:     mode,
		state:    StateBootstrapping,
		now:      time.Now,
	}
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Machine) LastSignal() model.Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSignal
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// HandleSignal applies one poll tick to the state machine. Order success is
// a non-error broker result; a failed order leaves the state unchanged so
// the next identical signal retries with a fresh client_order_id.
func (m *Machine) HandleSignal(ctx context.Context, signal model.Signal) (Action, error) {
	m.mu.Lock()
	m.lastSignal = signal
	state := m.state
	m.mu.Unlock()

	if signal == model.SignalUnknown {
		return ActionNone, nil
	}

	switch state {
	case StateBootstrapping:
		return m.handleBootstrap(signal), nil

	case StateFlat:
		if signal != model.SignalBuy {
			return ActionNone, nil
		}
		return ActionBuy, m.executeBuy(ctx, signal)

	case StateInPosition:
		if signal != model.SignalSell {
			return ActionNone, nil
		}
		return ActionSell, m.executeSell(ctx, signal)
	}

	return ActionNone, fmt.Errorf("unreachable state %q", state)
}

func (m *Machine) handleBootstrap(signal model.Signal) Action {
	switch m.mode {
	case BootstrapWaitForSell:
		if signal != model.SignalSell {
			m.logger.WithField("signal", signal).Info("bootstrap - absorbing signal, waiting for SELL")
			return ActionNone
		}
	default: // BootstrapFirstSignal
	}

	m.setState(StateFlat)
	m.logger.WithFields(logrus.Fields{
		"signal": signal,
		"mode":   m.mode,
	}).Info("bootstrap complete, trading enabled")
	return ActionNone
}

func (m *Machine) executeBuy(ctx context.Context, signal model.Signal) error {
	order, err := m.broker.BuyMarketNotional(ctx, m.symbol, m.notional)
	if err != nil {
		m.logger.WithError(err).Error("buy order failed, staying flat")
		m.recordAttempt(ctx, connectors.OrderSideBuy, model.OrderDirectionEntry, signal, order, err)
		return err
	}

	m.setState(StateInPosition)
	m.logger.WithFields(logrus.Fields{
		"symbol":   m.symbol,
		"notional": m.notional.String(),
		"order_id": order.ID,
	}).Info("buy order executed")
	m.recordAttempt(ctx, connectors.OrderSideBuy, model.OrderDirectionEntry, signal, order, nil)
	return nil
}

func (m *Machine) executeSell(ctx context.Context, signal model.Signal) error {
	order, err := m.broker.SellMarketAll(ctx, m.symbol)
	if err != nil {
		m.logger.WithError(err).Error("sell order failed, keeping position")
		m.recordAttempt(ctx, connectors.OrderSideSell, model.OrderDirectionExit, signal, order, err)
		return err
	}

	// A nil order with no error means nothing was available to sell. The
	// position is considered closed either way.
	m.setState(StateFlat)
	if order != nil {
		m.logger.WithFields(logrus.Fields{
			"symbol":   m.symbol,
			"order_id": order.ID,
		}).Info("sell order executed")
	}
	m.recordAttempt(ctx, connectors.OrderSideSell, model.OrderDirectionExit, signal, order, nil)
	return nil
}

// Liquidate makes one best-effort market sell if a position is held. Used on
// operator interrupt; failure is logged by the caller and never retried.
func (m *Machine) Liquidate(ctx context.Context) error {
	if m.State() != StateInPosition {
		return nil
	}

	m.logger.WithField("symbol", m.symbol).Info("liquidating position before exit")
	order, err := m.broker.SellMarketAll(ctx, m.symbol)
	if err != nil {
		m.recordAttempt(ctx, connectors.OrderSideSell, model.OrderDirectionExit, model.SignalUnknown, order, err)
		return fmt.Errorf("liquidation sell failed: %w", err)
	}

	m.setState(StateFlat)
	m.recordAttempt(ctx, connectors.OrderSideSell, model.OrderDirectionExit, model.SignalUnknown, order, nil)
	return nil
}

func (m *Machine) recordAttempt(ctx context.Context, side connectors.OrderSide, dir string, signal model.Signal, order *connectors.Order, execErr error) {
	if m.journal == nil {
		return
	}

	record := &model.OrderRecord{
		Symbol:      m.symbol,
		Side:        string(side),
		OrderType:   string(connectors.OrderTypeMarket),
		OrderDir:    dir,
		Signal:      string(signal),
		RequestedAt: m.now(),
	}

	switch {
	case execErr != nil:
		record.Status = model.OrderExecutionStatusFailed
		msg := execErr.Error()
		record.ErrorMessage = &msg
	case order == nil:
		record.Status = model.OrderExecutionStatusSkipped
	default:
		record.Status = model.OrderExecutionStatusSubmitted
		record.ClientOrderID = order.ClientOrderID
		record.ExchangeOrderID = order.ID
		if order.MarketOrderConfig != nil {
			record.Quantity = order.MarketOrderConfig.AssetQuantity.String()
		}
		if side == connectors.OrderSideBuy {
			record.Notional = m.notional.String()
		}
	}

	if err := m.journal.RecordOrder(ctx, record); err != nil {
		m.logger.WithError(err).Warn("failed to journal order attempt")
	}
}
