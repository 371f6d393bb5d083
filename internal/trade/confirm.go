package trade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"newsflow/logger"
)

// Side is the direction of a staged position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// State of the confirmation machine.
type State string

const (
	Empty     State = "EMPTY"
	Staged    State = "STAGED"
	Executing State = "EXECUTING"
	Executed  State = "EXECUTED"
	Failed    State = "FAILED"
)

var (
	ErrNothingStaged  = errors.New("no order staged")
	ErrAlreadyRunning = errors.New("order submission already in progress")
)

// OrderCommand is a fully-bound order ready for submission. Keeping the
// pending order as inspectable data rather than an opaque closure lets the
// machine log exactly what the operator is about to confirm.
type OrderCommand struct {
	Side         Side
	Symbol       string
	NotionalSize float64
	Leverage     int
}

func (c OrderCommand) Summary() string {
	return fmt.Sprintf("%s position %s, size: %.2f, leverage: %d",
		c.Side, c.Symbol, c.NotionalSize, c.Leverage)
}

// Receipt is the exchange's answer to a submitted order.
type Receipt struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Quantity      string
	Status        string
	UpdateTime    int64 // epoch milliseconds
}

// DisplayTime renders the exchange update timestamp as local wall-clock time
// with microseconds.
func (r Receipt) DisplayTime() string {
	t := time.UnixMilli(r.UpdateTime)
	return t.Format("15:04:05") + fmt.Sprintf(":%06d", t.Nanosecond()/1000)
}

// Submitter places a bound order with the exchange.
type Submitter interface {
	Submit(ctx context.Context, cmd OrderCommand) (Receipt, error)
}

// ConfirmationMachine gates order submission behind an explicit two-step
// flow: an operator stages a command, then either confirms or cancels it.
// Confirmation submits the command at most once; a second confirm while a
// submission is in flight is rejected rather than doubled.
type ConfirmationMachine struct {
	submitter Submitter
	log       *logger.Log

	mu      sync.Mutex
	state   State
	pending *OrderCommand
}

func NewConfirmationMachine(submitter Submitter) *ConfirmationMachine {
	return &ConfirmationMachine{
		submitter: submitter,
		state:     Empty,
		log:       logger.GetLogger(),
	}
}

// State returns the machine's current state.
func (m *ConfirmationMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending returns the staged command, if any.
func (m *ConfirmationMachine) Pending() (OrderCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return OrderCommand{}, false
	}
	return *m.pending, true
}

// Stage records a command for confirmation. Nothing is submitted. Staging
// replaces any previously staged command.
func (m *ConfirmationMachine) Stage(cmd OrderCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Executing {
		return ErrAlreadyRunning
	}
	m.pending = &cmd
	m.state = Staged

	m.log.WithComponent("trade_confirm").WithFields(logger.Fields{
		"summary": cmd.Summary(),
	}).Info("order staged")
	return nil
}

// Cancel discards the staged command without side effects.
func (m *ConfirmationMachine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Staged {
		return
	}
	m.log.WithComponent("trade_confirm").WithFields(logger.Fields{
		"summary": m.pending.Summary(),
	}).Info("staged order cancelled")
	m.pending = nil
	m.state = Empty
}

// Confirm submits the staged command exactly once. A submission error moves
// the machine to Failed and is returned to the operator; financial
// operations are never retried here.
func (m *ConfirmationMachine) Confirm(ctx context.Context) (Receipt, error) {
	m.mu.Lock()
	if m.state == Executing {
		m.mu.Unlock()
		return Receipt{}, ErrAlreadyRunning
	}
	if m.state != Staged || m.pending == nil {
		m.mu.Unlock()
		return Receipt{}, ErrNothingStaged
	}
	cmd := *m.pending
	m.pending = nil
	m.state = Executing
	m.mu.Unlock()

	log := m.log.WithComponent("trade_confirm").WithFields(logger.Fields{
		"summary": cmd.Summary(),
	})
	log.Info("submitting confirmed order")

	receipt, err := m.submitter.Submit(ctx, cmd)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = Failed
		log.WithError(err).Error("order submission failed")
		return Receipt{}, fmt.Errorf("order submission failed: %w", err)
	}
	m.state = Executed

	log.WithFields(logger.Fields{
		"order_id": receipt.OrderID,
		"quantity": receipt.Quantity,
		"status":   receipt.Status,
		"time":     receipt.DisplayTime(),
	}).Info("order executed")
	return receipt, nil
}
