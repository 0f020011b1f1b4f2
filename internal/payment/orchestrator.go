// Package payment orchestrates a wallet top-up attempt end to end: resolve
// the user's identity from the stored session token, authenticate against
// the gateway, submit the charge and reconcile its settlement status.
package payment

import (
	"context"
	"errors"
	"sync"

	"smartpark-pay/internal/gateway"
	"smartpark-pay/internal/logger"
	"smartpark-pay/internal/poller"
	"smartpark-pay/internal/session"

	"go.uber.org/zap"
)

// State of the current payment attempt.
//
//	Idle → Submitting → (Polling | Rejected) → (Completed | Failed)
//
// Rejected, Completed and Failed are terminal for the attempt; a new Pay
// call starts over with a fresh external identifier.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateRejected
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateRejected:
		return "rejected"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Update is one state transition surfaced to the caller.
type Update struct {
	State         State
	TransactionID string
	Message       string
}

// Gateway is the charge-submission slice of the gateway client.
type Gateway interface {
	GenerateToken(ctx context.Context) (gateway.Token, error)
	Checkout(ctx context.Context, token gateway.Token, r gateway.ChargeRequest) (*gateway.ChargeResult, error)
}

// StatusPoller launches the reconciliation loop for an accepted charge.
type StatusPoller interface {
	Start(transactionID string, provider gateway.Provider, onUpdate func(gateway.Status)) *poller.Session
}

var ErrAttemptInFlight = errors.New("a payment attempt is already in flight")

// attempt owns the update channel of one Pay call so that sends and the
// single close never race.
type attempt struct {
	mu     sync.Mutex
	ch     chan Update
	closed bool
}

func (a *attempt) send(u Update) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.ch <- u
}

func (a *attempt) finish(u Update) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.ch <- u
	a.closed = true
	close(a.ch)
}

func (a *attempt) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
}

// Orchestrator runs at most one payment attempt at a time and is the sole
// owner of the attempt's poll session.
type Orchestrator struct {
	gw     Gateway
	poller StatusPoller
	tokens session.TokenSource

	mu     sync.Mutex
	state  State
	active *poller.Session
	cur    *attempt
}

func New(gw Gateway, pl StatusPoller, tokens session.TokenSource) *Orchestrator {
	return &Orchestrator{
		gw:     gw,
		poller: pl,
		tokens: tokens,
		state:  StateIdle,
	}
}

// State returns the state of the current attempt.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pay starts one top-up attempt and returns the stream of its state
// transitions. The channel is closed after the terminal update. Submission
// failures of any kind surface as a terminal Failed update, never as a
// panic or a silent stall; the only synchronous error is an attempt already
// in flight.
func (o *Orchestrator) Pay(ctx context.Context, amount, phone string, provider gateway.Provider) (<-chan Update, error) {
	o.mu.Lock()
	if o.state == StateSubmitting || o.state == StatePolling {
		o.mu.Unlock()
		return nil, ErrAttemptInFlight
	}
	a := &attempt{ch: make(chan Update, 4)}
	o.state = StateSubmitting
	o.active = nil
	o.cur = a
	o.mu.Unlock()

	externalID := gateway.NewExternalID()
	ctx = logger.WithAttemptID(ctx, externalID)

	go o.submit(ctx, a, externalID, amount, phone, provider)
	return a.ch, nil
}

func (o *Orchestrator) submit(ctx context.Context, a *attempt, externalID, amount, phone string, provider gateway.Provider) {
	log := logger.FromCtx(ctx)
	a.send(Update{State: StateSubmitting})

	// A missing or undecodable session token is tolerated: the charge
	// goes out with a null userId and the backend reconciles via the
	// callback instead.
	var userID string
	if o.tokens != nil {
		if tok, err := o.tokens.SessionToken(); err == nil {
			userID = session.UserIDFromToken(tok)
		} else {
			log.Warn("No session token available", zap.Error(err))
		}
	}

	token, err := o.gw.GenerateToken(ctx)
	if err != nil {
		log.Error("Gateway authentication failed", zap.Error(err))
		o.fail(a, humanMessage(err))
		return
	}

	res, err := o.gw.Checkout(ctx, token, gateway.ChargeRequest{
		AccountNumber: phone,
		Amount:        amount,
		ExternalID:    externalID,
		Provider:      provider,
		UserID:        userID,
	})
	if err != nil {
		log.Error("Charge submission failed", zap.Error(err))
		o.fail(a, humanMessage(err))
		return
	}

	if !res.Accepted {
		o.mu.Lock()
		if o.cur == a && o.state == StateSubmitting {
			o.state = StateRejected
		}
		o.mu.Unlock()
		a.finish(Update{State: StateRejected, Message: res.Message})
		return
	}

	a.send(Update{State: StatePolling, TransactionID: res.TransactionID, Message: res.Message})

	o.mu.Lock()
	if o.cur != a || o.state != StateSubmitting {
		// Torn down while the charge was in flight; do not start a poller.
		o.mu.Unlock()
		a.close()
		return
	}
	o.state = StatePolling
	txID := res.TransactionID
	o.active = o.poller.Start(txID, provider, func(st gateway.Status) {
		o.onPollResult(a, txID, st)
	})
	o.mu.Unlock()
}

func (o *Orchestrator) onPollResult(a *attempt, transactionID string, st gateway.Status) {
	o.mu.Lock()
	if o.cur != a || o.state != StatePolling {
		o.mu.Unlock()
		return
	}

	var u Update
	switch st.State {
	case gateway.StateCompleted:
		o.state = StateCompleted
		u = Update{State: StateCompleted, TransactionID: transactionID, Message: "Payment completed"}
	case gateway.StateFailed:
		o.state = StateFailed
		u = Update{State: StateFailed, TransactionID: transactionID, Message: st.Reason}
	default:
		o.mu.Unlock()
		return
	}
	o.active = nil
	o.mu.Unlock()

	a.finish(u)
}

func (o *Orchestrator) fail(a *attempt, msg string) {
	o.mu.Lock()
	if o.cur == a && o.state == StateSubmitting {
		o.state = StateFailed
	}
	o.mu.Unlock()
	a.finish(Update{State: StateFailed, Message: msg})
}

// Cancel stops the current attempt. Any active poll session is stopped
// synchronously: when Cancel returns, no further gateway calls or updates
// will happen and the update channel is closed. Safe to call in any state.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	s := o.active
	a := o.cur
	interrupted := o.state == StateSubmitting || o.state == StatePolling
	if interrupted {
		o.state = StateIdle
	}
	o.active = nil
	o.mu.Unlock()

	if s != nil {
		s.Stop()
		<-s.Done()
	}
	if interrupted && a != nil {
		a.close()
	}
}

// Close releases the orchestrator on caller teardown.
func (o *Orchestrator) Close() {
	o.Cancel()
}

// humanMessage turns a submission error into the message shown to the user.
func humanMessage(err error) string {
	var payErr *gateway.PaymentError
	if errors.As(err, &payErr) {
		return payErr.Message
	}
	var netErr *gateway.NetworkError
	if errors.As(err, &netErr) {
		return "network error, please try again"
	}
	if errors.Is(err, gateway.ErrAuth) {
		return "could not authenticate with the payment gateway"
	}
	return err.Error()
}
