// Package poller drives the settlement reconciliation loop: once a charge is
// accepted, the gateway is queried at a fixed interval until it reports a
// terminal state or the owner stops the session.
package poller

import (
	"context"
	"sync"
	"time"

	"smartpark-pay/internal/gateway"
	"smartpark-pay/internal/logger"

	"go.uber.org/zap"
)

// DefaultInterval matches the upstream 5000ms poll cadence.
const DefaultInterval = 5 * time.Second

// StatusClient is the slice of the gateway the loop needs. A fresh token is
// fetched on every tick; the gateway issues short-lived tokens and nothing
// here caches them.
type StatusClient interface {
	GenerateToken(ctx context.Context) (gateway.Token, error)
	TransactionStatus(ctx context.Context, token gateway.Token, referenceID string, provider gateway.Provider) (gateway.Status, error)
}

type Poller struct {
	client   StatusClient
	interval time.Duration
	deadline time.Duration
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithDeadline caps the total poll duration. Past the cap the session emits
// Failed("timeout") and stops. Zero means poll until a terminal result or an
// explicit Stop, which is the upstream behavior.
func WithDeadline(d time.Duration) Option {
	return func(p *Poller) { p.deadline = d }
}

func New(client StatusClient, opts ...Option) *Poller {
	p := &Poller{
		client:   client,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Session is one running poll loop. The starter owns it and is the only
// party allowed to stop it; there is never more than one per payment attempt.
type Session struct {
	transactionID string
	provider      gateway.Provider

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Start launches the loop for one accepted charge. onUpdate fires at most
// once, with the terminal status; pending ticks and transient errors emit
// nothing.
func (p *Poller) Start(transactionID string, provider gateway.Provider, onUpdate func(gateway.Status)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		transactionID: transactionID,
		provider:      provider,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	go p.run(s, onUpdate)
	return s
}

// Stop cancels the session. Any in-flight status request is aborted, no
// further ticks fire and no further onUpdate calls occur once Done is
// closed. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(s.cancel)
}

// Done is closed when the loop has fully exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Active reports whether the loop is still running.
func (s *Session) Active() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (p *Poller) run(s *Session, onUpdate func(gateway.Status)) {
	defer close(s.done)
	defer s.cancel()

	log := logger.L().With(
		zap.String("transaction_id", s.transactionID),
		zap.String("provider", string(s.provider)),
	)
	log.Info("Started status polling", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var expired <-chan time.Time
	if p.deadline > 0 {
		timer := time.NewTimer(p.deadline)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-s.ctx.Done():
			log.Info("Polling stopped")
			return

		case <-expired:
			log.Warn("Polling deadline exceeded", zap.Duration("deadline", p.deadline))
			s.emit(onUpdate, gateway.Status{State: gateway.StateFailed, Reason: "timeout"})
			return

		case <-ticker.C:
			st, err := p.tick(s)
			if err != nil {
				if s.ctx.Err() != nil {
					return
				}
				// Transient tick errors never kill the loop.
				log.Warn("Status tick failed, will retry", zap.Error(err))
				continue
			}
			if !st.State.Terminal() {
				continue
			}
			log.Info("Terminal status reached", zap.String("state", st.State.String()))
			s.emit(onUpdate, st)
			return
		}
	}
}

func (p *Poller) tick(s *Session) (gateway.Status, error) {
	token, err := p.client.GenerateToken(s.ctx)
	if err != nil {
		return gateway.Status{}, err
	}
	return p.client.TransactionStatus(s.ctx, token, s.transactionID, s.provider)
}

// emit delivers the terminal status unless the session was stopped while the
// final tick was in flight.
func (s *Session) emit(onUpdate func(gateway.Status), st gateway.Status) {
	select {
	case <-s.ctx.Done():
	default:
		onUpdate(st)
	}
}
