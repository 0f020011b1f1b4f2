package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smartpark-pay/internal/gateway"

	"github.com/stretchr/testify/assert"
)

type tickResult struct {
	status gateway.Status
	err    error
}

// fakeGateway scripts one result per status tick; ticks past the end of the
// script report pending.
type fakeGateway struct {
	mu          sync.Mutex
	script      []tickResult
	tokenErr    error
	tokenCalls  int
	statusCalls int
}

func (f *fakeGateway) GenerateToken(ctx context.Context) (gateway.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenCalls++
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "tok", nil
}

func (f *fakeGateway) TransactionStatus(ctx context.Context, token gateway.Token, referenceID string, provider gateway.Provider) (gateway.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	f.statusCalls++
	if i >= len(f.script) {
		return gateway.Status{State: gateway.StatePending}, nil
	}
	return f.script[i].status, f.script[i].err
}

func (f *fakeGateway) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, f.statusCalls
}

// collector records emissions and signals the first one.
type collector struct {
	mu      sync.Mutex
	updates []gateway.Status
	first   chan struct{}
	once    sync.Once
}

func newCollector() *collector {
	return &collector{first: make(chan struct{})}
}

func (c *collector) onUpdate(st gateway.Status) {
	c.mu.Lock()
	c.updates = append(c.updates, st)
	c.mu.Unlock()
	c.once.Do(func() { close(c.first) })
}

func (c *collector) all() []gateway.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]gateway.Status(nil), c.updates...)
}

func waitFirst(t *testing.T, c *collector) {
	t.Helper()
	select {
	case <-c.first:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a status emission")
	}
}

func TestPoller_TerminalCompletedStopsLoop(t *testing.T) {
	fake := &fakeGateway{script: []tickResult{
		{status: gateway.Status{State: gateway.StatePending}},
		{status: gateway.Status{State: gateway.StatePending}},
		{status: gateway.Status{State: gateway.StateCompleted}},
	}}
	c := newCollector()

	p := New(fake, WithInterval(10*time.Millisecond))
	s := p.Start("TXN1", gateway.ProviderAirtel, c.onUpdate)

	waitFirst(t, c)
	<-s.Done()
	assert.False(t, s.Active())

	// Exactly one emission: the terminal one. Pending ticks emit nothing.
	updates := c.all()
	assert.Len(t, updates, 1)
	assert.Equal(t, gateway.StateCompleted, updates[0].State)

	// Stopped loop makes no further calls during several would-be ticks.
	_, statusBefore := fake.calls()
	assert.Equal(t, 3, statusBefore)
	time.Sleep(50 * time.Millisecond)
	_, statusAfter := fake.calls()
	assert.Equal(t, statusBefore, statusAfter)
	assert.Len(t, c.all(), 1)
}

func TestPoller_TerminalFailedCarriesReason(t *testing.T) {
	fake := &fakeGateway{script: []tickResult{
		{status: gateway.Status{State: gateway.StateFailed, Reason: "Insufficient balance"}},
	}}
	c := newCollector()

	p := New(fake, WithInterval(10*time.Millisecond))
	s := p.Start("TXN1", gateway.ProviderMpesa, c.onUpdate)

	waitFirst(t, c)
	<-s.Done()

	updates := c.all()
	assert.Len(t, updates, 1)
	assert.Equal(t, gateway.StateFailed, updates[0].State)
	assert.Equal(t, "Insufficient balance", updates[0].Reason)
}

func TestPoller_TickErrorsAreSwallowed(t *testing.T) {
	fake := &fakeGateway{script: []tickResult{
		{err: errors.New("gateway timeout")},
		{err: errors.New("bad json")},
		{status: gateway.Status{State: gateway.StateCompleted}},
	}}
	c := newCollector()

	p := New(fake, WithInterval(10*time.Millisecond))
	s := p.Start("TXN1", gateway.ProviderTigo, c.onUpdate)

	waitFirst(t, c)
	<-s.Done()

	updates := c.all()
	assert.Len(t, updates, 1)
	assert.Equal(t, gateway.StateCompleted, updates[0].State)
}

func TestPoller_TokenErrorsAreSwallowed(t *testing.T) {
	fake := &fakeGateway{tokenErr: errors.New("auth down")}
	c := newCollector()

	p := New(fake, WithInterval(10*time.Millisecond))
	s := p.Start("TXN1", gateway.ProviderAirtel, c.onUpdate)

	// Let several ticks fail, then stop manually.
	time.Sleep(60 * time.Millisecond)
	s.Stop()
	<-s.Done()

	tokenCalls, statusCalls := fake.calls()
	assert.Greater(t, tokenCalls, 1)
	assert.Equal(t, 0, statusCalls)
	assert.Empty(t, c.all())
}

func TestPoller_StopPreventsFurtherCalls(t *testing.T) {
	fake := &fakeGateway{}
	c := newCollector()

	p := New(fake, WithInterval(10*time.Millisecond))
	s := p.Start("TXN1", gateway.ProviderAirtel, c.onUpdate)

	time.Sleep(35 * time.Millisecond)
	s.Stop()
	<-s.Done()

	_, before := fake.calls()
	time.Sleep(50 * time.Millisecond)
	_, after := fake.calls()

	assert.Equal(t, before, after)
	assert.Empty(t, c.all())
	assert.False(t, s.Active())
}

func TestPoller_StopIsIdempotent(t *testing.T) {
	fake := &fakeGateway{}
	p := New(fake, WithInterval(10*time.Millisecond))
	s := p.Start("TXN1", gateway.ProviderAirtel, func(gateway.Status) {})

	s.Stop()
	s.Stop()
	<-s.Done()
	s.Stop()
}

func TestPoller_DeadlineEmitsTimeout(t *testing.T) {
	fake := &fakeGateway{} // never terminal
	c := newCollector()

	p := New(fake, WithInterval(10*time.Millisecond), WithDeadline(45*time.Millisecond))
	s := p.Start("TXN1", gateway.ProviderHalopesa, c.onUpdate)

	waitFirst(t, c)
	<-s.Done()

	updates := c.all()
	assert.Len(t, updates, 1)
	assert.Equal(t, gateway.StateFailed, updates[0].State)
	assert.Equal(t, "timeout", updates[0].Reason)
}
