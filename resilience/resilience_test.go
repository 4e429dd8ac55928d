package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errBackend = errors.New("backend error")

func fail(context.Context) error    { return errBackend }
func succeed(context.Context) error { return nil }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "sidecar", MaxFailures: maxFailures, Cooldown: time.Minute})
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, fail); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: expected backend error, got %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("expected fast failure without call, got %v (called=%v)", err, called)
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(2)
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateClosed || cb.Failures() != 1 {
		t.Errorf("expected closed with 1 failure, got %s/%d", cb.State(), cb.Failures())
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(1)
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)

	clock.advance(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after cooldown, got %s", cb.State())
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe should pass: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1)
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)
	clock.advance(time.Minute)
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Errorf("expected reopened circuit, got %s", cb.State())
	}
}

func TestCircuitBreakerIgnoresCallerCancellation(t *testing.T) {
	cb, _ := newTestBreaker(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("cancellation must not count as failure, got %s/%d", cb.State(), cb.Failures())
	}
}

func TestCircuitBreakerStateChangeCallback(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "sidecar",
		MaxFailures: 1,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	_ = cb.Execute(context.Background(), fail)
	cb.Reset()
	want := []string{"sidecar:closed->open", "sidecar:open->closed"}
	if len(transitions) != 2 || transitions[0] != want[0] || transitions[1] != want[1] {
		t.Errorf("got %v, want %v", transitions, want)
	}
}

func TestBulkheadLimitsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "sidecar", MaxConcurrent: 1})
	hold := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started

	if b.InFlight() != 1 {
		t.Errorf("expected 1 call in flight, got %d", b.InFlight())
	}
	if err := b.Execute(context.Background(), succeed); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	close(hold)
	wg.Wait()

	if err := b.Execute(context.Background(), succeed); err != nil {
		t.Errorf("expected free slot after release, got %v", err)
	}
}

func TestBulkheadWaitTimeout(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	b.sem <- struct{}{}
	if err := b.Execute(context.Background(), succeed); !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b2 := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Minute})
	b2.sem <- struct{}{}
	if err := b2.Execute(ctx, succeed); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
