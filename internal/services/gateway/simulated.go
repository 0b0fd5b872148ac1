package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FailFunc decides whether a simulated transfer should fail. A nil
// return means success.
type FailFunc func(d Descriptor) error

// Simulated is a deterministic in-process rail used in tests and local
// runs. Failure injection and latency are configurable; transaction ids
// are generated.
type Simulated struct {
	mu       sync.Mutex
	failFunc FailFunc
	latency  time.Duration
	calls    []Descriptor
}

// NewSimulated creates a simulated gateway that succeeds every transfer.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// SetFailFunc installs a failure predicate for subsequent transfers.
func (g *Simulated) SetFailFunc(fn FailFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failFunc = fn
}

// SetLatency adds artificial latency per transfer attempt.
func (g *Simulated) SetLatency(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latency = d
}

// Calls returns the descriptors seen so far, in order.
func (g *Simulated) Calls() []Descriptor {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Descriptor, len(g.calls))
	copy(out, g.calls)
	return out
}

func (g *Simulated) Transfer(ctx context.Context, d Descriptor) (*Receipt, error) {
	if !d.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	g.mu.Lock()
	g.calls = append(g.calls, d)
	failFunc := g.failFunc
	latency := g.latency
	g.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	if failFunc != nil {
		if err := failFunc(d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	return &Receipt{
		TransactionID: "TXN-" + strings.ToUpper(uuid.NewString()[:12]),
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (g *Simulated) VerifyAccount(ctx context.Context, accountNumber, bankName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return accountNumber != "" && bankName != "", nil
}
