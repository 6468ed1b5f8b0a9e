package chain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

// ErrNonceAcquireTimeout is returned when another holder does not release the
// per-identity slot within the acquisition timeout. The caller must not
// submit a transaction after receiving it.
var ErrNonceAcquireTimeout = errors.New("nonce acquisition timed out")

type nonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

type nonceEntry struct {
	slot   chan struct{} // 1-slot semaphore, serializes acquisition per identity
	next   uint64
	primed bool
}

// NonceCoordinator hands out collision-free transaction sequence numbers for
// executor identities shared across concurrent trade operations. State is
// per-coordinator, not per-process, so tests stay isolated.
type NonceCoordinator struct {
	mu      sync.Mutex
	entries map[common.Address]*nonceEntry

	source  nonceSource
	timeout time.Duration
}

func NewNonceCoordinator(source nonceSource, acquireTimeout time.Duration) *NonceCoordinator {
	if acquireTimeout <= 0 {
		acquireTimeout = 30 * time.Second
	}
	return &NonceCoordinator{
		entries: make(map[common.Address]*nonceEntry),
		source:  source,
		timeout: acquireTimeout,
	}
}

func (n *NonceCoordinator) entry(identity common.Address) *nonceEntry {
	n.mu.Lock()
	defer n.mu.Unlock()

	e, ok := n.entries[identity]
	if !ok {
		e = &nonceEntry{slot: make(chan struct{}, 1)}
		e.slot <- struct{}{}
		n.entries[identity] = e
	}
	return e
}

// Acquire returns the next nonce for the identity. Acquisition is strictly
// serialized per identity with a bounded wait. The on-chain pending count is
// re-read on every acquisition and the maximum of (cached next, on-chain)
// wins, tolerating externally-submitted transactions.
func (n *NonceCoordinator) Acquire(ctx context.Context, identity common.Address) (uint64, error) {
	e := n.entry(identity)

	timer := time.NewTimer(n.timeout)
	defer timer.Stop()

	select {
	case <-e.slot:
	case <-timer.C:
		return 0, ErrNonceAcquireTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { e.slot <- struct{}{} }()

	onChain, err := n.source.PendingNonceAt(ctx, identity)
	if err != nil {
		return 0, err
	}

	next := onChain
	if e.primed && e.next > next {
		next = e.next
	}

	e.next = next + 1
	e.primed = true

	logger.WithFields(map[string]interface{}{
		"identity": identity.Hex(),
		"nonce":    next,
		"on_chain": onChain,
	}).Debug("[nonce] acquired")

	return next, nil
}

// Reset drops cached state for the identity. The next acquisition re-reads
// the authoritative on-chain count.
func (n *NonceCoordinator) Reset(identity common.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.entries, identity)
}
