package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/rifalabs/rifa-api/internal/config"
	"github.com/rifalabs/rifa-api/internal/domain"
	"github.com/rifalabs/rifa-api/internal/lock"
	"github.com/rifalabs/rifa-api/internal/monitoring"
	"github.com/rifalabs/rifa-api/internal/repository"
)

// EventReader is the slice of the event repository the allocator consumes.
type EventReader interface {
	GetEvent(ctx context.Context, id uint) (domain.Event, error)
	GetPrice(ctx context.Context, eventID, priceID uint) (domain.EventPrice, error)
	GetPaymentMethod(ctx context.Context, id uint) (domain.PaymentMethod, error)
}

// EventLocker hands out the named mutual-exclusion lock that serializes
// single allocations per event.
type EventLocker interface {
	Acquire(ctx context.Context, eventID uint) (lock.ReleaseFunc, error)
}

// TicketAllocator owns the locking and transaction lifecycle of number
// assignment. Callers go through AllocateSingle and AllocateBatch and never
// touch the ledger or the lock primitives directly.
type TicketAllocator struct {
	store  repository.AllocationStore
	events EventReader
	locker EventLocker
	cfg    config.AllocatorConfig

	mu  sync.Mutex
	rng *rand.Rand
}

func NewTicketAllocator(store repository.AllocationStore, events EventReader, locker EventLocker, cfg config.AllocatorConfig) *TicketAllocator {
	cfg.ApplyDefaults()

	return &TicketAllocator{
		store:  store,
		events: events,
		locker: locker,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Purchase exposes a read of one purchase row for callers that need buyer
// details for summaries, without handing out the ledger itself.
func (a *TicketAllocator) Purchase(ctx context.Context, id uint) (domain.Purchase, error) {
	return a.store.GetPurchase(ctx, id)
}

// Availability returns the advisory count of unclaimed numbers. It reads
// without locking, so the answer is an estimate, never a reservation.
func (a *TicketAllocator) Availability(ctx context.Context, eventID uint) (int, error) {
	event, err := a.events.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}

	space, err := event.NumberSpace()
	if err != nil {
		return 0, fmt.Errorf("event.NumberSpace -> %w", err)
	}

	claimed, err := a.store.AdvisoryClaimedNumbers(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("a.store.AdvisoryClaimedNumbers -> %w", err)
	}

	remaining := space.Size() - len(claimed)
	monitoring.SetNumbersRemaining(strconv.FormatUint(uint64(eventID), 10), remaining)

	return remaining, nil
}

// usableEvent loads the event and checks it can still sell tickets.
func (a *TicketAllocator) usableEvent(ctx context.Context, eventID uint) (domain.Event, domain.NumberSpace, error) {
	event, err := a.events.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, domain.NumberSpace{}, err
	}
	if event.Status != domain.EventActive {
		return domain.Event{}, domain.NumberSpace{}, ErrEventNotUsable
	}

	space, err := event.NumberSpace()
	if err != nil {
		return domain.Event{}, domain.NumberSpace{}, fmt.Errorf("event.NumberSpace -> %w", err)
	}

	return event, space, nil
}

func (a *TicketAllocator) randIntn(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.rng.Intn(n)
}

// shuffleRNG returns a private source for one operation; rand.Rand is not
// safe for concurrent use and allocations for different events run in
// parallel.
func (a *TicketAllocator) shuffleRNG() *rand.Rand {
	a.mu.Lock()
	defer a.mu.Unlock()

	return rand.New(rand.NewSource(a.rng.Int63()))
}
