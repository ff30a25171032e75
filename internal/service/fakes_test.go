package service

import (
	"context"
	"sync"

	"github.com/rifalabs/rifa-api/internal/domain"
	"github.com/rifalabs/rifa-api/internal/lock"
	"github.com/rifalabs/rifa-api/internal/repository"
)

// --- in-memory ledger fake ---

// storeData is the raw state shared by the fake ledger and its transactional
// view. All access happens with the fake's mutex held; holding it for the
// whole WithinTx body models the row locks the real ledger takes.
type storeData struct {
	purchases map[uint]*domain.Purchase
	nextID    uint
}

func newStoreData() *storeData {
	return &storeData{
		purchases: make(map[uint]*domain.Purchase),
		nextID:    1,
	}
}

func (d *storeData) clone() *storeData {
	cloned := &storeData{
		purchases: make(map[uint]*domain.Purchase, len(d.purchases)),
		nextID:    d.nextID,
	}
	for id, p := range d.purchases {
		copied := *p
		if p.TicketNumber != nil {
			n := *p.TicketNumber
			copied.TicketNumber = &n
		}
		cloned.purchases[id] = &copied
	}

	return cloned
}

func (d *storeData) claimedNumbers(eventID uint) map[string]struct{} {
	claimed := make(map[string]struct{})
	for _, p := range d.purchases {
		if p.EventID == eventID && p.Claimed() {
			claimed[*p.TicketNumber] = struct{}{}
		}
	}

	return claimed
}

func (d *storeData) numberClaimed(eventID uint, number string) bool {
	_, ok := d.claimedNumbers(eventID)[number]
	return ok
}

type fakeStore struct {
	mu   sync.Mutex
	data *storeData

	// insertErrs is a queue of errors returned by InsertClaims before real
	// inserts resume; used to simulate races from concurrent writers.
	insertErrs []error

	commits int
}

var _ repository.AllocationStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{data: newStoreData()}
}

func (f *fakeStore) addPurchase(p domain.Purchase) uint {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.data.nextID
	f.data.nextID++
	p.ID = id
	f.data.purchases[id] = &p

	return id
}

func (f *fakeStore) purchase(id uint) domain.Purchase {
	f.mu.Lock()
	defer f.mu.Unlock()

	return *f.data.purchases[id]
}

func (f *fakeStore) purchasesByTransaction(transactionID string) []domain.Purchase {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Purchase
	for _, p := range f.data.purchases {
		if p.TransactionID == transactionID {
			out = append(out, *p)
		}
	}

	return out
}

func (f *fakeStore) WithinTx(_ context.Context, fn func(tx repository.AllocationStore) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := f.data.clone()
	if err := fn(&fakeTxStore{f: f}); err != nil {
		f.data = snapshot
		return err
	}
	f.commits++

	return nil
}

func (f *fakeStore) ClaimedNumbers(ctx context.Context, eventID uint) (map[string]struct{}, error) {
	return f.AdvisoryClaimedNumbers(ctx, eventID)
}

func (f *fakeStore) AdvisoryClaimedNumbers(_ context.Context, eventID uint) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.data.claimedNumbers(eventID), nil
}

func (f *fakeStore) GetPurchase(_ context.Context, id uint) (domain.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return getPurchase(f.data, id)
}

func (f *fakeStore) CreatePurchase(_ context.Context, p domain.Purchase) (domain.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return createPurchase(f.data, p), nil
}

func (f *fakeStore) AssignNumber(_ context.Context, purchaseID uint, number string, status domain.PurchaseStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return assignNumber(f.data, purchaseID, number, status)
}

func (f *fakeStore) InsertClaims(_ context.Context, purchases []domain.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.insertClaims(purchases)
}

func (f *fakeStore) MarkPurchaseFailed(_ context.Context, purchaseID uint, rejectedNumber *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return markPurchaseFailed(f.data, purchaseID, rejectedNumber)
}

func (f *fakeStore) MarkTransactionFailed(_ context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	markTransactionFailed(f.data, transactionID)

	return nil
}

func (f *fakeStore) RestoreTransaction(_ context.Context, transactionID string, status domain.PurchaseStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	restoreTransaction(f.data, transactionID, status)

	return nil
}

func (f *fakeStore) NumbersByTransaction(_ context.Context, transactionID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return numbersByTransaction(f.data, transactionID), nil
}

func (f *fakeStore) insertClaims(purchases []domain.Purchase) error {
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if err != nil {
			return err
		}
	}

	for _, p := range purchases {
		if p.TicketNumber != nil && f.data.numberClaimed(p.EventID, *p.TicketNumber) {
			return repository.ErrConstraintViolation
		}
	}
	for _, p := range purchases {
		id := f.data.nextID
		f.data.nextID++
		row := p
		row.ID = id
		f.data.purchases[id] = &row
	}

	return nil
}

// fakeTxStore is the view handed to WithinTx callbacks. The fake's mutex is
// already held, so it touches the data directly.
type fakeTxStore struct {
	f *fakeStore
}

var _ repository.AllocationStore = (*fakeTxStore)(nil)

func (t *fakeTxStore) WithinTx(_ context.Context, fn func(tx repository.AllocationStore) error) error {
	return fn(t)
}

func (t *fakeTxStore) ClaimedNumbers(_ context.Context, eventID uint) (map[string]struct{}, error) {
	return t.f.data.claimedNumbers(eventID), nil
}

func (t *fakeTxStore) AdvisoryClaimedNumbers(ctx context.Context, eventID uint) (map[string]struct{}, error) {
	return t.ClaimedNumbers(ctx, eventID)
}

func (t *fakeTxStore) GetPurchase(_ context.Context, id uint) (domain.Purchase, error) {
	return getPurchase(t.f.data, id)
}

func (t *fakeTxStore) CreatePurchase(_ context.Context, p domain.Purchase) (domain.Purchase, error) {
	return createPurchase(t.f.data, p), nil
}

func (t *fakeTxStore) AssignNumber(_ context.Context, purchaseID uint, number string, status domain.PurchaseStatus) error {
	return assignNumber(t.f.data, purchaseID, number, status)
}

func (t *fakeTxStore) InsertClaims(_ context.Context, purchases []domain.Purchase) error {
	return t.f.insertClaims(purchases)
}

func (t *fakeTxStore) MarkPurchaseFailed(_ context.Context, purchaseID uint, rejectedNumber *string) error {
	return markPurchaseFailed(t.f.data, purchaseID, rejectedNumber)
}

func (t *fakeTxStore) MarkTransactionFailed(_ context.Context, transactionID string) error {
	markTransactionFailed(t.f.data, transactionID)
	return nil
}

func (t *fakeTxStore) RestoreTransaction(_ context.Context, transactionID string, status domain.PurchaseStatus) error {
	restoreTransaction(t.f.data, transactionID, status)
	return nil
}

func (t *fakeTxStore) NumbersByTransaction(_ context.Context, transactionID string) ([]string, error) {
	return numbersByTransaction(t.f.data, transactionID), nil
}

func createPurchase(d *storeData, p domain.Purchase) domain.Purchase {
	id := d.nextID
	d.nextID++
	p.ID = id
	row := p
	d.purchases[id] = &row

	return p
}

func getPurchase(d *storeData, id uint) (domain.Purchase, error) {
	p, ok := d.purchases[id]
	if !ok {
		return domain.Purchase{}, repository.ErrPurchaseNotFound
	}

	return *p, nil
}

func assignNumber(d *storeData, purchaseID uint, number string, status domain.PurchaseStatus) error {
	p, ok := d.purchases[purchaseID]
	if !ok {
		return repository.ErrPurchaseNotFound
	}
	if d.numberClaimed(p.EventID, number) {
		return repository.ErrConstraintViolation
	}

	p.TicketNumber = &number
	p.Status = status

	return nil
}

func markPurchaseFailed(d *storeData, purchaseID uint, rejectedNumber *string) error {
	p, ok := d.purchases[purchaseID]
	if !ok {
		return repository.ErrPurchaseNotFound
	}

	p.Status = domain.PurchaseFailed
	if rejectedNumber != nil {
		p.TicketNumber = rejectedNumber
	}

	return nil
}

func markTransactionFailed(d *storeData, transactionID string) {
	for _, p := range d.purchases {
		if p.TransactionID == transactionID {
			p.Status = domain.PurchaseFailed
		}
	}
}

func restoreTransaction(d *storeData, transactionID string, status domain.PurchaseStatus) {
	for _, p := range d.purchases {
		if p.TransactionID == transactionID && p.Status == domain.PurchaseFailed && p.Claimed() {
			p.Status = status
		}
	}
}

func numbersByTransaction(d *storeData, transactionID string) []string {
	var numbers []string
	for _, p := range d.purchases {
		if p.TransactionID == transactionID && p.Claimed() {
			numbers = append(numbers, *p.TicketNumber)
		}
	}

	return numbers
}

// --- event reader fake ---

type fakeEvents struct {
	events  map[uint]domain.Event
	prices  map[uint]domain.EventPrice
	methods map[uint]domain.PaymentMethod
}

var _ EventReader = (*fakeEvents)(nil)

func newFakeEvents(events ...domain.Event) *fakeEvents {
	f := &fakeEvents{
		events:  make(map[uint]domain.Event),
		prices:  make(map[uint]domain.EventPrice),
		methods: make(map[uint]domain.PaymentMethod),
	}
	for _, e := range events {
		f.events[e.ID] = e
		f.prices[e.ID] = domain.EventPrice{ID: e.ID, EventID: e.ID, Name: "general"}
		f.methods[1] = domain.PaymentMethod{ID: 1, Name: "cash", Enabled: true}
	}

	return f
}

func (f *fakeEvents) GetEvent(_ context.Context, id uint) (domain.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return domain.Event{}, repository.ErrEventNotFound
	}

	return e, nil
}

func (f *fakeEvents) GetPrice(_ context.Context, eventID, priceID uint) (domain.EventPrice, error) {
	p, ok := f.prices[priceID]
	if !ok || p.EventID != eventID {
		return domain.EventPrice{}, repository.ErrEventPriceNotFound
	}

	return p, nil
}

func (f *fakeEvents) GetPaymentMethod(_ context.Context, id uint) (domain.PaymentMethod, error) {
	m, ok := f.methods[id]
	if !ok {
		return domain.PaymentMethod{}, repository.ErrPaymentMethodNotFound
	}

	return m, nil
}

// --- locker fakes ---

// fakeLocker is a working in-process named lock.
type fakeLocker struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

var _ EventLocker = (*fakeLocker)(nil)

func newFakeLocker() *fakeLocker {
	return &fakeLocker{locks: make(map[uint]*sync.Mutex)}
}

func (l *fakeLocker) Acquire(_ context.Context, eventID uint) (lock.ReleaseFunc, error) {
	l.mu.Lock()
	m, ok := l.locks[eventID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[eventID] = m
	}
	l.mu.Unlock()

	m.Lock()

	return func(context.Context) { m.Unlock() }, nil
}

// contendedLocker always reports the lock as held elsewhere.
type contendedLocker struct{}

func (contendedLocker) Acquire(context.Context, uint) (lock.ReleaseFunc, error) {
	return nil, lock.ErrNotAcquired
}
