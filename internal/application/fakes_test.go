package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memoryContacts struct {
	mu       sync.Mutex
	contacts map[domain.ContactID]domain.Contact
}

func newMemoryContacts(contacts ...domain.Contact) *memoryContacts {
	repo := &memoryContacts{contacts: map[domain.ContactID]domain.Contact{}}
	for _, contact := range contacts {
		repo.contacts[contact.ID] = contact
	}
	return repo
}

func (r *memoryContacts) GetByName(_ context.Context, name string) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, contact := range r.contacts {
		if domain.NormalizeContactName(contact.Name) == domain.NormalizeContactName(name) {
			return contact, nil
		}
	}
	return domain.Contact{}, domain.ErrContactNotFound
}

func (r *memoryContacts) List(context.Context) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contacts := make([]domain.Contact, 0, len(r.contacts))
	for _, contact := range r.contacts {
		contacts = append(contacts, contact)
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].Name < contacts[j].Name })
	return contacts, nil
}

func (r *memoryContacts) Save(_ context.Context, contact domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[contact.ID] = contact
	return nil
}

func (r *memoryContacts) Delete(_ context.Context, id domain.ContactID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[id]; !ok {
		return domain.ErrContactNotFound
	}
	delete(r.contacts, id)
	return nil
}

type memoryRecurring struct {
	mu       sync.Mutex
	payments map[domain.RecurringID]domain.RecurringPayment
	saveErr  error
}

func newMemoryRecurring() *memoryRecurring {
	return &memoryRecurring{payments: map[domain.RecurringID]domain.RecurringPayment{}}
}

func (r *memoryRecurring) GetByID(_ context.Context, id domain.RecurringID) (domain.RecurringPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok {
		return domain.RecurringPayment{}, domain.ErrRecurringNotFound
	}
	return payment, nil
}

func (r *memoryRecurring) List(context.Context) ([]domain.RecurringPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payments := make([]domain.RecurringPayment, 0, len(r.payments))
	for _, payment := range r.payments {
		payments = append(payments, payment)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

func (r *memoryRecurring) Save(_ context.Context, payment domain.RecurringPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.payments[payment.ID] = payment
	return nil
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
	saveErr error
}

func (r *memoryHistory) Save(_ context.Context, entry domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryHistory) UpdateStatus(_ context.Context, hash common.Hash, status domain.OperationStatus, txHash common.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].UserOpHash == hash {
			r.entries[i].Status = status
			r.entries[i].TransactionHash = txHash
			return nil
		}
	}
	return nil
}

func (r *memoryHistory) List(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := append([]domain.HistoryEntry(nil), r.entries...)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (o *recordingObserver) UserOperationSubmitted(status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}
