package memory

import (
	"context"
	"sync"
)

type journalKey struct{}

// journal records the rows written inside a unit of work so they can be undone.
type journal struct {
	mu        sync.Mutex
	customers []int64
	orders    []int64
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

func (j *journal) recordCustomer(id int64) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.customers = append(j.customers, id)
	j.mu.Unlock()
}

func (j *journal) recordOrder(id int64) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.orders = append(j.orders, id)
	j.mu.Unlock()
}

// Transactor undoes the inserts of a failed unit of work. Status updates are not journaled.
type Transactor struct {
	db *Database
}

// NewTransactor constructs a Transactor for db.
func NewTransactor(db *Database) *Transactor {
	return &Transactor{db: db}
}

// WithinTx runs fn and removes every customer and order it inserted when fn fails.
// Nested calls join the outer unit of work.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		t.rollback(j)
		return err
	}
	return nil
}

func (t *Transactor) rollback(j *journal) {
	j.mu.Lock()
	orders, customers := j.orders, j.customers
	j.mu.Unlock()

	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	for _, id := range orders {
		delete(t.db.orders, id)
	}
	for _, id := range customers {
		delete(t.db.customers, id)
	}
}
