package commands_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dejobratic/orderdesk/internal/orders/adapters/memory"
	"github.com/dejobratic/orderdesk/internal/orders/app/commands"
	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importFixture struct {
	db        *memory.Database
	customers *memory.CustomerRepository
	orders    *faultyOrders
	events    *mockEventBus
}

func newImportFixture() *importFixture {
	db := memory.NewDatabase()
	return &importFixture{
		db:        db,
		customers: memory.NewCustomerRepository(db),
		orders:    &faultyOrders{OrderRepository: memory.NewOrderRepository(db)},
		events:    &mockEventBus{},
	}
}

func (f *importFixture) handler() *commands.ImportOrdersCommandHandler {
	return commands.NewImportOrdersCommandHandler(f.customers, f.orders, memory.NewTransactor(f.db), f.events, discardLogger())
}

// droppingCustomers loses the last persisted customer.
type droppingCustomers struct {
	*memory.CustomerRepository
}

func (d droppingCustomers) InsertCustomers(ctx context.Context, drafts []domain.CustomerDraft) ([]domain.CustomerDraft, error) {
	persisted, err := d.CustomerRepository.InsertCustomers(ctx, drafts)
	if err != nil || len(persisted) == 0 {
		return persisted, err
	}
	return persisted[:len(persisted)-1], nil
}

func TestImportOrders(t *testing.T) {
	t.Run("writes one customer and one order per record", func(t *testing.T) {
		f := newImportFixture()
		var published []int64
		f.events.publishOrdersImportedFn = func(_ context.Context, ids []int64) error {
			published = ids
			return nil
		}

		result, err := f.handler().Handle(context.Background(), commands.ImportOrdersCommand{
			Records: []domain.FeedRecord{record(7, "Alice", "pending"), record(3, "Bob", "shipped")},
		})
		require.NoError(t, err)

		assert.Equal(t, []int64{7, 3}, result.OrderIDs)
		assert.Equal(t, 2, result.Imported())
		assert.Equal(t, []int64{7, 3}, published)

		customers, orders := f.db.Stats()
		assert.Equal(t, 2, customers)
		assert.Equal(t, 2, orders)

		bob, err := f.orders.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "Bob", bob.Customer.Name)
		assert.Equal(t, "3 Main St", bob.Customer.Address)
		assert.Equal(t, int64(300), bob.Amount)
		assert.Equal(t, "2024-01-02 00:00:00", domain.FormatTimestamp(bob.UpdatedAt))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		f := newImportFixture()
		f.events.publishOrdersImportedFn = func(context.Context, []int64) error {
			t.Error("no event expected for an empty batch")
			return nil
		}

		result, err := f.handler().Handle(context.Background(), commands.ImportOrdersCommand{})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Imported())
	})

	t.Run("rejects the whole batch when any id exists", func(t *testing.T) {
		f := newImportFixture()
		h := f.handler()
		ctx := context.Background()

		_, err := h.Handle(ctx, commands.ImportOrdersCommand{Records: []domain.FeedRecord{record(1, "Alice", "pending")}})
		require.NoError(t, err)

		_, err = h.Handle(ctx, commands.ImportOrdersCommand{
			Records: []domain.FeedRecord{record(2, "Bob", "pending"), record(1, "Alice", "pending")},
		})
		require.ErrorIs(t, err, domain.ErrDuplicateBatch)

		customers, orders := f.db.Stats()
		assert.Equal(t, 1, customers)
		assert.Equal(t, 1, orders)
	})

	t.Run("re-running the same batch is rejected", func(t *testing.T) {
		f := newImportFixture()
		h := f.handler()
		cmd := commands.ImportOrdersCommand{Records: []domain.FeedRecord{record(1, "Alice", "pending")}}

		_, err := h.Handle(context.Background(), cmd)
		require.NoError(t, err)

		_, err = h.Handle(context.Background(), cmd)
		assert.ErrorIs(t, err, domain.ErrDuplicateBatch)
	})

	t.Run("rejects ids repeated within the batch", func(t *testing.T) {
		f := newImportFixture()
		f.orders.existingErr = errors.New("store must not be consulted")

		_, err := f.handler().Handle(context.Background(), commands.ImportOrdersCommand{
			Records: []domain.FeedRecord{record(4, "Alice", "pending"), record(4, "Bob", "pending")},
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateBatch)
	})

	t.Run("malformed record fails before any write", func(t *testing.T) {
		f := newImportFixture()
		bad := record(2, "Bob", "pending")
		bad.Date = "not a date"

		_, err := f.handler().Handle(context.Background(), commands.ImportOrdersCommand{
			Records: []domain.FeedRecord{record(1, "Alice", "pending"), bad},
		})
		require.ErrorIs(t, err, domain.ErrMalformedInput)

		customers, orders := f.db.Stats()
		assert.Zero(t, customers)
		assert.Zero(t, orders)
	})

	t.Run("missing customer rolls back the unit of work", func(t *testing.T) {
		f := newImportFixture()
		h := commands.NewImportOrdersCommandHandler(
			droppingCustomers{f.customers}, f.orders, memory.NewTransactor(f.db), f.events, discardLogger(),
		)

		_, err := h.Handle(context.Background(), commands.ImportOrdersCommand{
			Records: []domain.FeedRecord{record(1, "Alice", "pending"), record(2, "Bob", "pending")},
		})
		require.ErrorIs(t, err, domain.ErrInternalInconsistency)

		customers, orders := f.db.Stats()
		assert.Zero(t, customers, "customers must not be orphaned")
		assert.Zero(t, orders)
	})

	t.Run("store fault during existence check is store unavailable", func(t *testing.T) {
		f := newImportFixture()
		f.orders.existingErr = errors.New("connection refused")

		_, err := f.handler().Handle(context.Background(), commands.ImportOrdersCommand{
			Records: []domain.FeedRecord{record(1, "Alice", "pending")},
		})
		assert.Equal(t, domain.KindStoreUnavailable, domain.KindOf(err))
	})

	t.Run("uniqueness race on insert is a duplicate batch and leaves no customers", func(t *testing.T) {
		f := newImportFixture()
		f.orders.insertErr = domain.ErrDuplicateBatch

		_, err := f.handler().Handle(context.Background(), commands.ImportOrdersCommand{
			Records: []domain.FeedRecord{record(1, "Alice", "pending")},
		})
		require.ErrorIs(t, err, domain.ErrDuplicateBatch)
		assert.NotEqual(t, domain.KindStoreUnavailable, domain.KindOf(err))

		customers, _ := f.db.Stats()
		assert.Zero(t, customers)
	})

	t.Run("concurrent overlapping imports admit exactly one", func(t *testing.T) {
		batch := func(from, to int64) commands.ImportOrdersCommand {
			var records []domain.FeedRecord
			for id := from; id <= to; id++ {
				records = append(records, record(id, fmt.Sprintf("customer-%d", id), "pending"))
			}
			return commands.ImportOrdersCommand{Records: records}
		}
		cmds := []commands.ImportOrdersCommand{batch(1, 5), batch(3, 7)}

		for round := 0; round < 50; round++ {
			f := newImportFixture()
			h := f.handler()

			errs := make([]error, len(cmds))
			var wg sync.WaitGroup
			for i, cmd := range cmds {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = h.Handle(context.Background(), cmd)
				}()
			}
			wg.Wait()

			var succeeded int
			for _, err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				require.ErrorIs(t, err, domain.ErrDuplicateBatch, "round %d", round)
			}
			require.Equal(t, 1, succeeded, "round %d", round)

			customers, orders := f.db.Stats()
			require.Equal(t, 5, customers, "round %d", round)
			require.Equal(t, 5, orders, "round %d", round)
		}
	})

	t.Run("publish failure does not fail a committed import", func(t *testing.T) {
		f := newImportFixture()
		f.events.publishOrdersImportedFn = func(context.Context, []int64) error {
			return errors.New("broker down")
		}

		result, err := f.handler().Handle(context.Background(), commands.ImportOrdersCommand{
			Records: []domain.FeedRecord{record(1, "Alice", "pending")},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported())
	})
}
