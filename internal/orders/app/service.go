package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dejobratic/orderdesk/internal/feed"
	"github.com/dejobratic/orderdesk/internal/orders/app/commands"
	"github.com/dejobratic/orderdesk/internal/orders/app/queries"
	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/metrics"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
)

// Stores groups the persistence ports used by the service. Snapshots may be nil.
type Stores struct {
	Customers ports.CustomerStore
	Orders    ports.OrderStore
	Tx        ports.Transactor
	Snapshots ports.Snapshotter
}

// Service bundles use cases for handling orders via the API.
type Service struct {
	importHandler commands.ImportHandler
	cancelHandler commands.CancelHandler
	listHandler   queries.ListHandler
	idemStore     ports.IdempotencyStore
	feed          ports.FeedSource
}

// NewService wires required dependencies. source may be nil when no fallback feed is configured.
func NewService(
	stores Stores,
	events ports.EventBus,
	idem ports.IdempotencyStore,
	source ports.FeedSource,
	policy commands.CancelPolicy,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	importer := commands.NewImportOrdersCommandHandler(stores.Customers, stores.Orders, stores.Tx, events, logger)
	canceller := commands.NewCancelOrderCommandHandler(stores.Orders, events, policy, logger)

	return &Service{
		importHandler: commands.NewObservableImportHandler(importer, logger, metrics),
		cancelHandler: commands.NewObservableCancelHandler(canceller, logger, metrics),
		listHandler:   queries.NewListOrdersQueryHandler(stores.Orders, stores.Snapshots),
		idemStore:     idem,
		feed:          source,
	}
}

// ImportOrders decodes payload and imports it. An empty payload imports the configured feed.
func (s *Service) ImportOrders(ctx context.Context, payload []byte) (*commands.ImportResult, error) {
	if len(payload) == 0 {
		if s.feed == nil {
			return nil, fmt.Errorf("%w: request body is empty and no feed source is configured", domain.ErrInvalidArgument)
		}

		var err error
		payload, err = s.feed.Load(ctx)
		if err != nil {
			return nil, domain.Classify(fmt.Errorf("load feed: %w", err))
		}
	}

	records, err := feed.Decode(payload)
	if err != nil {
		return nil, err
	}

	return s.importHandler.Handle(ctx, commands.ImportOrdersCommand{Records: records})
}

// CancelOrder cancels the order identified by the raw path id.
func (s *Service) CancelOrder(ctx context.Context, rawID string) error {
	return s.cancelHandler.Handle(ctx, commands.CancelOrderCommand{RawID: rawID})
}

func (s *Service) ListOrders(ctx context.Context, page int) (*queries.ListResult, error) {
	return s.listHandler.Handle(ctx, queries.ListOrdersQuery{Page: page})
}

func (s *Service) FilterByName(ctx context.Context, name string, page int) (*queries.ListResult, error) {
	return s.listHandler.Handle(ctx, queries.ListOrdersQuery{Field: ports.FilterCustomerName, Term: name, Page: page})
}

func (s *Service) FilterByStatus(ctx context.Context, status string, page int) (*queries.ListResult, error) {
	return s.listHandler.Handle(ctx, queries.ListOrdersQuery{Field: ports.FilterStatus, Term: status, Page: page})
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
