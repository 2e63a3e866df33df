package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/metrics"
	"github.com/dejobratic/orderdesk/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableImportHandler struct {
	handler ImportHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableImportHandler(handler ImportHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableImportHandler {
	return &ObservableImportHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableImportHandler) Handle(ctx context.Context, cmd ImportOrdersCommand) (*ImportResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ImportOrdersCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span, attribute.Int("import.records", len(cmd.Records)))

	start := time.Now()
	var (
		imported int
		kind     domain.ErrorKind
	)
	defer func() {
		o.metrics.RecordImportDuration(ctx, time.Since(start).Seconds())
		o.metrics.RecordImport(ctx, imported, string(kind))
	}()

	o.logger.InfoContext(ctx, "importing orders", "records", len(cmd.Records))

	result, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		kind = domain.KindOf(err)
		telemetry.RecordSpanError(span, err)
		telemetry.AddSpanAttributes(span, attribute.String("error.kind", string(kind)))
		o.logger.ErrorContext(ctx, "failed to import orders",
			"error", err,
			"error_kind", kind,
			"records", len(cmd.Records),
		)
		return nil, err
	}

	imported = result.Imported()
	telemetry.AddSpanAttributes(span, attribute.Int("import.orders", imported))

	o.logger.InfoContext(ctx, "orders imported successfully", "orders", imported)

	telemetry.SetSpanSuccess(span)
	return result, nil
}

type ObservableCancelHandler struct {
	handler CancelHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCancelHandler(handler CancelHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCancelHandler {
	return &ObservableCancelHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCancelHandler) Handle(ctx context.Context, cmd CancelOrderCommand) error {
	ctx, span := telemetry.StartSpan(ctx, "CancelOrderCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span, attribute.String("order.raw_id", cmd.RawID))

	err := o.handler.Handle(ctx, cmd)
	if err != nil {
		kind := domain.KindOf(err)
		o.metrics.RecordOrderCancelled(ctx, string(kind))
		telemetry.RecordSpanError(span, err)
		o.logger.WarnContext(ctx, "failed to cancel order",
			"error", err,
			"error_kind", kind,
			"order_id", cmd.RawID,
		)
		return err
	}

	o.metrics.RecordOrderCancelled(ctx, "")
	o.logger.InfoContext(ctx, "order cancelled", "order_id", cmd.RawID)

	telemetry.SetSpanSuccess(span)
	return nil
}
