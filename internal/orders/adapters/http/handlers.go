package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dejobratic/orderdesk/internal/orders/app"
	"github.com/dejobratic/orderdesk/internal/orders/app/queries"
	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
)

const maxImportBody = 32 << 20

// Handler exposes HTTP endpoints for order operations.
type Handler struct {
	service *app.Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register binds the order handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders/import", h.importOrders)
	mux.HandleFunc("DELETE /api/orders/{id}", h.cancelOrder)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/name", h.filterByName)
	mux.HandleFunc("GET /api/orders/status", h.filterByStatus)
}

// importOrders imports the request body, or the configured feed when the body is empty.
// Responses are stored under the Idempotency-Key header when one is sent and replayed on retry.
func (h *Handler) importOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	if idemKey != "" {
		stored, err := h.service.GetIdempotentResponse(ctx, idemKey)
		if err != nil {
			h.fail(w, r, domain.Classify(fmt.Errorf("get idempotent response: %w", err)))
			return
		}
		if stored != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = errBodyTooLarge
		}
		h.fail(w, r, fmt.Errorf("%w: read body: %v", domain.ErrMalformedInput, err))
		return
	}

	status := http.StatusCreated
	var response any = messageResponse{Message: "Data inserted in database."}

	result, err := h.service.ImportOrders(ctx, payload)
	if err != nil {
		status, response = toErrorResponse(err)
		h.logFailure(r, status, err)
	} else if result.Imported() == 0 {
		response = messageResponse{Message: "No orders to import."}
	}

	body, err := json.Marshal(response)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// 5xx responses are not stored so the client can retry.
	if idemKey != "" && status < http.StatusInternalServerError {
		stored := ports.StoredResponse{StatusCode: status, Body: body}
		if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
			h.logger.WarnContext(ctx, "failed to save idempotent response", "error", err, "key", idemKey)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelOrder(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Item cancelled successfully."})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(page int) (*queries.ListResult, error) {
		return h.service.ListOrders(r.Context(), page)
	})
}

func (h *Handler) filterByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	h.list(w, r, func(page int) (*queries.ListResult, error) {
		return h.service.FilterByName(r.Context(), name, page)
	})
}

func (h *Handler) filterByStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	h.list(w, r, func(page int) (*queries.ListResult, error) {
		return h.service.FilterByStatus(r.Context(), status, page)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, query func(page int) (*queries.ListResult, error)) {
	page, err := queries.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := query(page)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toListResponse(result))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := toErrorResponse(err)
	h.logFailure(r, status, err)
	writeJSON(w, status, body)
}

func (h *Handler) logFailure(r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	h.logger.ErrorContext(r.Context(), "request failed",
		"error", err,
		"error_kind", domain.KindOf(err),
		"method", r.Method,
		"path", r.URL.Path,
	)
}
