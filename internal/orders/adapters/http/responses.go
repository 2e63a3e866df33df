package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dejobratic/orderdesk/internal/orders/app/queries"
	"github.com/dejobratic/orderdesk/internal/orders/domain"
)

// orderResponse is the flattened wire form of an order and its customer.
type orderResponse struct {
	ID           int64  `json:"id"`
	Date         string `json:"date"`
	Customer     string `json:"customer"`
	Address      string `json:"address1"`
	City         string `json:"city"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	Deleted      string `json:"deleted"`
	LastModified string `json:"last_modified"`
}

type listResponse struct {
	Result []orderResponse `json:"result"`
	Total  int             `json:"total"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  domain.ErrorKind `json:"code"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:           o.ID,
		Date:         domain.FormatTimestamp(o.CreatedAt),
		Customer:     o.Customer.Name,
		Address:      o.Customer.Address,
		City:         o.Customer.City,
		Postcode:     o.Customer.Postcode,
		Country:      o.Customer.Country,
		Amount:       o.Amount,
		Status:       o.Status,
		Deleted:      o.Deleted,
		LastModified: domain.FormatTimestamp(o.UpdatedAt),
	}
}

func toListResponse(result *queries.ListResult) listResponse {
	orders := make([]orderResponse, 0, len(result.Orders))
	for _, o := range result.Orders {
		orders = append(orders, toOrderResponse(o))
	}
	return listResponse{Result: orders, Total: result.Total}
}

// statusFor maps an error kind to its HTTP status. A missing order is reported as 400.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidArgument, domain.KindNotFound, domain.KindMalformedInput:
		return http.StatusBadRequest
	case domain.KindDuplicateBatch:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// toErrorResponse hides store and internal details from clients.
func toErrorResponse(err error) (int, errorResponse) {
	kind := domain.KindOf(err)

	message := err.Error()
	switch kind {
	case domain.KindNotFound:
		message = "Order not found."
	case domain.KindDuplicateBatch:
		message = "Data already inserted on database."
	case domain.KindStoreUnavailable:
		message = "Error on database."
	case domain.KindInternalInconsistency, domain.KindUnknown:
		message = "Unknown error."
	}

	return statusFor(kind), errorResponse{Error: message, Code: kind}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var errBodyTooLarge = errors.New("request body too large")
