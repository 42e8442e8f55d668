package rest

import (
	"errors"
	"net/http"

	"github.com/ecomshop/event-pipeline/internal/domain"
	appErrors "github.com/ecomshop/event-pipeline/internal/errors"
	"github.com/ecomshop/event-pipeline/internal/pkg/logger"
	"github.com/ecomshop/event-pipeline/internal/service"
	"github.com/ecomshop/event-pipeline/internal/transport/rest/response"
	"github.com/go-chi/render"
)

type Handler struct {
	svc *service.OrderService
}

func NewHandler(svc *service.OrderService) *Handler {
	return &Handler{svc: svc}
}

type createOrderItem struct {
	ProductID *int64 `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type createOrderRequest struct {
	UserID *int64            `json:"user_id"`
	Total  *float64          `json:"total"`
	Items  []createOrderItem `json:"items"`
}

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		response.Fail(w, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}

	if meta := validateCreateOrder(req); len(meta) > 0 {
		response.Fail(w, http.StatusUnprocessableEntity, "request.invalid", "validation failed", meta)
		return
	}

	placeReq := service.PlaceOrderRequest{
		UserID: *req.UserID,
		Total:  *req.Total,
	}
	for _, item := range req.Items {
		placeReq.Items = append(placeReq.Items, service.PlaceOrderItem{
			ProductID: *item.ProductID,
			Quantity:  *item.Quantity,
		})
	}

	orderID, err := h.svc.PlaceOrder(r.Context(), placeReq)
	if err != nil {
		handleErr(w, err)
		return
	}

	response.Data(w, http.StatusCreated, map[string]string{
		"order_id": orderID,
		"message":  "Order placed successfully!",
	})
}

func validateCreateOrder(req createOrderRequest) map[string]string {
	meta := map[string]string{}
	if req.UserID == nil || *req.UserID <= 0 {
		meta["user_id"] = "required integer"
	}
	if req.Total == nil || *req.Total < 0 {
		meta["total"] = "required numeric >= 0"
	}
	if len(req.Items) == 0 {
		meta["items"] = "required array with at least one item"
	}
	for _, item := range req.Items {
		if item.ProductID == nil {
			meta["items.product_id"] = "required integer"
		}
		if item.Quantity == nil || *item.Quantity < 1 {
			meta["items.quantity"] = "required integer >= 1"
		}
	}
	return meta
}

func handleErr(w http.ResponseWriter, err error) {
	switch {
	case appErrors.CodeOf(err) == appErrors.ErrCodeInvalidInput:
		response.Fail(w, http.StatusUnprocessableEntity, "request.invalid", err.Error(), nil)
	case errors.Is(err, domain.ErrProductNotFound):
		response.Fail(w, http.StatusUnprocessableEntity, "product.unknown", "unknown product in items", nil)
	default:
		log := logger.WithComponent("rest")
		log.Error().Err(err).Msg("order placement failed")
		response.Fail(w, http.StatusInternalServerError, "order.failed", "Failed to place order.", nil)
	}
}
