package order

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/store"
)

// Handler exposes the authenticated order endpoints.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

type orderView struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	TotalCents        int64      `json:"totalCents"`
	DiscountCents     int64      `json:"discountCents"`
	Currency          string     `json:"currency"`
	PaidWith          string     `json:"paidWith"`
	PointsSpent       int64      `json:"pointsSpent"`
	ShippingAddressID string     `json:"shippingAddressId,omitempty"`
	Items             []itemView `json:"items,omitempty"`
}

type itemView struct {
	ProductID      string `json:"productId"`
	Qty            int32  `json:"qty"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	UnitPoints     int32  `json:"unitPoints,omitempty"`
}

func toView(o store.Order, items []store.OrderItem) orderView {
	v := orderView{
		ID:                store.UUIDString(o.ID),
		Status:            string(o.Status),
		TotalCents:        o.TotalCents,
		DiscountCents:     o.DiscountCents,
		Currency:          o.Currency,
		PaidWith:          string(o.PaidWith),
		PointsSpent:       o.PointsSpent,
		ShippingAddressID: store.UUIDString(o.ShippingAddressID),
	}
	for _, it := range items {
		iv := itemView{
			ProductID:      store.UUIDString(it.ProductID),
			Qty:            it.Qty,
			UnitPriceCents: it.UnitPriceCents,
		}
		if it.UnitPoints.Valid {
			iv.UnitPoints = it.UnitPoints.Int32
		}
		v.Items = append(v.Items, iv)
	}
	return v
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)
	orders, err := h.Svc.List(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toView(o, nil))
	}
	common.JSON(w, http.StatusOK, map[string]any{"orders": views})
}

// Get handles GET /api/v1/orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	o, items, err := h.Svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toView(o, items))
}

// Cancel handles POST /api/v1/orders/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	o, err := h.Svc.Cancel(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toView(o, nil))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if !common.IsAppError(err) {
		h.Log.Error().Err(err).Msg("order request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "request failed", nil)
		return
	}
	common.WriteError(w, err)
}

func queryInt(r *http.Request, key string, fallback int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return int32(n)
}
