package payment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-pasar/internal/obs"
	"github.com/noah-isme/backend-pasar/internal/pricing"
	"github.com/noah-isme/backend-pasar/internal/store"
)

// Normalised provider statuses.
const (
	StatusPaid     = "PAID"
	StatusPending  = "PENDING"
	StatusFailed   = "FAILED"
	StatusExpired  = "EXPIRED"
	StatusRefunded = "REFUNDED"
)

// Querier captures the database methods required by the session service.
type Querier interface {
	SetOrderProviderPaymentID(ctx context.Context, arg store.SetOrderProviderPaymentIDParams) error
}

// Service creates external payment sessions for the remainder owed on an
// order. It is invoked only after the settlement transaction has committed:
// a session failure leaves the order in CREATED state for reconciliation and
// must never roll the order back.
type Service struct {
	Q               Querier
	Provider        Provider
	SessionTTL      time.Duration
	CallbackBaseURL string
	DefaultCurrency string
}

// CreateSession opens a provider session for exactly the remainder owed and
// attaches the session identifier to the order.
func (s *Service) CreateSession(ctx context.Context, order store.Order, items []store.OrderItem) (SessionResponse, error) {
	if s == nil || s.Q == nil || s.Provider == nil {
		return SessionResponse{}, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.CreateSession")
	defer span.End()

	result := "error"
	providerName := "unknown"
	defer func() {
		span.SetAttributes(
			attribute.String("payment.provider", providerName),
			attribute.String("payment.session.result", result),
		)
		if obs.PaymentSessionTotal != nil {
			obs.PaymentSessionTotal.WithLabelValues(providerName, result).Inc()
		}
	}()

	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	remainder := pricing.Remaining(order.TotalCents, order.DiscountCents, order.PointsSpent)
	if remainder <= 0 {
		return SessionResponse{}, errors.New("order has no remainder to collect")
	}

	currency := order.Currency
	if currency == "" {
		currency = s.DefaultCurrency
	}
	req := SessionRequest{
		OrderID:         store.UUIDString(order.ID),
		AmountCents:     remainder,
		Currency:        currency,
		ExpiresAtSec:    int(ttl.Seconds()),
		CallbackBaseURL: s.CallbackBaseURL,
	}
	for _, it := range items {
		req.Items = append(req.Items, SessionItem{
			ProductID:  store.UUIDString(it.ProductID),
			Qty:        it.Qty,
			PriceCents: it.UnitPriceCents,
		})
	}

	resp, err := s.Provider.CreateSession(ctx, req)
	if err != nil {
		span.RecordError(err)
		return SessionResponse{}, err
	}
	providerName = resp.Provider
	if providerName == "" {
		providerName = "unknown"
	}

	if err := s.Q.SetOrderProviderPaymentID(ctx, store.SetOrderProviderPaymentIDParams{
		ID:                order.ID,
		ProviderPaymentID: pgtype.Text{String: resp.SessionID, Valid: resp.SessionID != ""},
	}); err != nil {
		return SessionResponse{}, err
	}
	result = "success"
	return resp, nil
}
