package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/payment"
	"github.com/noah-isme/backend-pasar/internal/store"
)

// fakeStore models a single order whose status may shift between the advisory
// read and the transactional one, the way a concurrent cancel or webhook would.
type fakeStore struct {
	order       store.Order
	items       []store.OrderItem
	products    map[[16]byte]store.Product
	reads       int
	laterStatus store.OrderStatus

	statusUpdates []store.UpdateOrderStatusParams
	restocks      []store.RestockProductParams
	movements     []store.InsertInventoryMovementParams
	pointsEntries []store.InsertPointsEntryParams
	events        []store.InsertDomainEventParams
}

func (f *fakeStore) RunSerializable(_ context.Context, fn func(q store.Querier) error) error {
	return fn(f)
}

func (f *fakeStore) GetOrderByID(_ context.Context, id pgtype.UUID) (store.Order, error) {
	f.reads++
	if !store.UUIDEqual(f.order.ID, id) {
		return store.Order{}, pgx.ErrNoRows
	}
	o := f.order
	if f.reads > 1 && f.laterStatus != "" {
		o.Status = f.laterStatus
	}
	return o, nil
}

func (f *fakeStore) ListOrderItems(_ context.Context, _ pgtype.UUID) ([]store.OrderItem, error) {
	return f.items, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, arg store.UpdateOrderStatusParams) error {
	f.statusUpdates = append(f.statusUpdates, arg)
	return nil
}

func (f *fakeStore) GetProductsByIDs(_ context.Context, ids []pgtype.UUID) ([]store.Product, error) {
	var out []store.Product
	for _, id := range ids {
		if p, ok := f.products[id.Bytes]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) RestockProduct(_ context.Context, arg store.RestockProductParams) error {
	f.restocks = append(f.restocks, arg)
	return nil
}

func (f *fakeStore) InsertInventoryMovement(_ context.Context, arg store.InsertInventoryMovementParams) error {
	f.movements = append(f.movements, arg)
	return nil
}

func (f *fakeStore) InsertPointsEntry(_ context.Context, arg store.InsertPointsEntryParams) error {
	f.pointsEntries = append(f.pointsEntries, arg)
	return nil
}

func (f *fakeStore) InsertDomainEvent(_ context.Context, arg store.InsertDomainEventParams) (store.DomainEvent, error) {
	f.events = append(f.events, arg)
	return store.DomainEvent{
		ID:          store.NewUUID(),
		Topic:       arg.Topic,
		AggregateID: arg.AggregateID,
		Payload:     arg.Payload,
	}, nil
}

func (f *fakeStore) DecrementProductStock(_ context.Context, _ store.DecrementProductStockParams) error {
	return nil
}

func (f *fakeStore) GetCouponByCode(_ context.Context, _ string) (store.Coupon, error) {
	return store.Coupon{}, pgx.ErrNoRows
}

func (f *fakeStore) IncrementCouponUsedCount(_ context.Context, _ pgtype.UUID) error { return nil }

func (f *fakeStore) GetCouponUsageByOrder(_ context.Context, _ store.GetCouponUsageByOrderParams) (store.CouponUsageRef, error) {
	return store.CouponUsageRef{}, pgx.ErrNoRows
}

func (f *fakeStore) InsertCouponUsage(_ context.Context, _ store.InsertCouponUsageParams) error {
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, _ store.CreateOrderParams) (store.Order, error) {
	return store.Order{}, nil
}

func (f *fakeStore) InsertOrderItem(_ context.Context, _ store.InsertOrderItemParams) error {
	return nil
}

func (f *fakeStore) ListOrdersByUser(_ context.Context, _ store.ListOrdersByUserParams) ([]store.Order, error) {
	return nil, nil
}

func (f *fakeStore) SetOrderProviderPaymentID(_ context.Context, _ store.SetOrderProviderPaymentIDParams) error {
	return nil
}

func (f *fakeStore) SumPointsLedger(_ context.Context, _ pgtype.UUID) (int64, error)   { return 0, nil }
func (f *fakeStore) SumReservedPoints(_ context.Context, _ pgtype.UUID) (int64, error) { return 0, nil }

func (f *fakeStore) GetAddressByID(_ context.Context, _ pgtype.UUID) (store.Address, error) {
	return store.Address{}, pgx.ErrNoRows
}

func (f *fakeStore) GetPlanByUser(_ context.Context, _ pgtype.UUID) (store.Plan, error) {
	return store.Plan{}, pgx.ErrNoRows
}

func (f *fakeStore) GetUserEmail(_ context.Context, _ pgtype.UUID) (string, error) {
	return "buyer@example.com", nil
}

var _ payment.TxStore = (*fakeStore)(nil)

type stubProvider struct {
	result payment.WebhookVerifyResult
}

func (stubProvider) CreateSession(_ context.Context, _ payment.SessionRequest) (payment.SessionResponse, error) {
	return payment.SessionResponse{}, nil
}

func (s stubProvider) VerifyWebhook(_ *http.Request, _ []byte) (payment.WebhookVerifyResult, error) {
	return s.result, nil
}

func newWebhook(f *fakeStore, result payment.WebhookVerifyResult) payment.Webhook {
	return payment.Webhook{
		Store:     f,
		Providers: map[string]payment.Provider{"midtrans": stubProvider{result: result}},
		Events:    &events.Bus{Store: f},
	}
}

func webhookRequest(provider string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment/"+provider, strings.NewReader("{}"))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("provider", provider)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func mixedOrder() store.Order {
	return store.Order{
		ID:            store.NewUUID(),
		UserID:        store.NewUUID(),
		Status:        store.OrderStatusCreated,
		TotalCents:    10000,
		DiscountCents: 1000,
		PointsSpent:   10,
		PaidWith:      store.PaidWithMixed,
		Currency:      "EUR",
	}
}

func TestWebhookConfirmsMixedOrder(t *testing.T) {
	f := &fakeStore{order: mixedOrder(), products: map[[16]byte]store.Product{}}
	wh := newWebhook(f, payment.WebhookVerifyResult{
		Valid:       true,
		OrderID:     store.UUIDString(f.order.ID),
		AmountCents: 8000,
		Status:      payment.StatusPaid,
	})

	rec := httptest.NewRecorder()
	wh.Handle(rec, webhookRequest("midtrans"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.statusUpdates, 1)
	require.Equal(t, store.OrderStatusPaid, f.statusUpdates[0].Status)
	require.Len(t, f.pointsEntries, 1)
	require.Equal(t, int64(-10), f.pointsEntries[0].Delta)
	require.Equal(t, store.PointsReasonSpend, f.pointsEntries[0].Reason)
	require.Len(t, f.events, 1)
	require.Equal(t, events.TopicOrderPaid, f.events[0].Topic)
}

func TestWebhookLeavesCanceledOrderAlone(t *testing.T) {
	f := &fakeStore{order: mixedOrder(), products: map[[16]byte]store.Product{}}
	f.order.Status = store.OrderStatusCanceled
	wh := newWebhook(f, payment.WebhookVerifyResult{
		Valid:   true,
		OrderID: store.UUIDString(f.order.ID),
		Status:  payment.StatusPaid,
	})

	rec := httptest.NewRecorder()
	wh.Handle(rec, webhookRequest("midtrans"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "CANCELED")
	require.Empty(t, f.statusUpdates)
	require.Empty(t, f.pointsEntries)
	require.Empty(t, f.events)
}

func TestWebhookReleaseSkipsConcurrentlyPaidOrder(t *testing.T) {
	f := &fakeStore{order: mixedOrder(), products: map[[16]byte]store.Product{}}
	// a paid webhook lands between the lookup and the transaction
	f.laterStatus = store.OrderStatusPaid
	wh := newWebhook(f, payment.WebhookVerifyResult{
		Valid:   true,
		OrderID: store.UUIDString(f.order.ID),
		Status:  payment.StatusFailed,
	})

	rec := httptest.NewRecorder()
	wh.Handle(rec, webhookRequest("midtrans"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "PAID")
	require.Empty(t, f.statusUpdates)
	require.Empty(t, f.restocks)
	require.Empty(t, f.movements)
	require.Empty(t, f.events)
}

func TestWebhookCancelsExpiredOrder(t *testing.T) {
	f := &fakeStore{order: mixedOrder(), products: map[[16]byte]store.Product{}}
	f.order.PaidWith = store.PaidWithMoney
	f.order.PointsSpent = 0
	pid := store.NewUUID()
	f.products[pid.Bytes] = store.Product{ID: pid, TrackInventory: true, StockQty: 5}
	f.items = []store.OrderItem{{OrderID: f.order.ID, ProductID: pid, Qty: 2, UnitPriceCents: 5000}}
	wh := newWebhook(f, payment.WebhookVerifyResult{
		Valid:   true,
		OrderID: store.UUIDString(f.order.ID),
		Status:  payment.StatusExpired,
	})

	rec := httptest.NewRecorder()
	wh.Handle(rec, webhookRequest("midtrans"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.statusUpdates, 1)
	require.Equal(t, store.OrderStatusCanceled, f.statusUpdates[0].Status)
	require.Len(t, f.restocks, 1)
	require.Equal(t, int32(2), f.restocks[0].Qty)
	require.Len(t, f.movements, 1)
	require.Equal(t, int32(2), f.movements[0].Delta)
	require.Equal(t, store.InventoryMovementCancel, f.movements[0].Type)
	// reserved points are freed by the status change alone
	require.Empty(t, f.pointsEntries)
	require.Len(t, f.events, 1)
	require.Equal(t, events.TopicOrderCanceled, f.events[0].Topic)
}

func TestWebhookDuplicatePaidNotification(t *testing.T) {
	f := &fakeStore{order: mixedOrder(), products: map[[16]byte]store.Product{}}
	f.order.Status = store.OrderStatusPaid
	wh := newWebhook(f, payment.WebhookVerifyResult{
		Valid:   true,
		OrderID: store.UUIDString(f.order.ID),
		Status:  payment.StatusPaid,
	})

	rec := httptest.NewRecorder()
	wh.Handle(rec, webhookRequest("midtrans"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, f.reads)
	require.Empty(t, f.statusUpdates)
	require.Empty(t, f.pointsEntries)
}

func TestWebhookRejectsAmountMismatch(t *testing.T) {
	f := &fakeStore{order: mixedOrder(), products: map[[16]byte]store.Product{}}
	wh := newWebhook(f, payment.WebhookVerifyResult{
		Valid:       true,
		OrderID:     store.UUIDString(f.order.ID),
		AmountCents: 7999,
		Status:      payment.StatusPaid,
	})

	rec := httptest.NewRecorder()
	wh.Handle(rec, webhookRequest("midtrans"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "AMOUNT_MISMATCH")
	require.Empty(t, f.statusUpdates)
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	f := &fakeStore{order: mixedOrder(), products: map[[16]byte]store.Product{}}
	wh := newWebhook(f, payment.WebhookVerifyResult{Valid: false})

	rec := httptest.NewRecorder()
	wh.Handle(rec, webhookRequest("midtrans"))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_SIGNATURE")
}

func TestWebhookUnknownProvider(t *testing.T) {
	f := &fakeStore{order: mixedOrder(), products: map[[16]byte]store.Product{}}
	wh := newWebhook(f, payment.WebhookVerifyResult{Valid: true})

	rec := httptest.NewRecorder()
	wh.Handle(rec, webhookRequest("stripe"))

	require.Equal(t, http.StatusNotFound, rec.Code)
}
