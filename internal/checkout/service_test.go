package checkout_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pasar/internal/checkout"
	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/coupon"
	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/payment"
	"github.com/noah-isme/backend-pasar/internal/store"
)

type fakeStore struct {
	products   map[[16]byte]store.Product
	plan       store.Plan
	planErr    error
	address    store.Address
	addressErr error
	coupons    map[string]store.Coupon

	ledgerSum   int64
	reservedSum int64

	txErr error

	orders        []store.Order
	items         []store.InsertOrderItemParams
	decrements    []store.DecrementProductStockParams
	movements     []store.InsertInventoryMovementParams
	pointsEntries []store.InsertPointsEntryParams
	couponUsages  []store.InsertCouponUsageParams
	increments    int
	events        []store.InsertDomainEventParams
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[[16]byte]store.Product{},
		coupons:  map[string]store.Coupon{},
		plan:     store.Plan{Code: "free", PointsPolicy: store.PointsPolicyEarn},
	}
}

func (f *fakeStore) RunSerializable(ctx context.Context, fn func(q store.Querier) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(f)
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

func (f *fakeStore) DecrementProductStock(_ context.Context, arg store.DecrementProductStockParams) error {
	f.decrements = append(f.decrements, arg)
	return nil
}

func (f *fakeStore) RestockProduct(_ context.Context, _ store.RestockProductParams) error {
	return nil
}

func (f *fakeStore) InsertInventoryMovement(_ context.Context, arg store.InsertInventoryMovementParams) error {
	f.movements = append(f.movements, arg)
	return nil
}

func (f *fakeStore) GetCouponByCode(_ context.Context, code string) (store.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return store.Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeStore) IncrementCouponUsedCount(_ context.Context, _ pgtype.UUID) error {
	f.increments++
	return nil
}

func (f *fakeStore) GetCouponUsageByOrder(_ context.Context, _ store.GetCouponUsageByOrderParams) (store.CouponUsageRef, error) {
	return store.CouponUsageRef{}, pgx.ErrNoRows
}

func (f *fakeStore) InsertCouponUsage(_ context.Context, arg store.InsertCouponUsageParams) error {
	f.couponUsages = append(f.couponUsages, arg)
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, arg store.CreateOrderParams) (store.Order, error) {
	o := store.Order{
		ID:                store.NewUUID(),
		UserID:            arg.UserID,
		Status:            arg.Status,
		TotalCents:        arg.TotalCents,
		DiscountCents:     arg.DiscountCents,
		CouponID:          arg.CouponID,
		Currency:          arg.Currency,
		PaidWith:          arg.PaidWith,
		PointsSpent:       arg.PointsSpent,
		ShippingAddressID: arg.ShippingAddressID,
	}
	f.orders = append(f.orders, o)
	return o, nil
}

func (f *fakeStore) InsertOrderItem(_ context.Context, arg store.InsertOrderItemParams) error {
	f.items = append(f.items, arg)
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, _ pgtype.UUID) (store.Order, error) {
	return store.Order{}, pgx.ErrNoRows
}

func (f *fakeStore) ListOrdersByUser(_ context.Context, _ store.ListOrdersByUserParams) ([]store.Order, error) {
	return nil, nil
}

func (f *fakeStore) ListOrderItems(_ context.Context, _ pgtype.UUID) ([]store.OrderItem, error) {
	return nil, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, _ store.UpdateOrderStatusParams) error {
	return nil
}

func (f *fakeStore) SetOrderProviderPaymentID(_ context.Context, _ store.SetOrderProviderPaymentIDParams) error {
	return nil
}

func (f *fakeStore) SumPointsLedger(_ context.Context, _ pgtype.UUID) (int64, error) {
	return f.ledgerSum, nil
}

func (f *fakeStore) SumReservedPoints(_ context.Context, _ pgtype.UUID) (int64, error) {
	return f.reservedSum, nil
}

func (f *fakeStore) InsertPointsEntry(_ context.Context, arg store.InsertPointsEntryParams) error {
	f.pointsEntries = append(f.pointsEntries, arg)
	return nil
}

func (f *fakeStore) GetAddressByID(_ context.Context, _ pgtype.UUID) (store.Address, error) {
	if f.addressErr != nil {
		return store.Address{}, f.addressErr
	}
	return f.address, nil
}

func (f *fakeStore) GetPlanByUser(_ context.Context, _ pgtype.UUID) (store.Plan, error) {
	if f.planErr != nil {
		return store.Plan{}, f.planErr
	}
	return f.plan, nil
}

func (f *fakeStore) GetUserEmail(_ context.Context, _ pgtype.UUID) (string, error) {
	return "buyer@example.com", nil
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

var _ checkout.Store = (*fakeStore)(nil)

type fakeSessions struct {
	calls []store.Order
	err   error
}

func (f *fakeSessions) CreateSession(_ context.Context, order store.Order, _ []store.OrderItem) (payment.SessionResponse, error) {
	f.calls = append(f.calls, order)
	if f.err != nil {
		return payment.SessionResponse{}, f.err
	}
	return payment.SessionResponse{
		Provider:    "midtrans",
		SessionID:   "sess-1",
		RedirectURL: "https://pay.example/" + store.UUIDString(order.ID),
	}, nil
}

func newService(f *fakeStore, sessions *fakeSessions) *checkout.Service {
	return &checkout.Service{
		Store:           f,
		Coupons:         &coupon.Service{Q: f},
		Payments:        sessions,
		Events:          &events.Bus{Store: f},
		Log:             zerolog.Nop(),
		PremiumPlanCode: "premium",
	}
}

func addProduct(f *fakeStore, priceCents int64, opts ...func(*store.Product)) uuid.UUID {
	id := uuid.New()
	p := store.Product{
		ID:         pgtype.UUID{Bytes: id, Valid: true},
		Title:      "widget",
		PriceCents: priceCents,
		Currency:   "EUR",
		Status:     store.ProductStatusApproved,
	}
	for _, opt := range opts {
		opt(&p)
	}
	f.products[id] = p
	return id
}

func line(id uuid.UUID, qty int) checkout.ItemInput {
	return checkout.ItemInput{ProductID: id.String(), Qty: qty}
}

func TestSettleMoneyOnly(t *testing.T) {
	f := newFakeStore()
	sessions := &fakeSessions{}
	svc := newService(f, sessions)
	pid := addProduct(f, 2500, func(p *store.Product) {
		p.TrackInventory = true
		p.StockQty = 10
	})
	userID := uuid.New().String()

	out, err := svc.Settle(context.Background(), userID, checkout.Input{
		Items: []checkout.ItemInput{line(pid, 2)},
	})
	require.NoError(t, err)
	require.Equal(t, "CREATED", out.Status)
	require.Zero(t, out.PointsSpent)
	require.NotEmpty(t, out.URL)

	require.Len(t, f.orders, 1)
	o := f.orders[0]
	require.Equal(t, int64(5000), o.TotalCents)
	require.Equal(t, store.PaidWithMoney, o.PaidWith)
	require.Len(t, f.items, 1)
	require.Len(t, f.decrements, 1)
	require.Equal(t, int32(2), f.decrements[0].Qty)
	require.Len(t, f.movements, 1)
	require.Equal(t, int32(-2), f.movements[0].Delta)
	require.Empty(t, f.pointsEntries)
	require.Len(t, sessions.calls, 1)
}

func TestSettleCouponAndPartialPoints(t *testing.T) {
	f := newFakeStore()
	f.plan = store.Plan{Code: "plus", PointsPolicy: store.PointsPolicyRedeem}
	f.ledgerSum = 10
	sessions := &fakeSessions{}
	svc := newService(f, sessions)

	pid := addProduct(f, 10000, func(p *store.Product) {
		p.PointsEligible = true
		p.PointsPrice = pgtype.Int4{Int32: 50, Valid: true}
	})
	f.coupons["SPRING10"] = store.Coupon{
		ID:       store.NewUUID(),
		Code:     "SPRING10",
		IsActive: true,
		Type:     store.CouponTypePercentage,
		Value:    1000,
	}

	code := "spring10"
	out, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		UsePoints:  true,
		CouponCode: &code,
		Items:      []checkout.ItemInput{line(pid, 1)},
	})
	require.NoError(t, err)
	require.Equal(t, "CREATED", out.Status)
	require.Equal(t, int64(10), out.PointsSpent)
	require.NotEmpty(t, out.URL)

	o := f.orders[0]
	require.Equal(t, int64(10000), o.TotalCents)
	require.Equal(t, int64(1000), o.DiscountCents)
	require.Equal(t, store.PaidWithMixed, o.PaidWith)
	require.Equal(t, int64(10), o.PointsSpent)
	// points stay reserved until the provider confirms the remainder
	require.Empty(t, f.pointsEntries)
	require.Len(t, f.couponUsages, 1)
	require.Equal(t, 1, f.increments)
}

func TestSettleFullyCoveredByPoints(t *testing.T) {
	f := newFakeStore()
	f.plan = store.Plan{Code: "plus", PointsPolicy: store.PointsPolicyRedeem}
	f.ledgerSum = 100
	sessions := &fakeSessions{}
	svc := newService(f, sessions)

	pid := addProduct(f, 2000, func(p *store.Product) {
		p.PointsEligible = true
		p.PointsPrice = pgtype.Int4{Int32: 20, Valid: true}
	})

	out, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		UsePoints: true,
		Items:     []checkout.ItemInput{line(pid, 1)},
	})
	require.NoError(t, err)
	require.Equal(t, "PAID", out.Status)
	require.Equal(t, int64(20), out.PointsSpent)
	require.Empty(t, out.URL)

	o := f.orders[0]
	require.Equal(t, store.OrderStatusPaid, o.Status)
	require.Equal(t, store.PaidWithPoints, o.PaidWith)
	require.Len(t, f.pointsEntries, 1)
	require.Equal(t, int64(-20), f.pointsEntries[0].Delta)
	require.Equal(t, store.PointsReasonSpend, f.pointsEntries[0].Reason)
	// no session when nothing is owed
	require.Empty(t, sessions.calls)
}

func TestSettlePointsLimitedByBalance(t *testing.T) {
	f := newFakeStore()
	f.plan = store.Plan{Code: "plus", PointsPolicy: store.PointsPolicyRedeem}
	f.ledgerSum = 30
	f.reservedSum = 25
	svc := newService(f, &fakeSessions{})

	pid := addProduct(f, 2000, func(p *store.Product) {
		p.PointsEligible = true
		p.PointsPrice = pgtype.Int4{Int32: 20, Valid: true}
	})

	out, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		UsePoints: true,
		Items:     []checkout.ItemInput{line(pid, 1)},
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), out.PointsSpent)
	require.Equal(t, store.PaidWithMixed, f.orders[0].PaidWith)
}

func TestSettlePointsNotAllowedForPlan(t *testing.T) {
	f := newFakeStore()
	f.plan = store.Plan{Code: "free", PointsPolicy: store.PointsPolicyNone}
	svc := newService(f, &fakeSessions{})
	pid := addProduct(f, 1000)

	_, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		UsePoints: true,
		Items:     []checkout.ItemInput{line(pid, 1)},
	})
	code, ok := common.CodeOf(err)
	require.True(t, ok)
	require.Equal(t, "POINTS_NOT_ALLOWED", code)
	require.Empty(t, f.orders)
}

func TestSettleForeignAddressRejected(t *testing.T) {
	f := newFakeStore()
	f.address = store.Address{ID: store.NewUUID(), UserID: store.NewUUID()}
	svc := newService(f, &fakeSessions{})
	pid := addProduct(f, 1000)

	addr := store.UUIDString(f.address.ID)
	_, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		ShippingAddressID: &addr,
		Items:             []checkout.ItemInput{line(pid, 1)},
	})
	code, ok := common.CodeOf(err)
	require.True(t, ok)
	require.Equal(t, "INVALID_ADDRESS", code)
}

func TestSettleSerializationConflict(t *testing.T) {
	f := newFakeStore()
	f.txErr = &pgconn.PgError{Code: "40001"}
	svc := newService(f, &fakeSessions{})
	pid := addProduct(f, 1000)

	_, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		Items: []checkout.ItemInput{line(pid, 1)},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestSettleSessionFailureKeepsOrder(t *testing.T) {
	f := newFakeStore()
	sessions := &fakeSessions{err: context.DeadlineExceeded}
	svc := newService(f, sessions)
	pid := addProduct(f, 1000)

	out, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		Items: []checkout.ItemInput{line(pid, 1)},
	})
	require.NoError(t, err)
	require.Equal(t, "CREATED", out.Status)
	require.Empty(t, out.URL)
	require.Len(t, f.orders, 1)
}

func TestSettleEnforcesLineQtyLimit(t *testing.T) {
	f := newFakeStore()
	svc := newService(f, &fakeSessions{})
	pid := addProduct(f, 1000, func(p *store.Product) {
		p.TrackInventory = true
		p.StockQty = 100
	})

	// duplicate lines merge before the cap applies
	_, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		Items: []checkout.ItemInput{line(pid, 6), line(pid, 6)},
	})
	code, ok := common.CodeOf(err)
	require.True(t, ok)
	require.Equal(t, "INVALID_INPUT", code)
	require.Empty(t, f.orders)

	svc.MaxLineQty = 15
	out, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		Items: []checkout.ItemInput{line(pid, 12)},
	})
	require.NoError(t, err)
	require.Equal(t, "CREATED", out.Status)
}

func TestSettleUnknownProduct(t *testing.T) {
	f := newFakeStore()
	svc := newService(f, &fakeSessions{})

	_, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		Items: []checkout.ItemInput{line(uuid.New(), 1)},
	})
	code, ok := common.CodeOf(err)
	require.True(t, ok)
	require.Equal(t, "PRODUCT_NOT_FOUND", code)
}

func TestSettleEmitsEvents(t *testing.T) {
	f := newFakeStore()
	svc := newService(f, &fakeSessions{})
	pid := addProduct(f, 1000)

	_, err := svc.Settle(context.Background(), uuid.New().String(), checkout.Input{
		Items: []checkout.ItemInput{line(pid, 1)},
	})
	require.NoError(t, err)
	require.Len(t, f.events, 1)
	require.Equal(t, events.TopicOrderCreated, f.events[0].Topic)
}
