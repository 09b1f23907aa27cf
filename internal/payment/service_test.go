package payment_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pasar/internal/payment"
	"github.com/noah-isme/backend-pasar/internal/store"
)

type stubOrderWriter struct {
	saved []store.SetOrderProviderPaymentIDParams
}

func (s *stubOrderWriter) SetOrderProviderPaymentID(_ context.Context, arg store.SetOrderProviderPaymentIDParams) error {
	s.saved = append(s.saved, arg)
	return nil
}

func TestCreateSessionCollectsRemainderOnly(t *testing.T) {
	q := &stubOrderWriter{}
	svc := &payment.Service{Q: q, Provider: payment.Midtrans{Sandbox: true}}

	order := store.Order{
		ID:            store.NewUUID(),
		Status:        store.OrderStatusCreated,
		TotalCents:    10000,
		DiscountCents: 1000,
		PointsSpent:   10,
		Currency:      "EUR",
	}
	res, err := svc.CreateSession(context.Background(), order, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.RedirectURL)
	require.Len(t, q.saved, 1)
	require.Equal(t, order.ID, q.saved[0].ID)
	require.True(t, q.saved[0].ProviderPaymentID.Valid)
}

type captureProvider struct {
	requests []payment.SessionRequest
}

func (c *captureProvider) CreateSession(_ context.Context, req payment.SessionRequest) (payment.SessionResponse, error) {
	c.requests = append(c.requests, req)
	return payment.SessionResponse{Provider: "capture", SessionID: "s-1"}, nil
}

func (c *captureProvider) VerifyWebhook(_ *http.Request, _ []byte) (payment.WebhookVerifyResult, error) {
	return payment.WebhookVerifyResult{}, nil
}

func TestCreateSessionDefaultsCurrency(t *testing.T) {
	provider := &captureProvider{}
	svc := &payment.Service{Q: &stubOrderWriter{}, Provider: provider, DefaultCurrency: "EUR"}

	_, err := svc.CreateSession(context.Background(), store.Order{
		ID:         store.NewUUID(),
		Status:     store.OrderStatusCreated,
		TotalCents: 500,
	}, nil)
	require.NoError(t, err)
	require.Len(t, provider.requests, 1)
	require.Equal(t, "EUR", provider.requests[0].Currency)

	_, err = svc.CreateSession(context.Background(), store.Order{
		ID:         store.NewUUID(),
		Status:     store.OrderStatusCreated,
		TotalCents: 500,
		Currency:   "IDR",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "IDR", provider.requests[1].Currency)
}

func TestCreateSessionRefusesSettledOrder(t *testing.T) {
	svc := &payment.Service{Q: &stubOrderWriter{}, Provider: payment.Midtrans{}}
	order := store.Order{
		ID:          store.NewUUID(),
		TotalCents:  1000,
		PointsSpent: 10,
	}
	_, err := svc.CreateSession(context.Background(), order, nil)
	require.Error(t, err)
}
