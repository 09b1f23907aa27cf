package payment

import (
	"context"
	"net/http"
)

// SessionItem mirrors one order-item snapshot onto the provider session.
type SessionItem struct {
	ProductID  string
	Qty        int32
	PriceCents int64
}

// SessionRequest captures the information required to open a payment session
// with a provider for the remainder owed on an order.
type SessionRequest struct {
	OrderID         string
	AmountCents     int64
	Currency        string
	Items           []SessionItem
	ExpiresAtSec    int
	CallbackBaseURL string
}

// SessionResponse represents the minimal information returned by a provider
// when creating a session.
type SessionResponse struct {
	Provider    string
	SessionID   string
	RedirectURL string
	ExpiresAt   int64
}

// WebhookVerifyResult contains normalised data extracted from a webhook
// notification after signature verification.
type WebhookVerifyResult struct {
	Valid           bool
	OrderID         string
	AmountCents     int64
	Status          string
	ProviderPayload []byte
	Err             error
}

// Provider abstracts the operations required from an upstream payment provider.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error)
	VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error)
}
