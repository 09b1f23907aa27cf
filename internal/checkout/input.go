package checkout

import (
	"sort"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pasar/internal/pricing"
)

// ItemInput is one client-supplied cart line.
type ItemInput struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"required,min=1"`
}

// Input is the settlement request body.
type Input struct {
	UsePoints         bool        `json:"usePoints"`
	ShippingAddressID *string     `json:"shippingAddressId" validate:"omitempty,uuid"`
	CouponCode        *string     `json:"couponCode" validate:"omitempty,max=30"`
	Items             []ItemInput `json:"items" validate:"required,min=1,dive"`
}

var validate = validator.New()

// Validate runs the structural validation rules over the input.
func (in Input) Validate() error {
	return validate.Struct(in)
}

// NormalizeLines merges duplicate product ids by summing quantities and drops
// lines whose merged quantity is zero. Order is made deterministic so order
// items and inventory movements are written in a stable sequence.
func NormalizeLines(items []ItemInput) ([]pricing.Line, error) {
	merged := make(map[uuid.UUID]int32, len(items))
	for _, it := range items {
		id, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, err
		}
		merged[id] += int32(it.Qty)
	}
	lines := make([]pricing.Line, 0, len(merged))
	for id, qty := range merged {
		if qty == 0 {
			continue
		}
		lines = append(lines, pricing.Line{ProductID: id, Qty: qty})
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ProductID.String() < lines[j].ProductID.String()
	})
	return lines, nil
}
