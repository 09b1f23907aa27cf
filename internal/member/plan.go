package member

import "github.com/noah-isme/backend-pasar/internal/store"

// CanRedeemPoints reports whether the plan's policy permits spending points.
func CanRedeemPoints(p store.Plan) bool {
	return p.PointsPolicy == store.PointsPolicyRedeem
}

// IsPremium reports whether the plan unlocks premium-only products.
func IsPremium(p store.Plan, premiumCode string) bool {
	if p.Premium {
		return true
	}
	return premiumCode != "" && p.Code == premiumCode
}
