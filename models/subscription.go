package models

import "time"

// SubscriptionStatus is the payment provider's view of a user's entitlement.
type SubscriptionStatus struct {
	Subscribed      bool       `json:"subscribed"`
	Role            Role       `json:"role"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
}

// Plan describes a purchasable tier for the pricing page.
type Plan struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DailyCases  int    `json:"daily_cases"` // -1 means unlimited
}
