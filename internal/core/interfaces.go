// Package core defines the core interfaces and types for the model router.
package core

import "context"

// Adapter executes one normalized call against an external inference API.
type Adapter interface {
	// Name returns the route name the adapter serves (e.g. "groq", "direct")
	Name() string

	// Call translates input into the provider's wire format and returns the raw response.
	// Non-2xx responses are returned as *GatewayError carrying provider, model, status and body.
	Call(ctx context.Context, model *ModelDescriptor, input *CallInput) (*CallResult, error)
}

// CreditBalance is the result of a credit-balance lookup.
type CreditBalance struct {
	Available bool    `json:"available"`
	Balance   float64 `json:"balance"`
	Reason    string  `json:"reason,omitempty"`
}

// CreditChecker reports the remaining balance of the credit-backed account.
type CreditChecker interface {
	CreditBalance(ctx context.Context) (CreditBalance, error)
}
