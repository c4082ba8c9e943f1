package request

import "time"

type ChangeStatusRequest struct {
	// Raw status value; producer vocabulary is accepted and normalized at
	// the handler boundary.
	Status           string     `json:"status" binding:"required"`
	EstimatedReadyAt *time.Time `json:"estimated_ready_at,omitempty"`
}

type VerifyPaymentRequest struct {
	VerifiedBy    string `json:"verified_by" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}
