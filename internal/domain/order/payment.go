package order

import "time"

type PaymentStatus string

const (
	PaymentPending             PaymentStatus = "pending"
	PaymentPendingVerification PaymentStatus = "pending_verification"
	PaymentPaid                PaymentStatus = "paid"
	PaymentFailed              PaymentStatus = "failed"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPendingVerification, PaymentPaid, PaymentFailed:
		return true
	default:
		return false
	}
}

// Settled payments are immutable.
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentPaid || s == PaymentFailed
}

type PaymentMethod string

const (
	MethodCash  PaymentMethod = "cash"
	MethodQRIS  PaymentMethod = "qris"
	MethodGoPay PaymentMethod = "gopay"
	MethodOVO   PaymentMethod = "ovo"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodQRIS, MethodGoPay, MethodOVO:
		return true
	default:
		return false
	}
}

// Payment is tied 1:1 to an order. Reference points at the proof uploaded by
// the customer (receipt photo, e-wallet transaction id).
type Payment struct {
	OrderID    string        `json:"order_id"`
	Method     PaymentMethod `json:"method"`
	Status     PaymentStatus `json:"status"`
	Reference  string        `json:"reference,omitempty"`
	VerifiedBy string        `json:"verified_by,omitempty"`
	VerifiedAt *time.Time    `json:"verified_at,omitempty"`
}
