package order

import (
	"strings"

	"cafesync/internal/pkg/errs"
)

var ErrUnknownStatus = errs.New("unknown status")

// statusAliases maps the raw vocabulary still emitted by upstream producers
// onto canonical states. "processing" is the legacy synonym for preparing.
var statusAliases = map[string]Status{
	"processing":  StatusPreparing,
	"in_progress": StatusPreparing,
	"new":         StatusPending,
	"awaiting_verification": StatusPendingVerification,
	"done":     StatusCompleted,
	"canceled": StatusCancelled,
}

// NormalizeStatus rewrites producer vocabulary into a canonical state. It is
// idempotent: a canonical state passes through unchanged. It never validates
// reachability: replayed or historical notifications may legitimately carry
// any state, and transition legality belongs to the dispatcher and the
// server commands.
func NormalizeStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s.IsValid() {
		return s, nil
	}
	if canonical, ok := statusAliases[string(s)]; ok {
		return canonical, nil
	}
	return "", errs.Mark(errs.New("status "+raw), ErrUnknownStatus)
}

// NormalizePaymentStatus does the same for payment vocabulary.
func NormalizePaymentStatus(raw string) (PaymentStatus, error) {
	s := PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s.IsValid() {
		return s, nil
	}
	switch string(s) {
	case "unpaid":
		return PaymentPending, nil
	case "awaiting_verification":
		return PaymentPendingVerification, nil
	case "verified", "success":
		return PaymentPaid, nil
	}
	return "", errs.Mark(errs.New("payment status "+raw), ErrUnknownStatus)
}
