//go:build unit

package order_test

import (
	"testing"

	"cafesync/internal/domain/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want order.Status
		err  error
	}{
		{"legacy processing", "processing", order.StatusPreparing, nil},
		{"in_progress synonym", "in_progress", order.StatusPreparing, nil},
		{"new synonym", "new", order.StatusPending, nil},
		{"awaiting_verification synonym", "awaiting_verification", order.StatusPendingVerification, nil},
		{"done synonym", "done", order.StatusCompleted, nil},
		{"single l spelling", "canceled", order.StatusCancelled, nil},
		{"canonical passes through", "preparing", order.StatusPreparing, nil},
		{"pending_verification stays distinct", "pending_verification", order.StatusPendingVerification, nil},
		{"confirmed stays distinct", "confirmed", order.StatusConfirmed, nil},
		{"mixed case and whitespace", "  Processing ", order.StatusPreparing, nil},
		{"unknown vocabulary", "shipped", "", order.ErrUnknownStatus},
		{"empty", "", "", order.ErrUnknownStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := order.NormalizeStatus(tc.raw)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeStatusIdempotent(t *testing.T) {
	for _, raw := range []string{"processing", "new", "done", "pending", "confirmed", "ready"} {
		once, err := order.NormalizeStatus(raw)
		require.NoError(t, err)
		twice, err := order.NormalizeStatus(once.String())
		require.NoError(t, err)
		assert.Equal(t, once, twice, "normalizing %q twice diverged", raw)
	}
}

func TestNormalizePaymentStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want order.PaymentStatus
	}{
		{"unpaid", order.PaymentPending},
		{"awaiting_verification", order.PaymentPendingVerification},
		{"verified", order.PaymentPaid},
		{"success", order.PaymentPaid},
		{"paid", order.PaymentPaid},
		{"failed", order.PaymentFailed},
	}
	for _, tc := range cases {
		got, err := order.NormalizePaymentStatus(tc.raw)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := order.NormalizePaymentStatus("refunded")
	assert.ErrorIs(t, err, order.ErrUnknownStatus)
}
