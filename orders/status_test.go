package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadkart/threadkart-backend-go/models"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "paid", "shipped", "delivered", "returned", "cancelled"} {
		status, err := ParseStatus(s)
		require.NoError(t, err, s)
		assert.Equal(t, models.OrderStatus(s), status)
	}

	// Aliases the admin UI historically sent.
	status, err := ParseStatus("processing")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, status)

	status, err = ParseStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, status)

	for _, s := range []string{"", "PAID", "refunded", "unknown"} {
		_, err := ParseStatus(s)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "%q must be rejected", s)
	}
}

func TestCancellable(t *testing.T) {
	assert.True(t, Cancellable(models.OrderStatusPending))
	assert.True(t, Cancellable(legacyStatusCODPending))
	assert.True(t, Cancellable(legacyStatusPendingVerification))

	assert.False(t, Cancellable(models.OrderStatusPaid))
	assert.False(t, Cancellable(models.OrderStatusShipped))
	assert.False(t, Cancellable(models.OrderStatusDelivered))
	assert.False(t, Cancellable(models.OrderStatusReturned))
	assert.False(t, Cancellable(models.OrderStatusCancelled))
}

func statusPtr(s models.OrderStatus) *models.OrderStatus   { return &s }
func returnPtr(s models.ReturnStatus) *models.ReturnStatus { return &s }

func TestBuildAdminPatchStampsDeliveredAtOnce(t *testing.T) {
	now := time.Now()
	order := &models.Order{Status: models.OrderStatusShipped}

	set, events, err := buildAdminPatch(order, AdminPatch{Status: statusPtr(models.OrderStatusDelivered)}, now, PermissiveTransitions)
	require.NoError(t, err)
	assert.Equal(t, now, set["deliveredAt"])
	assert.True(t, events.statusChanged)
	assert.Equal(t, models.OrderStatusDelivered, events.newStatus)

	// Re-applying delivered must keep the original stamp.
	stamped := now.Add(-48 * time.Hour)
	order = &models.Order{Status: models.OrderStatusDelivered, DeliveredAt: &stamped}
	set, events, err = buildAdminPatch(order, AdminPatch{Status: statusPtr(models.OrderStatusDelivered)}, now, PermissiveTransitions)
	require.NoError(t, err)
	_, present := set["deliveredAt"]
	assert.False(t, present)
	assert.False(t, events.statusChanged)
}

func TestBuildAdminPatchReturnApprovalIsAtomic(t *testing.T) {
	order := &models.Order{
		Status:       models.OrderStatusDelivered,
		ReturnStatus: models.ReturnStatusPending,
	}

	set, events, err := buildAdminPatch(order, AdminPatch{ReturnStatus: returnPtr(models.ReturnStatusApproved)}, time.Now(), PermissiveTransitions)
	require.NoError(t, err)

	// Both fields land in the same $set, so no intermediate state is
	// ever observable.
	assert.Equal(t, models.ReturnStatusApproved, set["returnStatus"])
	assert.Equal(t, models.OrderStatusReturned, set["status"])
	assert.True(t, events.returnApproved)
	assert.False(t, events.returnRejected)
}

func TestBuildAdminPatchRejectionLeavesStatus(t *testing.T) {
	order := &models.Order{
		Status:       models.OrderStatusDelivered,
		ReturnStatus: models.ReturnStatusPending,
	}

	set, events, err := buildAdminPatch(order, AdminPatch{ReturnStatus: returnPtr(models.ReturnStatusRejected)}, time.Now(), PermissiveTransitions)
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusRejected, set["returnStatus"])
	_, statusTouched := set["status"]
	assert.False(t, statusTouched)
	assert.True(t, events.returnRejected)
}

func TestBuildAdminPatchTrackingNumber(t *testing.T) {
	order := &models.Order{Status: models.OrderStatusPaid}

	set, _, err := buildAdminPatch(order, AdminPatch{
		Status:         statusPtr(models.OrderStatusShipped),
		TrackingNumber: "AWB-42",
	}, time.Now(), PermissiveTransitions)
	require.NoError(t, err)
	assert.Equal(t, "AWB-42", set["trackingNumber"])
	assert.Equal(t, models.OrderStatusShipped, set["status"])
}

func TestBuildAdminPatchHonorsTransitionPolicy(t *testing.T) {
	denied := errors.New("transition not allowed")
	strict := func(from, to models.OrderStatus) error {
		if from == models.OrderStatusDelivered && to == models.OrderStatusPending {
			return denied
		}
		return nil
	}

	order := &models.Order{Status: models.OrderStatusDelivered}
	_, _, err := buildAdminPatch(order, AdminPatch{Status: statusPtr(models.OrderStatusPending)}, time.Now(), strict)
	assert.ErrorIs(t, err, denied)

	// The default policy allows everything.
	_, _, err = buildAdminPatch(order, AdminPatch{Status: statusPtr(models.OrderStatusPending)}, time.Now(), PermissiveTransitions)
	assert.NoError(t, err)
}
