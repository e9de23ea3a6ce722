package models

import (
	"testing"
	"time"

	"replate/src/types"

	"github.com/stretchr/testify/assert"
)

func TestTerminal(t *testing.T) {
	for status, terminal := range map[types.BookingStatus]bool{
		types.BOOKING_PENDING:   false,
		types.BOOKING_APPROVED:  false,
		types.BOOKING_REJECTED:  true,
		types.BOOKING_COLLECTED: true,
		types.BOOKING_CANCELLED: true,
	} {
		b := Booking{Status: status}
		assert.Equalf(t, terminal, b.Terminal(), "status %s", status)
	}
}

func TestCredentialActive(t *testing.T) {
	now := time.Now()
	code := "123456"
	future := now.Add(time.Hour)
	past := now.Add(-time.Minute)

	b := Booking{Status: types.BOOKING_APPROVED, CollectionCode: &code, QRCodeExpiry: &future}
	assert.True(t, b.CredentialActive(now))

	b.QRCodeExpiry = &past
	assert.False(t, b.CredentialActive(now))

	b.QRCodeExpiry = &future
	b.Status = types.BOOKING_PENDING
	assert.False(t, b.CredentialActive(now))

	b.Status = types.BOOKING_APPROVED
	b.CollectionCode = nil
	assert.False(t, b.CredentialActive(now))
}

func TestCommittedQuantity(t *testing.T) {
	approved := uint(2)
	b := Booking{RequestedQuantity: 5}
	assert.Equal(t, uint(5), b.CommittedQuantity())
	b.ApprovedQuantity = &approved
	assert.Equal(t, uint(2), b.CommittedQuantity())
}

func TestCheckClaimGate(t *testing.T) {
	u := User{Status: types.USER_ACTIVE}
	assert.Nil(t, u.CheckClaimGate())

	u.Status = types.USER_REJECTED
	err := u.CheckClaimGate()
	assert.True(t, types.IsKind(err, types.ErrSuspension))
	assert.Equal(t, "account_rejected", types.ErrorCode(err))

	u.Status = types.USER_BLOCKED
	err = u.CheckClaimGate()
	assert.True(t, types.IsKind(err, types.ErrSuspension))
	assert.Equal(t, "account_blocked", types.ErrorCode(err))
}
