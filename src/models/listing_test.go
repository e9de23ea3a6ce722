package models

import (
	"sync"
	"testing"
	"time"

	"replate/src/types"

	"github.com/stretchr/testify/assert"
)

func activeListing(qty uint) *FoodListing {
	return &FoodListing{
		ID:            1,
		Title:         "Leftover sandwiches",
		TotalQuantity: qty,
		Quantity:      qty,
		Unit:          "portions",
		ExpiryTime:    time.Now().Add(2 * time.Hour),
		IsActive:      true,
		ListingStatus: types.LISTING_ACTIVE,
		ProviderID:    10,
	}
}

func TestReserve(t *testing.T) {
	t.Run("decrements quantity", func(t *testing.T) {
		l := activeListing(10)
		err := l.Reserve(3)
		assert.Nil(t, err)
		assert.Equal(t, uint(7), l.Quantity)
		assert.Equal(t, types.LISTING_ACTIVE, l.ListingStatus)
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		l := activeListing(10)
		err := l.Reserve(0)
		assert.True(t, types.IsKind(err, types.ErrValidation))
		assert.Equal(t, uint(10), l.Quantity)
	})

	t.Run("rejects more than available", func(t *testing.T) {
		l := activeListing(5)
		err := l.Reserve(6)
		assert.True(t, types.IsKind(err, types.ErrConflict))
		assert.Equal(t, "insufficient_quantity", types.ErrorCode(err))
		assert.Equal(t, uint(5), l.Quantity)
	})

	t.Run("last unit marks listing fully booked", func(t *testing.T) {
		l := activeListing(2)
		assert.Nil(t, l.Reserve(2))
		assert.Equal(t, uint(0), l.Quantity)
		assert.Equal(t, types.LISTING_FULLY_BOOKED, l.ListingStatus)
		assert.False(t, l.IsActive)
	})
}

// Concurrent claims race for a single remaining unit; the row lock
// serializes them in production, the mutex stands in for it here. Exactly
// one claim may win.
func TestReserveContention(t *testing.T) {
	l := activeListing(1)
	var mu sync.Mutex
	var wg sync.WaitGroup
	wins := 0
	losses := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			if err := l.Reserve(1); err != nil {
				losses++
				return
			}
			wins++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 49, losses)
	assert.Equal(t, uint(0), l.Quantity)
	assert.Equal(t, types.LISTING_FULLY_BOOKED, l.ListingStatus)
}

func TestRestock(t *testing.T) {
	t.Run("reopens a fully booked listing", func(t *testing.T) {
		l := activeListing(5)
		assert.Nil(t, l.Reserve(5))
		assert.Equal(t, types.LISTING_FULLY_BOOKED, l.ListingStatus)

		l.Restock(2, time.Now())
		assert.Equal(t, uint(2), l.Quantity)
		assert.Equal(t, types.LISTING_ACTIVE, l.ListingStatus)
		assert.True(t, l.IsActive)
	})

	t.Run("clamps at posted total", func(t *testing.T) {
		l := activeListing(5)
		assert.Nil(t, l.Reserve(1))
		l.Restock(10, time.Now())
		assert.Equal(t, uint(5), l.Quantity)
	})

	t.Run("does not reopen an expired listing", func(t *testing.T) {
		l := activeListing(5)
		l.ExpiryTime = time.Now().Add(-time.Minute)
		l.Restock(1, time.Now())
		assert.Equal(t, types.LISTING_EXPIRED, l.ListingStatus)
		assert.False(t, l.IsActive)
	})
}

func TestRecomputeStatus(t *testing.T) {
	t.Run("expiry wins over quantity", func(t *testing.T) {
		l := activeListing(0)
		l.ExpiryTime = time.Now().Add(-time.Hour)
		l.RecomputeStatus(time.Now())
		assert.Equal(t, types.LISTING_EXPIRED, l.ListingStatus)
		assert.False(t, l.IsActive)
	})

	t.Run("zero quantity means fully booked", func(t *testing.T) {
		l := activeListing(3)
		l.Quantity = 0
		l.RecomputeStatus(time.Now())
		assert.Equal(t, types.LISTING_FULLY_BOOKED, l.ListingStatus)
	})

	t.Run("expired stays expired", func(t *testing.T) {
		l := activeListing(3)
		l.ExpiryTime = time.Now().Add(-time.Minute)
		l.RecomputeStatus(time.Now())
		l.RecomputeStatus(time.Now())
		assert.Equal(t, types.LISTING_EXPIRED, l.ListingStatus)
	})
}

func TestAcceptsClaims(t *testing.T) {
	now := time.Now()

	l := activeListing(3)
	assert.Nil(t, l.AcceptsClaims(now))

	l.IsActive = false
	err := l.AcceptsClaims(now)
	assert.Equal(t, "listing_unavailable", types.ErrorCode(err))

	l = activeListing(3)
	l.ExpiryTime = now.Add(-time.Second)
	err = l.AcceptsClaims(now)
	assert.Equal(t, "listing_expired", types.ErrorCode(err))
}

func TestProjectBookingSummaries(t *testing.T) {
	qty := uint(2)
	rows := []Booking{
		{ID: 1, ListingID: 7, RecipientID: 20, RecipientName: "Ana", RequestedQuantity: 3, Status: types.BOOKING_PENDING},
		{ID: 2, ListingID: 7, RecipientID: 21, RequestedQuantity: 2, ApprovedQuantity: &qty, Status: types.BOOKING_APPROVED},
		{ID: 3, ListingID: 8, RecipientID: 22, RequestedQuantity: 1, Status: types.BOOKING_PENDING},
	}

	summaries := ProjectBookingSummaries(7, rows)

	assert.Len(t, summaries, 2)
	assert.Equal(t, uint(1), summaries[0].BookingID)
	assert.Equal(t, "Ana", summaries[0].RecipientName)
	assert.Equal(t, uint(2), summaries[1].BookingID)
	assert.Equal(t, &qty, summaries[1].ApprovedQuantity)
	for _, s := range summaries {
		assert.Equal(t, uint(7), s.ListingID)
	}
}
