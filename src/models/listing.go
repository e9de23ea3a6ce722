package models

import (
	"replate/src/types"
	"time"
)

type FoodListing struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	Title         string              `json:"title,omitempty"`
	Slug          string              `json:"slug,omitempty"`
	Description   *string             `json:"description,omitempty"`
	Location      string              `json:"location,omitempty"`
	TotalQuantity uint                `json:"total_quantity"`
	Quantity      uint                `json:"quantity"`
	Unit          string              `json:"unit,omitempty"`
	ExpiryTime    time.Time           `json:"expiry_time,omitempty"`
	IsActive      bool                `gorm:"default:true" json:"is_active"`
	ListingStatus types.ListingStatus `gorm:"default:'active'" json:"listing_status,omitempty"`
	ProviderID    uint                `json:"provider_id,omitempty"`

	Provider  *User            `gorm:"foreignKey:provider_id" json:"provider,omitempty"`
	Bookings  []Booking        `gorm:"foreignKey:listing_id" json:"bookings,omitempty"`
	Summaries []BookingSummary `gorm:"foreignKey:listing_id" json:"booking_summaries,omitempty"`

	types.Timestamps
}

// BookingSummary is the listing-side read view of one booking, rebuilt by
// ProjectBookingSummaries. The standalone bookings table stays authoritative
// for all transition logic; this table only serves dashboard reads.
type BookingSummary struct {
	ID                uint                `gorm:"primarykey" json:"-"`
	ListingID         uint                `json:"-"`
	BookingID         uint                `gorm:"uniqueIndex" json:"booking_id"`
	RecipientID       uint                `json:"recipient_id"`
	RecipientName     string              `json:"recipient_name,omitempty"`
	RequestedQuantity uint                `json:"requested_quantity"`
	ApprovedQuantity  *uint               `json:"approved_quantity,omitempty"`
	Status            types.BookingStatus `json:"status"`
	RequestedAt       time.Time           `json:"requested_at"`

	types.Timestamps
}

// AcceptsClaims reports whether the listing may take a new claim at the
// given instant.
func (l *FoodListing) AcceptsClaims(now time.Time) error {
	if !l.IsActive || l.ListingStatus != types.LISTING_ACTIVE {
		return types.NewDomainError(types.ErrConflict, "listing_unavailable",
			"listing [%d] is no longer accepting claims", l.ID)
	}
	if !l.ExpiryTime.After(now) {
		return types.NewDomainError(types.ErrConflict, "listing_expired",
			"listing [%d] expired at %s", l.ID, l.ExpiryTime.Format(time.RFC3339))
	}
	return nil
}

// Reserve commits qty units out of the uncommitted remainder. The caller
// must hold the row lock; the decrement is immediate, not a soft hold.
func (l *FoodListing) Reserve(qty uint) error {
	if qty == 0 {
		return types.NewDomainError(types.ErrValidation, "bad_quantity",
			"requested quantity must be greater than zero")
	}
	if qty > l.Quantity {
		return types.NewDomainError(types.ErrConflict, "insufficient_quantity",
			"requested %d %s but only %d available", qty, l.Unit, l.Quantity)
	}
	l.Quantity -= qty
	l.RecomputeStatus(time.Now())
	return nil
}

// Restock returns qty units to the pool, clamped at the posted total, and
// reopens a fully-booked listing that has not expired.
func (l *FoodListing) Restock(qty uint, now time.Time) {
	l.Quantity += qty
	if l.Quantity > l.TotalQuantity {
		l.Quantity = l.TotalQuantity
	}
	l.RecomputeStatus(now)
}

// RecomputeStatus derives listing_status and is_active from quantity and
// expiry. It is invoked explicitly at the end of each mutation; there are
// no save hooks.
func (l *FoodListing) RecomputeStatus(now time.Time) {
	if !l.ExpiryTime.IsZero() && !l.ExpiryTime.After(now) {
		l.ListingStatus = types.LISTING_EXPIRED
		l.IsActive = false
		return
	}
	if l.Quantity == 0 {
		l.ListingStatus = types.LISTING_FULLY_BOOKED
		l.IsActive = false
		return
	}
	if l.ListingStatus == types.LISTING_FULLY_BOOKED {
		l.ListingStatus = types.LISTING_ACTIVE
		l.IsActive = true
	}
}

// ProjectBookingSummaries rebuilds the listing's denormalized booking view
// from the authoritative booking rows. Pure function; the engine persists
// the result after each transition.
func ProjectBookingSummaries(listingID uint, bookings []Booking) []BookingSummary {
	summaries := make([]BookingSummary, 0, len(bookings))
	for _, b := range bookings {
		if b.ListingID != listingID {
			continue
		}
		summaries = append(summaries, BookingSummary{
			ListingID:         listingID,
			BookingID:         b.ID,
			RecipientID:       b.RecipientID,
			RecipientName:     b.RecipientName,
			RequestedQuantity: b.RequestedQuantity,
			ApprovedQuantity:  b.ApprovedQuantity,
			Status:            b.Status,
			RequestedAt:       b.RequestedAt,
		})
	}
	return summaries
}
