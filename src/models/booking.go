package models

import (
	"replate/src/types"
	"time"
)

type Booking struct {
	ID                uint                `gorm:"primarykey" json:"id"`
	ListingID         uint                `json:"listing_id,omitempty"`
	ProviderID        uint                `json:"provider_id,omitempty"`
	RecipientID       uint                `json:"recipient_id,omitempty"`
	RecipientName     string              `json:"recipient_name,omitempty"`
	RequestedQuantity uint                `json:"requested_quantity"`
	ApprovedQuantity  *uint               `json:"approved_quantity,omitempty"`
	Status            types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	RequestMessage    string              `json:"request_message,omitempty"`
	ProviderResponse  string              `json:"provider_response,omitempty"`

	RequestedAt time.Time  `json:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	CollectedAt *time.Time `json:"collected_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Rating   *uint   `json:"rating,omitempty"`
	Feedback *string `json:"feedback,omitempty"`

	CollectionCode *string    `json:"collection_code,omitempty"`
	QRCode         *string    `json:"qr_code,omitempty"`
	QRCodeExpiry   *time.Time `json:"qr_code_expiry,omitempty"`

	Listing   *FoodListing `gorm:"foreignKey:listing_id" json:"listing,omitempty"`
	Recipient *User        `gorm:"foreignKey:recipient_id" json:"recipient,omitempty"`

	types.Timestamps
}

// Terminal reports whether no further lifecycle transition can apply.
// rate does not count: it annotates a collected booking without moving it.
func (b *Booking) Terminal() bool {
	switch b.Status {
	case types.BOOKING_REJECTED, types.BOOKING_COLLECTED, types.BOOKING_CANCELLED:
		return true
	}
	return false
}

// CredentialActive reports whether the collection credential may still be
// presented. The stored absolute expiry is authoritative; it is never
// recomputed from requested_at.
func (b *Booking) CredentialActive(now time.Time) bool {
	if b.Status != types.BOOKING_APPROVED {
		return false
	}
	if b.CollectionCode == nil || b.QRCodeExpiry == nil {
		return false
	}
	return b.QRCodeExpiry.After(now)
}

// CommittedQuantity is what was actually taken out of listing inventory
// for this booking.
func (b *Booking) CommittedQuantity() uint {
	if b.ApprovedQuantity != nil {
		return *b.ApprovedQuantity
	}
	return b.RequestedQuantity
}
