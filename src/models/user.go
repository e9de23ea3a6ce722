package models

import (
	"replate/src/types"
	"time"
)

type User struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	Name          string           `json:"name,omitempty"`
	Email         string           `json:"email,omitempty"`
	Role          types.Role       `gorm:"default:'recipient'" json:"role,omitempty"`
	UID           string           `json:"uid,omitempty"`
	Status        types.UserStatus `gorm:"default:'ACTIVE'" json:"status,omitempty"`
	StatusReason  *string          `json:"status_reason,omitempty"`
	ModeratedBy   *uint            `json:"-"`
	ModeratedAt   *time.Time       `json:"moderated_at,omitempty"`
	EmailVerified bool             `json:"email_verified,omitempty"`

	Listings []FoodListing `gorm:"foreignKey:provider_id" json:"listings,omitempty"`
	Bookings []Booking     `gorm:"foreignKey:recipient_id" json:"bookings,omitempty"`

	types.Timestamps
}

// CheckClaimGate enforces the user-status gate ahead of any claim. The
// two suspension reasons carry distinct messages because both sides of
// the platform surface them directly.
func (u *User) CheckClaimGate() error {
	switch u.Status {
	case types.USER_ACTIVE:
		return nil
	case types.USER_REJECTED:
		return types.NewDomainError(types.ErrSuspension, "account_rejected",
			"your account application was rejected; contact an administrator to appeal")
	case types.USER_BLOCKED:
		return types.NewDomainError(types.ErrSuspension, "account_blocked",
			"your account is blocked from making claims")
	}
	return types.NewDomainError(types.ErrSuspension, "account_inactive",
		"your account is not active")
}
