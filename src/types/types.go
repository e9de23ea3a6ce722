package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

// Handler consumes a raw message body from a queue or topic.
type Handler func(body string)

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	UID      string `json:"uid"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller, resolved once by the auth
// middleware and passed explicitly into every core operation.
type Principal struct {
	UserID uint
	Role   Role
}

type Role string

const (
	ROLE_PROVIDER  Role = "provider"
	ROLE_RECIPIENT Role = "recipient"
	ROLE_ADMIN     Role = "admin"
)

type UserStatus string

const (
	USER_ACTIVE   UserStatus = "ACTIVE"
	USER_REJECTED UserStatus = "REJECTED"
	USER_BLOCKED  UserStatus = "BLOCKED"
)

type ListingStatus string

const (
	LISTING_ACTIVE       ListingStatus = "active"
	LISTING_FULLY_BOOKED ListingStatus = "fully_booked"
	LISTING_EXPIRED      ListingStatus = "expired"
)

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_APPROVED  BookingStatus = "approved"
	BOOKING_REJECTED  BookingStatus = "rejected"
	BOOKING_COLLECTED BookingStatus = "collected"
	BOOKING_CANCELLED BookingStatus = "cancelled"
)

type Environment string

const (
	Production Environment = "production"
	Test       Environment = "test"
	Local      Environment = "local"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateListingRequestBody struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description,omitempty"`
	Location      string `json:"location,omitempty" binding:"required"`
	TotalQuantity uint   `json:"total_quantity" binding:"required,gt=0"`
	Unit          string `json:"unit" binding:"required"`
	ExpiryTime    string `json:"expiry_time" binding:"required,collectabledate" time_format:"2006-01-02 15:04:05 -07:00"`
}

type BookListingRequestBody struct {
	RequestedQuantity uint   `json:"requested_quantity" binding:"required,gt=0"`
	RecipientName     string `json:"recipient_name" binding:"required"`
	RequestMessage    string `json:"request_message,omitempty"`
	// RequestApproval switches the claim from the instant flow to the
	// request/approval flow: the booking starts out pending and inventory
	// is committed at approval time instead.
	RequestApproval bool `json:"request_approval,omitempty"`
}

type UpdateBookingRequestBody struct {
	Action           string  `json:"action" binding:"required,oneof=approve reject collect cancel rate"`
	ApprovedQuantity *uint   `json:"approved_quantity,omitempty"`
	ProviderResponse string  `json:"provider_response,omitempty"`
	Rating           *uint   `json:"rating,omitempty" binding:"omitempty,min=1,max=5"`
	Feedback         string  `json:"feedback,omitempty"`
	CollectionCode   *string `json:"collection_code,omitempty"`
	QRData           *string `json:"qr_data,omitempty"`
}

type VerifyCollectionRequestBody struct {
	QRData         *string `json:"qr_data,omitempty"`
	CollectionCode *string `json:"collection_code,omitempty"`
	ListingID      uint    `json:"listing_id" binding:"required"`
}

type ModerateUserRequestBody struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE REJECTED BLOCKED"`
	Reason string `json:"reason,omitempty"`
}

type ListingQueryFilters struct {
	Status    string `form:"status"`
	Provider  uint   `form:"provider"`
	Claimable bool   `form:"claimable"`
}
