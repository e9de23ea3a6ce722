package bookings

import (
	"log"
	"replate/src/db"
	"replate/src/models"
	"replate/src/types"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransitionAction is the closed set of booking lifecycle commands.
// Adding an action means extending the enum and the switch in Apply;
// there is no string-based dispatch.
type TransitionAction int

const (
	ActionApprove TransitionAction = iota
	ActionReject
	ActionCollect
	ActionCancel
	ActionRate
)

func (a TransitionAction) String() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	case ActionCollect:
		return "collect"
	case ActionCancel:
		return "cancel"
	case ActionRate:
		return "rate"
	}
	return "unknown"
}

func ParseTransitionAction(s string) (TransitionAction, error) {
	switch s {
	case "approve":
		return ActionApprove, nil
	case "reject":
		return ActionReject, nil
	case "collect":
		return ActionCollect, nil
	case "cancel":
		return ActionCancel, nil
	case "rate":
		return ActionRate, nil
	}
	return 0, types.NewDomainError(types.ErrValidation, "bad_action", "unknown action %q", s)
}

// RestockPolicy decides whether cancelling or rejecting a booking returns
// its committed quantity to the listing pool. The platform default comes
// from config; it is a parameter here because the business rule is still
// an open product question.
type RestockPolicy bool

const (
	NoRestock       RestockPolicy = false
	RestockOnCancel RestockPolicy = true
)

type TransitionCommand struct {
	Action           TransitionAction
	ApprovedQuantity *uint
	ProviderResponse string
	Rating           *uint
	Feedback         string
	CollectionCode   *string
	QRData           *string
	Restock          RestockPolicy
}

// transitionAllowed is the state table from which every lifecycle move is
// checked, always under the booking's row lock.
func transitionAllowed(from types.BookingStatus, action TransitionAction) bool {
	switch action {
	case ActionApprove, ActionReject:
		return from == types.BOOKING_PENDING
	case ActionCollect:
		return from == types.BOOKING_APPROVED
	case ActionCancel:
		return from == types.BOOKING_PENDING || from == types.BOOKING_APPROVED
	case ActionRate:
		return from == types.BOOKING_COLLECTED
	}
	return false
}

// authorizeTransition enforces the role/ownership column of the state
// table. Authorization failures never reveal booking state.
func authorizeTransition(p types.Principal, action TransitionAction, b *models.Booking) error {
	switch action {
	case ActionApprove, ActionReject, ActionCollect:
		if b.ProviderID != p.UserID {
			return types.NewDomainError(types.ErrAuthorization, "not_listing_owner",
				"only the listing's provider may %s this booking", action)
		}
	case ActionCancel:
		if b.RecipientID != p.UserID && b.ProviderID != p.UserID {
			return types.NewDomainError(types.ErrAuthorization, "not_booking_party",
				"only the recipient or the listing's provider may cancel this booking")
		}
	case ActionRate:
		if b.RecipientID != p.UserID {
			return types.NewDomainError(types.ErrAuthorization, "not_booking_owner",
				"only the booking's recipient may rate it")
		}
	}
	return nil
}

// Apply runs one lifecycle transition. The booking and its listing are
// locked for the whole transaction so duplicate calls (two rapid approve
// clicks, a double scan) observe the already-updated status and fail with
// an invalid-transition conflict instead of double-applying.
func Apply(principal types.Principal, bookingID uint, cmd TransitionCommand) (*models.Booking, error) {
	var booking models.Booking
	dbi := db.GetDb()
	err := dbi.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.Booking{ID: bookingID}).
			First(&booking).
			Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return types.NewDomainError(types.ErrNotFound, "booking_not_found",
					"booking [%d] not found", bookingID)
			}
			return err
		}
		if err := authorizeTransition(principal, cmd.Action, &booking); err != nil {
			return err
		}
		if !transitionAllowed(booking.Status, cmd.Action) {
			return types.NewDomainError(types.ErrConflict, "invalid_transition",
				"cannot %s a booking that is %s", cmd.Action, booking.Status)
		}

		var listing models.FoodListing
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.FoodListing{ID: booking.ListingID}).
			First(&listing).
			Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return types.NewDomainError(types.ErrNotFound, "listing_not_found",
					"listing [%d] not found", booking.ListingID)
			}
			return err
		}

		now := time.Now()
		listingTouched := false
		switch cmd.Action {
		case ActionApprove:
			// Commit against live availability: request-flow bookings
			// take their quantity out of the pool here, clamped to what
			// the provider granted and to what was requested.
			qty := booking.RequestedQuantity
			if cmd.ApprovedQuantity != nil && *cmd.ApprovedQuantity < qty {
				qty = *cmd.ApprovedQuantity
			}
			if err := listing.AcceptsClaims(now); err != nil {
				return err
			}
			if err := listing.Reserve(qty); err != nil {
				return err
			}
			listingTouched = true
			booking.Status = types.BOOKING_APPROVED
			booking.ApprovedQuantity = &qty
			booking.ApprovedAt = &now
			booking.ProviderResponse = cmd.ProviderResponse
			if err := IssueCredential(&booking, now); err != nil {
				return err
			}
		case ActionReject:
			booking.Status = types.BOOKING_REJECTED
			booking.RejectedAt = &now
			booking.ProviderResponse = cmd.ProviderResponse
		case ActionCollect:
			if err := verifyForCollect(&booking, cmd, principal.UserID, now); err != nil {
				return err
			}
			booking.Status = types.BOOKING_COLLECTED
			booking.CollectedAt = &now
		case ActionCancel:
			wasApproved := booking.Status == types.BOOKING_APPROVED
			booking.Status = types.BOOKING_CANCELLED
			booking.CancelledAt = &now
			if cmd.Restock == RestockOnCancel && wasApproved {
				listing.Restock(booking.CommittedQuantity(), now)
				listingTouched = true
			}
		case ActionRate:
			if cmd.Rating == nil || *cmd.Rating < 1 || *cmd.Rating > 5 {
				return types.NewDomainError(types.ErrValidation, "bad_rating",
					"rating must be between 1 and 5")
			}
			booking.Rating = cmd.Rating
			if cmd.Feedback != "" {
				booking.Feedback = &cmd.Feedback
			}
		}

		if err := tx.Save(&booking).Error; err != nil {
			return err
		}
		if listingTouched {
			if err := tx.Save(&listing).Error; err != nil {
				return err
			}
		}
		if err := refreshSummaries(tx, booking.ListingID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("Transition %s on Booking [%d] failed: %s\n", cmd.Action, bookingID, err.Error())
		return nil, err
	}
	return &booking, nil
}

// verifyForCollect checks the presented credential (QR payload or backup
// code) against the locked booking.
func verifyForCollect(b *models.Booking, cmd TransitionCommand, providerID uint, now time.Time) error {
	if cmd.QRData == nil && cmd.CollectionCode == nil {
		return types.NewDomainError(types.ErrValidation, "missing_credential",
			"collect requires a QR payload or a collection code")
	}
	if cmd.QRData != nil {
		key, err := credentialKey()
		if err != nil {
			return err
		}
		payload, err := OpenCredential(key, *cmd.QRData)
		if err != nil {
			return err
		}
		if payload.BookingID != b.ID {
			return types.NewDomainError(types.ErrCredential, "credential_mismatch",
				"QR payload does not belong to booking [%d]", b.ID)
		}
	} else {
		if b.CollectionCode == nil || *b.CollectionCode != *cmd.CollectionCode {
			return types.NewDomainError(types.ErrCredential, "credential_mismatch",
				"collection code does not match")
		}
	}
	return CheckCredential(b, providerID, b.ListingID, now)
}

// refreshSummaries rebuilds the listing's denormalized booking view from
// the authoritative rows, inside the caller's transaction.
func refreshSummaries(tx *gorm.DB, listingID uint) error {
	var rows []models.Booking
	if err := tx.
		Where(&models.Booking{ListingID: listingID}).
		Order("requested_at asc").
		Find(&rows).
		Error; err != nil {
		return err
	}
	// Hard delete: a soft delete would leave the old rows in the unique
	// index on booking_id and the re-insert below would collide with them.
	if err := tx.
		Unscoped().
		Where("listing_id = ?", listingID).
		Delete(&models.BookingSummary{}).
		Error; err != nil {
		return err
	}
	summaries := models.ProjectBookingSummaries(listingID, rows)
	if len(summaries) == 0 {
		return nil
	}
	return tx.Create(&summaries).Error
}
