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

// Claim books quantity from a listing. The listing row is locked for the
// whole transaction, so concurrent claims for the last units serialize and
// exactly one of them wins the remainder.
//
// Two flows share this path: the instant flow (RequestApproval=false)
// commits quantity immediately and issues the collection credential; the
// request flow creates a pending booking that only commits quantity when
// the provider approves it.
func Claim(principal types.Principal, listingID uint, body types.BookListingRequestBody) (*models.Booking, error) {
	var booking models.Booking
	dbi := db.GetDb()
	err := dbi.Transaction(func(tx *gorm.DB) error {
		var recipient models.User
		if err := tx.Where(&models.User{ID: principal.UserID}).First(&recipient).Error; err != nil {
			return err
		}
		if err := recipient.CheckClaimGate(); err != nil {
			return err
		}

		var listing models.FoodListing
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.FoodListing{ID: listingID}).
			First(&listing).
			Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return types.NewDomainError(types.ErrNotFound, "listing_not_found",
					"listing [%d] not found", listingID)
			}
			return err
		}
		if listing.ProviderID == principal.UserID {
			return types.NewDomainError(types.ErrAuthorization, "own_listing",
				"providers cannot claim their own listings")
		}

		now := time.Now()
		// Expiry may have passed since the last sweep; settle it under the
		// lock before deciding anything.
		listing.RecomputeStatus(now)
		if err := listing.AcceptsClaims(now); err != nil {
			return err
		}

		recipientName := body.RecipientName
		if recipientName == "" {
			recipientName = recipient.Name
		}
		booking = models.Booking{
			ListingID:         listing.ID,
			ProviderID:        listing.ProviderID,
			RecipientID:       recipient.ID,
			RecipientName:     recipientName,
			RequestedQuantity: body.RequestedQuantity,
			RequestMessage:    body.RequestMessage,
			RequestedAt:       now,
		}

		if body.RequestApproval {
			// Quantity is still validated against the live remainder so a
			// hopeless request fails fast, but nothing is committed yet.
			if body.RequestedQuantity == 0 {
				return types.NewDomainError(types.ErrValidation, "bad_quantity",
					"requested quantity must be greater than zero")
			}
			if body.RequestedQuantity > listing.Quantity {
				return types.NewDomainError(types.ErrConflict, "insufficient_quantity",
					"requested %d %s but only %d available", body.RequestedQuantity, listing.Unit, listing.Quantity)
			}
			booking.Status = types.BOOKING_PENDING
		} else {
			if err := listing.Reserve(body.RequestedQuantity); err != nil {
				return err
			}
			qty := body.RequestedQuantity
			booking.Status = types.BOOKING_APPROVED
			booking.ApprovedQuantity = &qty
			booking.ApprovedAt = &now
			if err := tx.Save(&listing).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		if booking.Status == types.BOOKING_APPROVED {
			if err := IssueCredential(&booking, now); err != nil {
				return err
			}
			if err := tx.Save(&booking).Error; err != nil {
				return err
			}
		}
		return refreshSummaries(tx, listing.ID)
	})
	if err != nil {
		log.Printf("Claim on Listing [%d] by User [%d] failed: %s\n", listingID, principal.UserID, err.Error())
		return nil, err
	}
	return &booking, nil
}

// VerifyCollection resolves a presented credential to its booking without
// mutating anything. Providers use it at handover to see who they are
// serving before confirming the collect.
func VerifyCollection(principal types.Principal, body types.VerifyCollectionRequestBody) (*models.Booking, error) {
	dbi := db.GetDb()
	var booking models.Booking

	if body.QRData != nil {
		key, err := credentialKey()
		if err != nil {
			return nil, err
		}
		payload, err := OpenCredential(key, *body.QRData)
		if err != nil {
			return nil, err
		}
		if err := dbi.
			Preload("Recipient").
			Preload("Listing").
			Where(&models.Booking{ID: payload.BookingID}).
			First(&booking).
			Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, types.NewDomainError(types.ErrCredential, "credential_unknown",
					"no booking matches the presented credential")
			}
			return nil, err
		}
		if payload.ListingID != booking.ListingID {
			return nil, types.NewDomainError(types.ErrCredential, "credential_mismatch",
				"QR payload does not belong to booking [%d]", booking.ID)
		}
	} else if body.CollectionCode != nil {
		if err := dbi.
			Preload("Recipient").
			Preload("Listing").
			Where(&models.Booking{ListingID: body.ListingID, CollectionCode: body.CollectionCode}).
			First(&booking).
			Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, types.NewDomainError(types.ErrCredential, "credential_unknown",
					"no booking matches the presented credential")
			}
			return nil, err
		}
	} else {
		return nil, types.NewDomainError(types.ErrValidation, "missing_credential",
			"verification requires a QR payload or a collection code")
	}

	if booking.ProviderID != principal.UserID {
		return nil, types.NewDomainError(types.ErrAuthorization, "not_listing_owner",
			"only the listing's provider may verify this credential")
	}
	// The claimed listing comes from the request, not the booking row, so a
	// credential scanned at the wrong listing's handover fails here.
	if err := CheckCredential(&booking, principal.UserID, body.ListingID, time.Now()); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ExpireListings settles every overdue active listing and cascades the
// expiry to its pending bookings. Run periodically by the scheduler; each
// listing settles in its own transaction so one bad row cannot stall the
// sweep.
func ExpireListings(now time.Time) (int, error) {
	dbi := db.GetDb()
	var ids []uint
	if err := dbi.
		Model(&models.FoodListing{}).
		Where("is_active = ? AND expiry_time <= ?", true, now).
		Pluck("id", &ids).
		Error; err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		err := dbi.Transaction(func(tx *gorm.DB) error {
			var listing models.FoodListing
			if err := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where(&models.FoodListing{ID: id}).
				First(&listing).
				Error; err != nil {
				return err
			}
			listing.RecomputeStatus(now)
			if listing.ListingStatus != types.LISTING_EXPIRED {
				return nil
			}
			if err := tx.Save(&listing).Error; err != nil {
				return err
			}
			if err := tx.
				Model(&models.Booking{}).
				Where("listing_id = ? AND status = ?", id, types.BOOKING_PENDING).
				Updates(map[string]any{"status": types.BOOKING_REJECTED, "rejected_at": now}).
				Error; err != nil {
				return err
			}
			return refreshSummaries(tx, id)
		})
		if err != nil {
			log.Printf("Expiry sweep failed for Listing [%d]: %s\n", id, err.Error())
			continue
		}
		expired++
	}
	return expired, nil
}
