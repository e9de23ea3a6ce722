package common

import (
	"context"
	"fmt"
	"log"

	"replate/src/db"
	"replate/src/lib"
	"replate/src/lib/mailer"
	"replate/src/models"
	"replate/src/types"
)

// PublishBookingEvent emits one lifecycle event onto the bookings topic.
// Best-effort: a broker outage never fails the booking operation itself.
func PublishBookingEvent(event string, b *models.Booking) {
	payload := types.JSONB{
		"event":     event,
		"booking":   b.ID,
		"listing":   b.ListingID,
		"provider":  b.ProviderID,
		"recipient": b.RecipientID,
		"status":    string(b.Status),
		"quantity":  b.CommittedQuantity(),
	}
	go func() {
		if err := lib.KafkaProduceMessage("bookings", lib.BookingsTopic, payload); err != nil {
			log.Printf("Failed to publish %s event for Booking [%d]: %s\n", event, b.ID, err.Error())
		}
	}()
}

// notifyParties writes a Notification row, pushes to the device, and
// queues an email for each addressed user.
func notifyParties(event string, b *models.Booking, userIDs ...uint) {
	dbi := db.GetDb()
	title, message := notificationText(event, b)
	for _, uid := range userIDs {
		var user models.User
		if err := dbi.Where(&models.User{ID: uid}).First(&user).Error; err != nil {
			log.Printf("Could not load User [%d] for notification: %s\n", uid, err.Error())
			continue
		}
		n := models.Notification{
			UserID:          uid,
			Title:           title,
			Description:     &message,
			Type:            event,
			ReferenceSource: "booking",
			ReferenceValue:  fmt.Sprint(b.ID),
			ReferenceBody: &types.JSONB{
				"event":   event,
				"booking": b.ID,
				"listing": b.ListingID,
			},
		}
		if err := dbi.Create(&n).Error; err != nil {
			log.Printf("Could not create notification for User [%d]: %s\n", uid, err.Error())
		}
		if user.UID != "" {
			go lib.SendPush(context.Background(), user.UID, title, message, map[string]string{
				"event":   event,
				"booking": fmt.Sprint(b.ID),
			})
		}
		if user.Email != "" {
			input := &lib.SendMailInput{
				From:     "noreply@replate.app",
				FromName: "Replate",
				To:       []string{user.Email},
				Subject:  title,
				Body:     message,
			}
			if err := mailer.NewMailerMessage(input); err != nil {
				log.Printf("Could not queue email for User [%d]: %s\n", uid, err.Error())
			}
		}
	}
}

func notificationText(event string, b *models.Booking) (string, string) {
	switch event {
	case "booking.created":
		return "New claim received",
			fmt.Sprintf("%s requested %d of your listing", b.RecipientName, b.RequestedQuantity)
	case "booking.approved":
		return "Claim approved",
			fmt.Sprintf("Your claim for %d was approved. Your collection credential is ready.", b.CommittedQuantity())
	case "booking.rejected":
		return "Claim declined",
			"The provider declined your claim."
	case "booking.collected":
		return "Collection confirmed",
			"Your collection has been confirmed. Enjoy!"
	case "booking.cancelled":
		return "Claim cancelled",
			fmt.Sprintf("Claim #%d was cancelled.", b.ID)
	case "booking.rated":
		return "New rating received",
			fmt.Sprintf("%s rated their collection from claim #%d.", b.RecipientName, b.ID)
	case "booking.expiring":
		return "Collection reminder",
			"Your collection credential expires in one hour. Pick up your food soon."
	}
	return "Booking update", fmt.Sprintf("Booking #%d is now %s", b.ID, b.Status)
}
