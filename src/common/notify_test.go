package common

import (
	"testing"

	"replate/src/models"

	"github.com/stretchr/testify/assert"
)

func TestNotificationText(t *testing.T) {
	b := &models.Booking{ID: 7, RecipientName: "Ana", RequestedQuantity: 3}

	titles := map[string]string{
		"booking.created":   "New claim received",
		"booking.approved":  "Claim approved",
		"booking.rejected":  "Claim declined",
		"booking.collected": "Collection confirmed",
		"booking.cancelled": "Claim cancelled",
		"booking.expiring":  "Collection reminder",
	}
	for event, want := range titles {
		title, message := notificationText(event, b)
		assert.Equalf(t, want, title, "event %s", event)
		assert.NotEmpty(t, message)
	}

	// A rating annotates an already-collected booking; its notification
	// must not repeat the collection confirmation.
	ratedTitle, _ := notificationText("booking.rated", b)
	collectedTitle, _ := notificationText("booking.collected", b)
	assert.Equal(t, "New rating received", ratedTitle)
	assert.NotEqual(t, collectedTitle, ratedTitle)
}
