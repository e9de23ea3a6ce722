package common

import (
	"fmt"
	"log"
	"time"

	"replate/src/db"
	"replate/src/lib"
	"replate/src/models"
	"replate/src/types"
)

// ScheduleCredentialReminder queues a one-shot reminder event an hour
// before the booking's collection credential expires. The job is persisted
// so a restart re-queues it (see boot.RecoverQueuedJobs).
func ScheduleCredentialReminder(b *models.Booking) {
	if b.QRCodeExpiry == nil {
		return
	}
	remindAt := b.QRCodeExpiry.Add(-1 * time.Hour)
	if !remindAt.After(time.Now()) {
		return
	}
	name := fmt.Sprintf("booking_%d_reminder", b.ID)
	payload := types.JSONB{
		"event":   "booking.expiring",
		"booking": b.ID,
	}
	jobTask := models.JobTask{
		Name:    name,
		JobType: "OneTimeJobStartDateTime",
		RunsAt:  remindAt,
		Payload: payload,
		Source:  "bookings",
		Topic:   lib.BookingsTopic,
	}
	dbi := db.GetDb()
	if err := dbi.Create(&jobTask).Error; err != nil {
		log.Printf("Could not persist reminder job for Booking [%d]: %s\n", b.ID, err.Error())
	}
	vars := map[string]string{
		"name":     name,
		"clientId": "bookings",
		"topic":    lib.BookingsTopic,
	}
	if _, err := lib.NewScheduledJob(remindAt, vars, payload); err != nil {
		log.Printf("Could not schedule reminder for Booking [%d]: %s\n", b.ID, err.Error())
	}
}
