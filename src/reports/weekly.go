package reports

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"replate/src/db"
	"replate/src/lib"
	"replate/src/lib/mailer"
	"replate/src/models"
	"replate/src/types"
)

// Narrator turns a week's metrics into prose for the report email. The
// default implementation is a plain template; an LLM-backed one can be
// swapped in without touching the aggregation.
type Narrator interface {
	Narrate(metrics types.JSONB) (string, error)
}

type TemplateNarrator struct{}

func (TemplateNarrator) Narrate(metrics types.JSONB) (string, error) {
	return fmt.Sprintf(
		"This week %v listings were posted and %v bookings were made, of which %v were collected. %v %s of food were redistributed instead of wasted.",
		metrics["listings"], metrics["bookings"], metrics["collected"], metrics["quantity_collected"], "units",
	), nil
}

// WeeklyMetrics aggregates platform activity for the period.
func WeeklyMetrics(start, end time.Time) (types.JSONB, error) {
	dbi := db.GetDb()
	var listings, bookings, collected int64
	if err := dbi.
		Model(&models.FoodListing{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Count(&listings).
		Error; err != nil {
		return nil, err
	}
	if err := dbi.
		Model(&models.Booking{}).
		Where("requested_at BETWEEN ? AND ?", start, end).
		Count(&bookings).
		Error; err != nil {
		return nil, err
	}
	if err := dbi.
		Model(&models.Booking{}).
		Where("status = ? AND collected_at BETWEEN ? AND ?", types.BOOKING_COLLECTED, start, end).
		Count(&collected).
		Error; err != nil {
		return nil, err
	}
	var quantityCollected int64
	if err := dbi.
		Model(&models.Booking{}).
		Select("COALESCE(SUM(COALESCE(approved_quantity, requested_quantity)), 0)").
		Where("status = ? AND collected_at BETWEEN ? AND ?", types.BOOKING_COLLECTED, start, end).
		Scan(&quantityCollected).
		Error; err != nil {
		return nil, err
	}
	metrics := types.JSONB{
		"listings":           listings,
		"bookings":           bookings,
		"collected":          collected,
		"quantity_collected": quantityCollected,
	}
	return metrics, nil
}

// GenerateWeeklyReport builds, persists and distributes the report for the
// week ending at `end`. The rendered narrative is cached so the admin
// dashboard does not regenerate it on every read.
func GenerateWeeklyReport(n Narrator, end time.Time) (*models.Report, error) {
	start := end.Add(-7 * 24 * time.Hour)
	metrics, err := WeeklyMetrics(start, end)
	if err != nil {
		return nil, err
	}
	narrative, err := n.Narrate(metrics)
	if err != nil {
		log.Printf("Error generating report narrative: %s\n", err.Error())
		if alertErr := lib.SNSPublishAlert("Weekly report failed", err.Error()); alertErr != nil {
			log.Printf("Error publishing report alert: %s\n", alertErr.Error())
		}
		return nil, err
	}
	report := models.Report{
		PeriodStart: start,
		PeriodEnd:   end,
		Metrics:     &metrics,
		Narrative:   &narrative,
		Status:      "published",
	}
	dbi := db.GetDb()
	if err := dbi.Create(&report).Error; err != nil {
		return nil, err
	}

	periodKey := end.Format("2006-01-02")
	if err := lib.CacheReport(context.Background(), periodKey, narrative, 7*24*time.Hour); err != nil {
		log.Printf("Error caching report for %s: %s\n", periodKey, err.Error())
	}

	adminEmail := os.Getenv("REPORTS_EMAIL")
	if adminEmail != "" {
		input := &lib.SendMailInput{
			From:     "noreply@replate.app",
			FromName: "Replate",
			To:       []string{adminEmail},
			Subject:  fmt.Sprintf("Weekly impact report for %s", periodKey),
			Body:     narrative,
		}
		if err := mailer.NewMailerMessage(input); err != nil {
			log.Printf("Error queueing report email: %s\n", err.Error())
		}
	}
	return &report, nil
}
