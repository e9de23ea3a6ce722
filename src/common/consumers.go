package common

import (
	"log"
	"os"
	"time"

	"replate/src/config"
	"replate/src/db"
	"replate/src/lib"
	awslib "replate/src/lib/aws"
	"replate/src/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesTypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/tidwall/gjson"
)

// BookingsEventHandler consumes one lifecycle event off the bookings topic
// and fans it out to the affected parties.
func BookingsEventHandler(body string) {
	event := gjson.Get(body, "event").String()
	bookingID := uint(gjson.Get(body, "booking").Uint())
	if event == "" || bookingID == 0 {
		log.Printf("[%s] Skipping malformed event: %s\n", lib.BookingsTopic, body)
		return
	}
	dbi := db.GetDb()
	var booking models.Booking
	if err := dbi.Where(&models.Booking{ID: bookingID}).First(&booking).Error; err != nil {
		log.Printf("[%s] Could not load Booking [%d]: %s\n", lib.BookingsTopic, bookingID, err.Error())
		return
	}

	switch event {
	case "booking.created":
		notifyParties(event, &booking, booking.ProviderID)
	case "booking.approved", "booking.rejected":
		notifyParties(event, &booking, booking.RecipientID)
	case "booking.collected":
		notifyParties(event, &booking, booking.RecipientID, booking.ProviderID)
	case "booking.cancelled":
		notifyParties(event, &booking, booking.RecipientID, booking.ProviderID)
	case "booking.rated":
		notifyParties(event, &booking, booking.ProviderID)
	case "booking.expiring":
		// Reminder jobs outlive the booking state they were queued for;
		// only an uncollected approved booking still needs one.
		if booking.CredentialActive(time.Now()) {
			notifyParties(event, &booking, booking.RecipientID)
		}
	default:
		log.Printf("[%s] Unhandled event type: %s\n", lib.BookingsTopic, event)
	}
}

// MailQueueHandler consumes one queued email and delivers it: SES in
// production, direct SMTP everywhere else.
func MailQueueHandler(body string) {
	to := []string{}
	for _, addr := range gjson.Get(body, "to").Array() {
		to = append(to, addr.String())
	}
	if len(to) == 0 {
		log.Println("[mailer] Skipping message with no recipients")
		return
	}
	subject := gjson.Get(body, "subject").String()
	from := gjson.Get(body, "from").String()

	if config.IsProd() {
		dest := &sesTypes.Destination{ToAddresses: to}
		msg := &sesTypes.Message{
			Subject: &sesTypes.Content{Data: aws.String(subject)},
			Body: &sesTypes.Body{
				Html: &sesTypes.Content{Data: aws.String(gjson.Get(body, "body").String())},
			},
		}
		awslib.SESSendMessage(&from, dest, msg)
		return
	}
	input := &lib.SendMailInput{
		From:     from,
		FromName: gjson.Get(body, "from-name").String(),
		To:       to,
		Subject:  subject,
		Body:     gjson.Get(body, "body").String(),
		Html:     gjson.Get(body, "html").Bool(),
	}
	if err := lib.SendMail(input); err != nil {
		log.Printf("[mailer] Error sending email: %s\n", err.Error())
	}
}

// Consumers wires every background consumer for the process: the bookings
// topic and the email queue, Kafka locally and SQS when deployed.
func Consumers() {
	lib.KafkaConsumer("replate", BookingsEventHandler, lib.BookingsTopic)

	emailQueue := os.Getenv("EMAIL_QUEUE")
	if config.API_ENV == "local" {
		lib.KafkaConsumer("emails", MailQueueHandler, config.WithSuffix(emailQueue))
		return
	}
	mq := awslib.NewSQSConsumer(config.WithSuffix(emailQueue), MailQueueHandler)
	mq.Listen()
}

// SNSSubscribes links the alert topic to its queue so deployed consumers
// receive scheduler output.
func SNSSubscribes() {
	alerts := awslib.NewSNSSubscriber("ReplateAlerts")
	alerts.Subscribe("sqs", lib.GetQueueArn("ReplateAlerts"))
}
