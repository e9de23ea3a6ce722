package mailer

import (
	"encoding/json"
	"fmt"
	"os"

	"replate/src/config"
	"replate/src/lib"
	"replate/src/types"
)

// NewMailerMessage enqueues an email for asynchronous delivery: locally it
// goes through Kafka, in deployed environments through SQS. The mail
// consumer does the actual SMTP/SES send.
func NewMailerMessage(input *lib.SendMailInput) error {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	emailBody := types.JSONB{
		"from":      input.From,
		"from-name": input.FromName,
		"to":        input.To,
		"cc":        input.Cc,
		"body":      input.Body,
		"html":      input.Html,
		"subject":   input.Subject,
	}
	if config.API_ENV == string(types.Local) {
		if err := lib.KafkaProduceMessage("emails", config.WithSuffix(emailQueue), emailBody); err != nil {
			return fmt.Errorf("error sending message to queue: %s", err.Error())
		}
		return nil
	}
	body, err := json.Marshal(&emailBody)
	if err != nil {
		return err
	}
	if err := lib.SQSProduceMessage(config.WithSuffix(emailQueue), string(body)); err != nil {
		return fmt.Errorf("error sending message to queue: %s", err.Error())
	}
	return nil
}
