package models

import (
	"replate/src/types"
	"time"

	"github.com/google/uuid"
)

// JobTask persists a scheduled one-time job so it can be re-queued after a
// restart (see boot.RecoverQueuedJobs).
type JobTask struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	Name      string      `json:"-"`
	JobType   string      `json:"-"`
	RunsAt    time.Time   `json:"-"`
	PayloadID string      `json:"-"`
	Payload   types.JSONB `gorm:"type:jsonb" json:"-"`
	Source    string      `json:"-"`
	Status    string      `gorm:"default:'pending'" json:"-"`
	Topic     string      `json:"-"`

	types.Timestamps
}
