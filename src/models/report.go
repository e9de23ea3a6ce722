package models

import (
	"replate/src/types"
	"time"

	"github.com/google/uuid"
)

type Report struct {
	ID          uuid.UUID    `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
	Metrics     *types.JSONB `gorm:"type:jsonb" json:"metrics"`
	Narrative   *string      `json:"narrative,omitempty"`
	Status      string       `gorm:"default:'draft'" json:"status,omitempty"`

	types.Timestamps
}
