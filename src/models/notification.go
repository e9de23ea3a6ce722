package models

import (
	"replate/src/types"

	"github.com/google/uuid"
)

type Notification struct {
	ID              uuid.UUID    `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID          uint         `json:"user_id,omitempty"`
	ReferenceSource string       `json:"ref_src"`
	ReferenceValue  string       `json:"ref_value"`
	Title           string       `json:"title"`
	Description     *string      `json:"description"`
	ReferenceBody   *types.JSONB `gorm:"type:jsonb" json:"ref_body"`
	Type            string       `json:"type"`
	ReadAt          *string      `json:"read_at,omitempty"`

	types.Timestamps
}
