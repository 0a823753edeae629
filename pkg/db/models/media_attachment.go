package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaAttachment links an uploaded object to a domain entity. Only
// return photos use attachments today.
type MediaAttachment struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EntityType string    `gorm:"column:entity_type;not null;index:idx_attachment_entity"`
	EntityID   uuid.UUID `gorm:"column:entity_id;type:uuid;not null;index:idx_attachment_entity"`
	ObjectKey  string    `gorm:"column:object_key;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

const AttachmentEntityReturn = "return"
