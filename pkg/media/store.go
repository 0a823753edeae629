package media

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

type signer interface {
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

// AttachInput links one uploaded object to an entity.
type AttachInput struct {
	EntityType string
	EntityID   uuid.UUID
	ObjectKey  string
}

// Store persists attachments and serves short-lived read URLs for
// them. Uploads themselves go straight to the bucket; the store only
// records the keys.
type Store interface {
	Attach(ctx context.Context, tx *gorm.DB, input AttachInput) (*models.MediaAttachment, error)
	URLsFor(ctx context.Context, entityType string, entityID uuid.UUID) ([]string, error)
}

type store struct {
	db      *gorm.DB
	signer  signer
	bucket  string
	readTTL time.Duration
}

// NewStore builds a GCS-backed attachment store.
func NewStore(db *gorm.DB, sig signer, bucket string, readTTL time.Duration) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("media db required")
	}
	if sig == nil {
		return nil, fmt.Errorf("media signer required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("media bucket required")
	}
	if readTTL <= 0 {
		readTTL = 15 * time.Minute
	}
	return &store{db: db, signer: sig, bucket: bucket, readTTL: readTTL}, nil
}

func (s *store) Attach(ctx context.Context, tx *gorm.DB, input AttachInput) (*models.MediaAttachment, error) {
	if input.EntityType == "" || input.EntityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attachment entity is required")
	}
	if input.ObjectKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object key is required")
	}
	db := s.db
	if tx != nil {
		db = tx
	}
	attachment := &models.MediaAttachment{
		ID:         uuid.New(),
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		ObjectKey:  input.ObjectKey,
	}
	if err := db.WithContext(ctx).Create(attachment).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving attachment")
	}
	return attachment, nil
}

func (s *store) URLsFor(ctx context.Context, entityType string, entityID uuid.UUID) ([]string, error) {
	var attachments []models.MediaAttachment
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading attachments")
	}
	urls := make([]string, 0, len(attachments))
	for _, attachment := range attachments {
		signed, err := s.signer.SignedReadURL(s.bucket, attachment.ObjectKey, s.readTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "signing attachment url")
		}
		urls = append(urls, signed)
	}
	return urls, nil
}
