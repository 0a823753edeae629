package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

// FakeStore keeps attachments in memory for tests and local runs.
type FakeStore struct {
	mu          sync.Mutex
	attachments []models.MediaAttachment
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (f *FakeStore) Attach(ctx context.Context, tx *gorm.DB, input AttachInput) (*models.MediaAttachment, error) {
	if input.ObjectKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object key is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	attachment := models.MediaAttachment{
		ID:         uuid.New(),
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		ObjectKey:  input.ObjectKey,
	}
	f.attachments = append(f.attachments, attachment)
	return &attachment, nil
}

func (f *FakeStore) URLsFor(ctx context.Context, entityType string, entityID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var urls []string
	for _, attachment := range f.attachments {
		if attachment.EntityType == entityType && attachment.EntityID == entityID {
			urls = append(urls, fmt.Sprintf("fake://%s", attachment.ObjectKey))
		}
	}
	return urls, nil
}
