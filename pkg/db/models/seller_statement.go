package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// SellerStatement is an append-only money line on a seller's account.
// (SellerID, SourceID, EntryType, Reason) is unique so replayed
// business events never double-post.
type SellerStatement struct {
	ID        uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID  uuid.UUID                `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:idx_statement_source"`
	SourceID  uuid.UUID                `gorm:"column:source_id;type:uuid;not null;uniqueIndex:idx_statement_source"`
	EntryType enums.StatementEntryType `gorm:"column:entry_type;type:statement_entry_type;not null;uniqueIndex:idx_statement_source"`
	Reason    enums.StatementReason    `gorm:"column:reason;type:statement_reason;not null;uniqueIndex:idx_statement_source"`

	Amount     decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Settlement enums.SettlementStatus `gorm:"column:settlement;type:settlement_status;not null;default:'pending'"`
	SettledAt  *time.Time             `gorm:"column:settled_at"`
	Metadata   json.RawMessage        `gorm:"column:metadata;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
