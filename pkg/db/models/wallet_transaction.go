package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// WalletTransaction is an append-only line on a buyer's wallet. The
// wallet balance on the user row is the running sum of these lines.
type WalletTransaction struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	EntryType    enums.StatementEntryType `gorm:"column:entry_type;type:statement_entry_type;not null"`
	Amount       decimal.Decimal          `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter decimal.Decimal          `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Reference    string                   `gorm:"column:reference;not null"`
	SourceID     *uuid.UUID               `gorm:"column:source_id;type:uuid"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
}
