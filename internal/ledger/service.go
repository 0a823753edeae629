package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

// Service records money movements on seller accounts.
type Service interface {
	Post(ctx context.Context, tx *gorm.DB, input PostStatementInput) (*models.SellerStatement, error)
	HasEntry(ctx context.Context, sellerID, sourceID uuid.UUID, entryType enums.StatementEntryType, reason enums.StatementReason) (bool, error)
	Statements(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerStatement, error)
	PendingBalance(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error)
	SettlePending(ctx context.Context, sellerID uuid.UUID) (int, error)
}

type service struct {
	repo Repository
}

// PostStatementInput captures the immutable data a statement line requires.
// (SellerID, SourceID, EntryType, Reason) identifies the line; posting the
// same combination again returns nil without writing.
type PostStatementInput struct {
	SellerID  uuid.UUID                `json:"seller_id"`
	SourceID  uuid.UUID                `json:"source_id"`
	EntryType enums.StatementEntryType `json:"entry_type"`
	Reason    enums.StatementReason    `json:"reason"`
	Amount    decimal.Decimal          `json:"amount"`
	Metadata  json.RawMessage          `json:"metadata"`
}

// NewService wires a statement service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "statement repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Post(ctx context.Context, tx *gorm.DB, input PostStatementInput) (*models.SellerStatement, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if input.SourceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source id is required")
	}
	if !input.EntryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid entry type")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid statement reason")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	exists, err := repo.HasEntry(ctx, input.SellerID, input.SourceID, input.EntryType, input.Reason)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking statement entry")
	}
	if exists {
		return nil, nil
	}

	statement := &models.SellerStatement{
		SellerID:   input.SellerID,
		SourceID:   input.SourceID,
		EntryType:  input.EntryType,
		Reason:     input.Reason,
		Amount:     input.Amount,
		Settlement: enums.SettlementStatusPending,
		Metadata:   input.Metadata,
	}
	if err := repo.Create(ctx, statement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating statement")
	}
	return statement, nil
}

func (s *service) HasEntry(ctx context.Context, sellerID, sourceID uuid.UUID, entryType enums.StatementEntryType, reason enums.StatementReason) (bool, error) {
	if sellerID == uuid.Nil || sourceID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "seller id and source id are required")
	}
	return s.repo.HasEntry(ctx, sellerID, sourceID, entryType, reason)
}

func (s *service) Statements(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerStatement, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.repo.ListBySeller(ctx, sellerID, limit)
}

// PendingBalance sums unsettled credits minus unsettled debits.
func (s *service) PendingBalance(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error) {
	if sellerID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	statements, err := s.repo.ListPendingBySeller(ctx, sellerID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing pending statements")
	}

	balance := decimal.Zero
	for _, statement := range statements {
		if statement.EntryType == enums.StatementEntryTypeCredit {
			balance = balance.Add(statement.Amount)
		} else {
			balance = balance.Sub(statement.Amount)
		}
	}
	return balance, nil
}

// SettlePending marks every pending line for the seller as settled and
// returns how many lines were settled.
func (s *service) SettlePending(ctx context.Context, sellerID uuid.UUID) (int, error) {
	if sellerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	statements, err := s.repo.ListPendingBySeller(ctx, sellerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing pending statements")
	}
	if len(statements) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(statements))
	for _, statement := range statements {
		ids = append(ids, statement.ID)
	}
	if err := s.repo.MarkSettled(ctx, ids, time.Now().UTC()); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settling statements")
	}
	return len(ids), nil
}
