package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

// EntryInput describes a single wallet credit or debit. SourceID plus
// Reference form the idempotency key: a repeated entry for the same
// source is a no-op.
type EntryInput struct {
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Reference string
	SourceID  *uuid.UUID
}

// Service maintains buyer wallet balances.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	user, err := s.repo.LockUser(ctx, userID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	return user.WalletBalance, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	return s.post(ctx, tx, enums.StatementEntryTypeCredit, input)
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	return s.post(ctx, tx, enums.StatementEntryTypeDebit, input)
}

func (s *service) post(ctx context.Context, tx *gorm.DB, entryType enums.StatementEntryType, input EntryInput) (*models.WalletTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	repo := s.repo.WithTx(tx)

	if input.SourceID != nil {
		exists, err := repo.HasEntry(ctx, input.UserID, entryType, input.Reference, *input.SourceID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking wallet entry")
		}
		if exists {
			return nil, nil
		}
	}

	user, err := repo.LockUser(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}

	balance := user.WalletBalance
	if entryType == enums.StatementEntryTypeDebit {
		if balance.LessThan(input.Amount) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient wallet balance")
		}
		balance = balance.Sub(input.Amount)
	} else {
		balance = balance.Add(input.Amount)
	}

	txn := &models.WalletTransaction{
		UserID:       input.UserID,
		EntryType:    entryType,
		Amount:       input.Amount,
		BalanceAfter: balance,
		Reference:    input.Reference,
		SourceID:     input.SourceID,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording wallet transaction")
	}

	user.WalletBalance = balance
	if err := repo.SaveBalance(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating wallet balance")
	}
	return txn, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	txns, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing wallet transactions")
	}
	return txns, nil
}
