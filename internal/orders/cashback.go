package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/internal/wallet"
	"github.com/nearbasket/nearbasket-backend/pkg/config"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
)

const (
	walletRefPromoCashback = "promo_cashback"

	cashbackSweepBatch = 200
)

// CashbackSweeper credits the wallet for cashback promos on completed
// orders once the hold period after delivery has elapsed. The wallet
// ledger dedupes on (order, reference), so re-running the sweep over
// an already-credited order is a no-op.
type CashbackSweeper struct {
	repo   Repository
	tx     txRunner
	wallet walletLedger
	cfg    config.DeliveryConfig
	logg   *logger.Logger
}

// NewCashbackSweeper builds the sweep with its collaborators.
func NewCashbackSweeper(
	repo Repository,
	tx txRunner,
	walletSvc walletLedger,
	cfg config.DeliveryConfig,
	logg *logger.Logger,
) (*CashbackSweeper, error) {
	if repo == nil || tx == nil || walletSvc == nil || logg == nil {
		return nil, fmt.Errorf("orders: cashback sweeper requires repo, tx, wallet, and logger")
	}
	return &CashbackSweeper{
		repo:   repo,
		tx:     tx,
		wallet: walletSvc,
		cfg:    cfg,
		logg:   logg,
	}, nil
}

// AwardPendingCashback runs one sweep and returns how many orders were
// credited. A failed order is logged and skipped so the rest of the
// batch still settles.
func (s *CashbackSweeper) AwardPendingCashback(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.CashbackHoldPeriod)
	candidates, err := s.repo.ListCashbackCandidates(ctx, cutoff, cashbackSweepBatch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing cashback candidates")
	}

	awarded := 0
	for i := range candidates {
		order := candidates[i]
		if order.Promo == nil || !order.Promo.Cashback || order.Promo.Awarded {
			continue
		}
		if !order.Promo.Discount.IsPositive() {
			continue
		}
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.award(ctx, tx, &order)
		})
		if err != nil {
			s.logg.Error(s.logg.WithField(ctx, "order_id", order.ID.String()), "cashback award failed", err)
			continue
		}
		awarded++
	}
	return awarded, nil
}

func (s *CashbackSweeper) award(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	orderID := order.ID
	if _, err := s.wallet.Credit(ctx, tx, wallet.EntryInput{
		UserID:    order.UserID,
		Amount:    order.Promo.Discount,
		Reference: walletRefPromoCashback,
		SourceID:  &orderID,
	}); err != nil {
		return err
	}
	now := time.Now()
	order.Promo.Awarded = true
	order.Promo.AwardedAt = &now
	return s.repo.WithTx(tx).SaveOrder(ctx, order)
}
