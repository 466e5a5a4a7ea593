package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/infrastructure/metrics"
)

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
	metrics    *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase. metrics may be nil.
func NewLedgerUseCase(ledgerRepo LedgerRepository, metrics *metrics.Metrics) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
		metrics:    metrics,
	}
}

// CheckConsistency audits the stored ledger: every transaction must balance,
// no balance may be negative and every balance must equal the net of its
// entries.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*domain.ConsistencyReport, error) {
	unbalanced, err := uc.ledgerRepo.UnbalancedTransactions(ctx)
	if err != nil {
		uc.record("error")
		return nil, storeError("unbalanced transactions", err)
	}

	negative, err := uc.ledgerRepo.NegativeBalanceAccounts(ctx)
	if err != nil {
		uc.record("error")
		return nil, storeError("negative balances", err)
	}

	drifts, err := uc.ledgerRepo.BalanceDrifts(ctx)
	if err != nil {
		uc.record("error")
		return nil, storeError("balance drifts", err)
	}

	report := &domain.ConsistencyReport{
		UnbalancedTransactions: unbalanced,
		NegativeAccounts:       negative,
		Drifts:                 drifts,
		CheckedAt:              time.Now().UTC(),
	}

	if report.Consistent() {
		uc.record("consistent")
	} else {
		uc.record("inconsistent")
		zerolog.Ctx(ctx).Error().
			Strs("unbalanced_transactions", unbalanced).
			Strs("negative_accounts", negative).
			Int("drifts", len(drifts)).
			Msg("ledger inconsistency detected")
	}

	return report, nil
}

func (uc *LedgerUseCase) record(result string) {
	if uc.metrics != nil {
		uc.metrics.ConsistencyChecks.WithLabelValues(result).Inc()
	}
}
