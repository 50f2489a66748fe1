// Package ledger implements the credit-ledger mutation protocol (Consume,
// Refund, Allocate, Adjust) and its read-side query handlers (GetBalance,
// ListTransactions, EstimateCost).
//
// Money invariants:
// - No balance updates without a CreditTransaction entry.
// - The transaction log is append-only (immutable).
// - Every mutation runs inside a unit-of-work scope holding the ledger
//   row's exclusive lock for its duration.
//
// Tenancy invariant:
// - tenant_id is required and enforced in every query.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"billingledger/internal/apperror"
	"billingledger/internal/domain"
	"billingledger/internal/store"
	"billingledger/internal/unitofwork"

	"github.com/shopspring/decimal"
)

// maxIdempotencyRaceRetries bounds the retry loop described in spec §4.3
// step 7: losing the duplicate-key race means the winner already
// committed, so re-reading from step 1 always terminates within a couple
// of attempts. Five is generous headroom, not a tuned constant.
const maxIdempotencyRaceRetries = 5

// Service wires the ledger protocol's collaborators: a unit-of-work scope
// and the two repositories the protocol touches. Constructed once at
// process start; no runtime reflection, no service-locator.
type Service struct {
	uow     unitofwork.UnitOfWork
	ledgers store.LedgerStore
	txs     store.TransactionStore
	clock   func() time.Time
}

func NewService(uow unitofwork.UnitOfWork, ledgers store.LedgerStore, txs store.TransactionStore) *Service {
	return &Service{uow: uow, ledgers: ledgers, txs: txs, clock: time.Now}
}

func (s *Service) Consume(ctx context.Context, req MutationRequest) (domain.CreditTransaction, error) {
	if err := validateMutation(req); err != nil {
		return domain.CreditTransaction{}, err
	}
	if req.Amount.Sign() <= 0 {
		return domain.CreditTransaction{}, apperror.New(apperror.ValidationError, "amount must be positive")
	}
	tx, err := s.execute(ctx, domain.TransactionConsume, req)
	if err != nil {
		if ae, ok := apperror.As(err); ok {
			return domain.CreditTransaction{}, ae
		}
		return domain.CreditTransaction{}, apperror.Wrap(apperror.ConsumeCreditFailed, "consume failed", err)
	}
	return tx, nil
}

func (s *Service) Refund(ctx context.Context, req MutationRequest) (domain.CreditTransaction, error) {
	if err := validateMutation(req); err != nil {
		return domain.CreditTransaction{}, err
	}
	if req.Amount.Sign() <= 0 {
		return domain.CreditTransaction{}, apperror.New(apperror.ValidationError, "amount must be positive")
	}
	tx, err := s.execute(ctx, domain.TransactionRefund, req)
	if err != nil {
		if ae, ok := apperror.As(err); ok {
			return domain.CreditTransaction{}, ae
		}
		return domain.CreditTransaction{}, apperror.Wrap(apperror.RefundCreditFailed, "refund failed", err)
	}
	return tx, nil
}

// Allocate is the only mutation that creates a ledger when one is absent.
func (s *Service) Allocate(ctx context.Context, req MutationRequest) (domain.CreditTransaction, error) {
	if err := validateMutation(req); err != nil {
		return domain.CreditTransaction{}, err
	}
	if req.Amount.Sign() <= 0 {
		return domain.CreditTransaction{}, apperror.New(apperror.ValidationError, "amount must be positive")
	}
	tx, err := s.execute(ctx, domain.TransactionAllocate, req)
	if err != nil {
		if ae, ok := apperror.As(err); ok {
			return domain.CreditTransaction{}, ae
		}
		return domain.CreditTransaction{}, apperror.Wrap(apperror.AllocateCreditFailed, "allocate failed", err)
	}
	return tx, nil
}

// Adjust posts a signed delta directly, for the hidden billing_ops admin
// path. Unlike Consume/Refund/Allocate, req.Amount may be negative; it is
// stored and applied as-is (apply() already adds the signed amount for
// ADJUST).
func (s *Service) Adjust(ctx context.Context, req MutationRequest) (domain.CreditTransaction, error) {
	if req.TenantID == "" || req.IdempotencyKey == "" {
		return domain.CreditTransaction{}, apperror.New(apperror.ValidationError, "tenant_id and idempotency_key are required")
	}
	if req.Amount.IsZero() {
		return domain.CreditTransaction{}, apperror.New(apperror.ValidationError, "amount must be non-zero")
	}
	tx, err := s.execute(ctx, domain.TransactionAdjust, req)
	if err != nil {
		if ae, ok := apperror.As(err); ok {
			return domain.CreditTransaction{}, ae
		}
		return domain.CreditTransaction{}, apperror.Wrap(apperror.ConsumeCreditFailed, "adjust failed", err)
	}
	return tx, nil
}

func validateMutation(req MutationRequest) error {
	if req.TenantID == "" {
		return apperror.New(apperror.ValidationError, "tenant_id is required")
	}
	if req.IdempotencyKey == "" {
		return apperror.New(apperror.ValidationError, "idempotency_key is required")
	}
	return nil
}

// execute is the transactional template shared by all four mutations
// (spec §4.3): idempotency check, locked ledger read, balance math,
// insufficient-credit guard, append-only insert, balance update, commit.
// A duplicate-key race at the insert step rolls the scope back and
// retries from the top — the winner of the race has, by definition,
// already committed, so the retry observes it at step 1.
func (s *Service) execute(ctx context.Context, op domain.TransactionType, req MutationRequest) (domain.CreditTransaction, error) {
	var result domain.CreditTransaction

	for attempt := 0; attempt < maxIdempotencyRaceRetries; attempt++ {
		err := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
			existing, ok, err := s.txs.GetByIdempotencyKey(ctx, tx, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				result = existing
				return nil
			}

			l, err := s.ledgers.GetByTenant(ctx, tx, req.TenantID, true)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					if op != domain.TransactionAllocate {
						return apperror.New(apperror.LedgerNotFound, "no ledger for tenant "+req.TenantID)
					}
					now := s.clock().UTC()
					if _, err := s.ledgers.Create(ctx, tx, req.TenantID, decimal.Zero, now); err != nil {
						return err
					}
					l, err = s.ledgers.GetByTenant(ctx, tx, req.TenantID, true)
					if err != nil {
						return err
					}
				} else {
					return err
				}
			}

			balanceBefore := l.Balance
			balanceAfter := domain.Apply(op, balanceBefore, req.Amount)

			if op == domain.TransactionConsume && balanceAfter.IsNegative() {
				return apperror.New(apperror.InsufficientCredit, "insufficient credit").
					WithDetail("available", balanceBefore.String()).
					WithDetail("required", req.Amount.String())
			}

			now := s.clock().UTC()
			entry := domain.CreditTransaction{
				TenantID:       req.TenantID,
				LedgerID:       l.ID,
				Type:           op,
				Amount:         req.Amount,
				BalanceBefore:  balanceBefore,
				BalanceAfter:   balanceAfter,
				ReferenceType:  req.ReferenceType,
				ReferenceID:    req.ReferenceID,
				IdempotencyKey: req.IdempotencyKey,
				Metadata:       req.Metadata,
				CreatedAt:      now,
			}
			created, err := s.txs.Create(ctx, tx, entry)
			if err != nil {
				return err
			}

			if _, err := s.ledgers.UpdateBalance(ctx, tx, l.ID, balanceAfter, now); err != nil {
				return err
			}

			result = created
			return nil
		})

		if err == nil {
			return result, nil
		}
		if errors.Is(err, store.ErrDuplicateIdempotencyKey) {
			continue
		}
		return domain.CreditTransaction{}, err
	}

	return domain.CreditTransaction{}, apperror.New(apperror.ConsumeCreditFailed, "exhausted idempotency-race retries")
}

func (s *Service) GetBalance(ctx context.Context, tenantID string) (BalanceSnapshot, error) {
	var snap BalanceSnapshot
	err := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		l, err := s.ledgers.GetByTenant(ctx, tx, tenantID, false)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperror.New(apperror.LedgerNotFound, "no ledger for tenant "+tenantID)
			}
			return err
		}
		snap = BalanceSnapshot{TenantID: l.TenantID, Balance: l.Balance, UpdatedAt: l.UpdatedAt}
		return nil
	})
	if err != nil {
		if ae, ok := apperror.As(err); ok {
			return BalanceSnapshot{}, ae
		}
		return BalanceSnapshot{}, err
	}
	return snap, nil
}

func (s *Service) ListTransactions(ctx context.Context, tenantID string, limit, offset int) (TransactionPage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = DefaultListOffset
	}

	var page store.Page[domain.CreditTransaction]
	err := s.uow.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		page, err = s.txs.GetByTenant(ctx, tx, tenantID, limit, offset)
		return err
	})
	if err != nil {
		return TransactionPage{}, err
	}
	return TransactionPage{Items: page.Items, Total: page.Total, Limit: limit, Offset: offset}, nil
}
