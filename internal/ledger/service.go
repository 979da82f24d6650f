package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindByEntity(ctx context.Context, entityType EntityType, entityID int64, excludeCancelled bool) ([]Transaction, error)
	GetCreditProfile(ctx context.Context, entityType EntityType, entityID int64) (CreditProfile, error)
	ListEntities(ctx context.Context, entityType EntityType) ([]int64, error)
	GetCachedBalance(ctx context.Context, entityType EntityType, entityID int64) (Balance, error)
}

// TxRepository exposes the operations available inside a ledger transaction.
// LockEntity must be called first: it serializes all writes against the same
// party so two concurrent payments cannot both pass a credit check computed
// from a stale balance.
type TxRepository interface {
	LockEntity(ctx context.Context, entityType EntityType, entityID int64) error
	ListTransactions(ctx context.Context, entityType EntityType, entityID int64, excludeCancelled bool) ([]Transaction, error)
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	MarkCancelled(ctx context.Context, id int64) error
	UpdateCachedBalance(ctx context.Context, entityType EntityType, entityID int64, b Balance, at time.Time) error
}

// PeriodGuard rejects writes dated inside closed accounting periods.
type PeriodGuard interface {
	EnsureOpen(ctx context.Context, date time.Time, operation string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns all ledger writes. Balances exposed by the service always
// come from replaying the transaction history.
type Service struct {
	repo    RepositoryPort
	periods PeriodGuard
	audit   AuditPort
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, periods PeriodGuard, audit AuditPort) *Service {
	return &Service{repo: repo, periods: periods, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RecordInput describes a ledger transaction to append.
type RecordInput struct {
	EntityType EntityType
	EntityID   int64
	Type       TransactionType
	Amount     float64
	OccurredAt time.Time
	Note       string
	ActorID    int64
}

// RecordResult reports the accepted transaction together with the replayed
// balance and, for payments, how the amount was routed.
type RecordResult struct {
	Transaction Transaction       `json:"transaction"`
	Balance     Balance           `json:"balance"`
	Credit      *CreditCheck      `json:"credit,omitempty"`
	Split       *OverpaymentSplit `json:"split,omitempty"`
}

var (
	// ErrInvalidAmount indicates a non-positive transaction amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrInvalidEntity indicates a missing or unknown entity reference.
	ErrInvalidEntity = errors.New("ledger: entity type and id required")
	// ErrAlreadyCancelled indicates a repeated cancellation.
	ErrAlreadyCancelled = errors.New("ledger: transaction already cancelled")
)

// RecordTransaction validates and appends one ledger transaction. Debt-
// raising customer transactions pass the credit check; payments are split
// across pending and advance. The cached summary is refreshed from the
// replayed history inside the same transaction.
func (s *Service) RecordTransaction(ctx context.Context, input RecordInput) (RecordResult, error) {
	if input.EntityID == 0 || (input.EntityType != EntityCustomer && input.EntityType != EntitySupplier) {
		return RecordResult{}, ErrInvalidEntity
	}
	if input.Amount <= 0 {
		return RecordResult{}, ErrInvalidAmount
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now().UTC()
	}
	if s.periods != nil {
		if err := s.periods.EnsureOpen(ctx, occurredAt, "ledger.record"); err != nil {
			return RecordResult{}, err
		}
	}

	var result RecordResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockEntity(ctx, input.EntityType, input.EntityID); err != nil {
			return err
		}
		history, err := tx.ListTransactions(ctx, input.EntityType, input.EntityID, true)
		if err != nil {
			return err
		}
		current := Replay(history)

		switch input.Type {
		case TypeInvoice, TypeDebitNote:
			if input.EntityType == EntityCustomer {
				profile, err := s.repo.GetCreditProfile(ctx, input.EntityType, input.EntityID)
				if err != nil {
					return err
				}
				check, err := CheckCredit(profile, current.Pending, input.Amount)
				if err != nil {
					return err
				}
				result.Credit = &check
			}
		case TypePayment, TypeCreditNote:
			split := SplitOverpayment(input.Amount, current.Pending)
			result.Split = &split
		default:
			return fmt.Errorf("ledger: unknown transaction type %q", input.Type)
		}

		row := Transaction{
			EntityType: input.EntityType,
			EntityID:   input.EntityID,
			Type:       input.Type,
			NetAmount:  input.Amount,
			Status:     StatusActive,
			Note:       input.Note,
			OccurredAt: occurredAt,
			CreatedBy:  input.ActorID,
		}
		id, err := tx.InsertTransaction(ctx, row)
		if err != nil {
			return err
		}
		row.ID = id

		balance := Replay(append(history, row))
		if err := tx.UpdateCachedBalance(ctx, input.EntityType, input.EntityID, balance, s.now().UTC()); err != nil {
			return err
		}
		result.Transaction = row
		result.Balance = balance
		return nil
	})
	if err != nil {
		return RecordResult{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("ledger:%s", input.Type),
			Entity:   "ledger_transaction",
			EntityID: fmt.Sprintf("%d", result.Transaction.ID),
			Meta: map[string]any{
				"entity_type": input.EntityType,
				"entity_id":   input.EntityID,
				"amount":      input.Amount,
			},
			At: s.now().UTC(),
		})
	}
	return result, nil
}

// CancelTransaction marks a transaction cancelled and refreshes the cached
// balance. History is never deleted; cancellation is itself part of it.
func (s *Service) CancelTransaction(ctx context.Context, id, actorID int64) (Balance, error) {
	var balance Balance
	var row Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}
		if s.periods != nil {
			if err := s.periods.EnsureOpen(ctx, current.OccurredAt, "ledger.cancel"); err != nil {
				return err
			}
		}
		if err := tx.LockEntity(ctx, current.EntityType, current.EntityID); err != nil {
			return err
		}
		if err := tx.MarkCancelled(ctx, id); err != nil {
			return err
		}
		history, err := tx.ListTransactions(ctx, current.EntityType, current.EntityID, true)
		if err != nil {
			return err
		}
		balance = Replay(history)
		row = current
		return tx.UpdateCachedBalance(ctx, current.EntityType, current.EntityID, balance, s.now().UTC())
	})
	if err != nil {
		return Balance{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "ledger:CANCEL",
			Entity:   "ledger_transaction",
			EntityID: fmt.Sprintf("%d", id),
			Meta: map[string]any{
				"entity_type": row.EntityType,
				"entity_id":   row.EntityID,
			},
			At: s.now().UTC(),
		})
	}
	return balance, nil
}

// AuthoritativeBalance replays the full non-cancelled history for a party.
// This is the single source of truth for pending and advance balances.
func (s *Service) AuthoritativeBalance(ctx context.Context, entityType EntityType, entityID int64) (Balance, error) {
	if entityID == 0 {
		return Balance{}, ErrInvalidEntity
	}
	history, err := s.repo.FindByEntity(ctx, entityType, entityID, true)
	if err != nil {
		return Balance{}, err
	}
	return Replay(history), nil
}

// ValidateCreditLimit checks a prospective transaction amount against the
// customer's ceiling using the replayed balance.
func (s *Service) ValidateCreditLimit(ctx context.Context, customerID int64, amount float64) (CreditCheck, error) {
	if amount <= 0 {
		return CreditCheck{}, ErrInvalidAmount
	}
	profile, err := s.repo.GetCreditProfile(ctx, EntityCustomer, customerID)
	if err != nil {
		return CreditCheck{}, err
	}
	balance, err := s.AuthoritativeBalance(ctx, EntityCustomer, customerID)
	if err != nil {
		return CreditCheck{}, err
	}
	return CheckCredit(profile, balance.Pending, amount)
}

// ResolveOverpayment reports how a payment of the given amount would be
// routed for the customer right now.
func (s *Service) ResolveOverpayment(ctx context.Context, customerID int64, paymentAmount float64) (OverpaymentSplit, error) {
	if paymentAmount <= 0 {
		return OverpaymentSplit{}, ErrInvalidAmount
	}
	balance, err := s.AuthoritativeBalance(ctx, EntityCustomer, customerID)
	if err != nil {
		return OverpaymentSplit{}, err
	}
	return SplitOverpayment(paymentAmount, balance.Pending), nil
}

// RefreshEntityBalance recomputes the cached summary from the replayed
// history. It is the only code path allowed to write those columns.
func (s *Service) RefreshEntityBalance(ctx context.Context, entityType EntityType, entityID int64) (Balance, error) {
	var balance Balance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockEntity(ctx, entityType, entityID); err != nil {
			return err
		}
		history, err := tx.ListTransactions(ctx, entityType, entityID, true)
		if err != nil {
			return err
		}
		balance = Replay(history)
		return tx.UpdateCachedBalance(ctx, entityType, entityID, balance, s.now().UTC())
	})
	if err != nil {
		return Balance{}, err
	}
	return balance, nil
}
