package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

var (
	// ErrJournalNotFound indicates the journal entry does not exist.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrInvalidStatus indicates the entry is not in a state the operation
	// accepts.
	ErrInvalidStatus = errors.New("accounting: journal status invalid for operation")
	// ErrSourceAlreadyLinked indicates the source document already produced
	// a journal entry.
	ErrSourceAlreadyLinked = errors.New("accounting: source already linked to a journal entry")
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PeriodGuard gates postings on the accounting calendar.
type PeriodGuard interface {
	EnsureOpen(ctx context.Context, date time.Time, operation string) error
}

// Service posts and voids journal entries.
type Service struct {
	repo    Repository
	audit   AuditPort
	periods PeriodGuard
	now     func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, periods PeriodGuard, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, periods: periods, now: time.Now}
}

// WithNow overrides the clock, used in tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// List returns all journal entries, newest first.
func (s *Service) List(ctx context.Context) ([]JournalEntry, error) {
	return s.repo.List(ctx)
}

// ValidateEntries runs the balancing check without persisting anything.
func (s *Service) ValidateEntries(entries []EntryAmounts) (BalanceTotals, error) {
	return ValidateDoubleEntry(entries)
}

// PostJournal validates and persists a balanced journal entry. The balancing
// check and the period gate both run before any write; a rejection leaves no
// trace.
func (s *Service) PostJournal(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	totals, err := ValidateDoubleEntry(input.amounts())
	if err != nil {
		return JournalEntry{}, err
	}
	if s.periods != nil {
		if err := s.periods.EnsureOpen(ctx, input.Date, "journal.post"); err != nil {
			return JournalEntry{}, err
		}
	}
	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertJournalEntry(ctx, input)
		if err != nil {
			return err
		}
		if err := tx.InsertJournalLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, input.SourceModule, input.SourceID, inserted.ID); err != nil {
			return err
		}
		inserted.Lines = toJournalLines(inserted.ID, input.Lines, s.now())
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.PostedBy,
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"number":        entry.Number,
				"source_module": input.SourceModule,
				"source_id":     input.SourceID.String(),
				"total_debits":  totals.TotalDebits,
			},
			At: s.now(),
		})
	}
	return entry, nil
}

// VoidJournal marks a posted entry void. The entry's own date decides
// whether the period gate allows it; voiding is an edit of history.
func (s *Service) VoidJournal(ctx context.Context, input VoidInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("accounting: entry id required")
	}
	var entry JournalEntry
	var lines []JournalLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, currLines, err := tx.GetJournalWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if s.periods != nil {
			if err := s.periods.EnsureOpen(ctx, current.Date, "journal.void"); err != nil {
				return err
			}
		}
		if current.Status != JournalStatusPosted {
			return ErrInvalidStatus
		}
		if err := tx.UpdateJournalStatus(ctx, current.ID, JournalStatusVoid); err != nil {
			return err
		}
		entry = current
		entry.Status = JournalStatusVoid
		lines = currLines
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "journal.void",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta:     map[string]any{"reason": input.Reason},
			At:       s.now(),
		})
	}
	return entry, nil
}

func toJournalLines(entryID int64, lines []PostingLineInput, ts time.Time) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			JournalID: entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			CreatedAt: ts,
			UpdatedAt: ts,
		})
	}
	return out
}
