package journals

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostingLineInput describes a journal line for posting request.
type PostingLineInput struct {
	AccountID int64   `json:"account_id" validate:"required,gt=0"`
	Debit     float64 `json:"debit" validate:"gte=0"`
	Credit    float64 `json:"credit" validate:"gte=0"`
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	Date         time.Time          `json:"date" validate:"required"`
	SourceModule string             `json:"source_module" validate:"required"`
	SourceID     uuid.UUID          `json:"source_id" validate:"required"`
	Memo         string             `json:"memo"`
	PostedBy     int64              `json:"-"`
	Lines        []PostingLineInput `json:"lines"`
}

// Validate ensures posting input meets minimum criteria beyond balancing.
func (in PostingInput) Validate() error {
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("accounting: line %d missing account", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("accounting: line %d cannot be both debit and credit", idx)
		}
	}
	if in.SourceModule == "" {
		return errors.New("accounting: source module required")
	}
	if in.SourceID == uuid.Nil {
		return errors.New("accounting: source id required")
	}
	return nil
}

func (in PostingInput) amounts() []EntryAmounts {
	out := make([]EntryAmounts, 0, len(in.Lines))
	for _, line := range in.Lines {
		out = append(out, EntryAmounts{Debit: line.Debit, Credit: line.Credit})
	}
	return out
}

// VoidInput wraps parameters for voiding.
type VoidInput struct {
	EntryID int64
	ActorID int64
	Reason  string
}

// ValidateEntriesRequest carries raw entry amounts for a standalone balance
// check, used by callers composing an entry set before posting.
type ValidateEntriesRequest struct {
	Entries []PostingLineInput `json:"entries"`
}
