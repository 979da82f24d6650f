package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tx(txType TransactionType, amount float64) Transaction {
	return Transaction{Type: txType, NetAmount: amount, Status: StatusActive, OccurredAt: time.Now()}
}

func TestReplayBasicFlow(t *testing.T) {
	history := []Transaction{
		tx(TypeInvoice, 100),
		tx(TypePayment, 40),
		tx(TypeDebitNote, 10),
	}

	b := Replay(history)
	require.InDelta(t, 70.0, b.Pending, 0.001)
	require.InDelta(t, 0.0, b.Advance, 0.001)
}

func TestReplayOverpaymentClampsToAdvance(t *testing.T) {
	history := []Transaction{
		tx(TypeInvoice, 100),
		tx(TypePayment, 150),
	}

	b := Replay(history)
	require.InDelta(t, 0.0, b.Pending, 0.001)
	require.InDelta(t, 50.0, b.Advance, 0.001)

	// A later invoice raises pending again; the advance stays put.
	history = append(history, tx(TypeInvoice, 30))
	b = Replay(history)
	require.InDelta(t, 30.0, b.Pending, 0.001)
	require.InDelta(t, 50.0, b.Advance, 0.001)
}

func TestReplaySkipsCancelled(t *testing.T) {
	cancelled := tx(TypeInvoice, 500)
	cancelled.Status = StatusCancelled
	history := []Transaction{
		cancelled,
		tx(TypeInvoice, 100),
		tx(TypeCreditNote, 25),
	}

	b := Replay(history)
	require.InDelta(t, 75.0, b.Pending, 0.001)
}

func TestReplayIsIdempotent(t *testing.T) {
	history := []Transaction{
		tx(TypeInvoice, 120.50),
		tx(TypePayment, 200),
		tx(TypeInvoice, 80),
		tx(TypeCreditNote, 10.25),
	}

	first := Replay(history)
	second := Replay(history)
	require.Equal(t, first, second)
}

func TestReplayEmptyHistory(t *testing.T) {
	b := Replay(nil)
	require.Zero(t, b.Pending)
	require.Zero(t, b.Advance)
}
