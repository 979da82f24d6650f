package ledger

// Replay folds an ordered transaction history into the party's balances.
// Invoices and debit notes raise pending debt; payments and credit notes
// settle it. When a settlement overshoots the pending balance the overflow
// moves to the advance balance and pending clamps at zero, so overpayments
// are always accounted for rather than rejected or lost.
//
// Replay is a pure function of its input: cancelled rows are skipped, the
// input is never mutated, and replaying the same history twice yields the
// same balances. Anything cached elsewhere that disagrees with Replay is
// stale and must be recomputed from here, never the reverse.
func Replay(txs []Transaction) Balance {
	var b Balance
	for _, tx := range txs {
		if tx.Status == StatusCancelled {
			continue
		}
		switch tx.Type {
		case TypeInvoice, TypeDebitNote:
			b.Pending += tx.NetAmount
		case TypePayment, TypeCreditNote:
			b.Pending -= tx.NetAmount
			if b.Pending < 0 {
				b.Advance += -b.Pending
				b.Pending = 0
			}
		}
	}
	return b
}
