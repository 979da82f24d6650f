package reports

import (
	"sort"
	"strings"
	"time"
)

// AccountBalance models a general ledger account with aggregated balances
// over the reporting window.
type AccountBalance struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Class   string  `json:"class"`
	Opening float64 `json:"opening"`
	Debit   float64 `json:"debit"`
	Credit  float64 `json:"credit"`
}

// Closing computes the closing balance for the account. Asset and expense
// accounts carry debit-normal balances; the rest credit-normal.
func (a AccountBalance) Closing() float64 {
	switch strings.ToUpper(a.Class) {
	case "ASSET", "EXPENSE", "COGS":
		return a.Opening + a.Debit - a.Credit
	default:
		return a.Opening + a.Credit - a.Debit
	}
}

// SheetSection contains the accounts and total for one side of the sheet.
type SheetSection struct {
	Label    string           `json:"label"`
	Accounts []AccountBalance `json:"accounts"`
	Total    float64          `json:"total"`
}

// BalanceSheet is a point-in-time snapshot. The equation invariant is
// enforced at generation time, so a persisted snapshot always balances.
type BalanceSheet struct {
	AsOf             time.Time    `json:"as_of"`
	Assets           SheetSection `json:"assets"`
	Liabilities      SheetSection `json:"liabilities"`
	Equity           SheetSection `json:"equity"`
	TotalAssets      float64      `json:"total_assets"`
	TotalLiabilities float64      `json:"total_liabilities"`
	TotalEquity      float64      `json:"total_equity"`
	GeneratedAt      time.Time    `json:"generated_at"`
}

// BuildBalanceSheet aggregates balances into assets, liabilities, and
// equity sections. Accounts outside those classes are ignored here; they
// feed the income statement instead.
func BuildBalanceSheet(asOf time.Time, accounts []AccountBalance) BalanceSheet {
	assets := SheetSection{Label: "Assets"}
	liabilities := SheetSection{Label: "Liabilities"}
	equity := SheetSection{Label: "Equity"}

	for _, acc := range accounts {
		acc.Opening = acc.Closing()
		acc.Debit, acc.Credit = 0, 0
		switch strings.ToUpper(acc.Class) {
		case "ASSET":
			assets.Accounts = append(assets.Accounts, acc)
			assets.Total += acc.Opening
		case "LIABILITY":
			liabilities.Accounts = append(liabilities.Accounts, acc)
			liabilities.Total += acc.Opening
		case "EQUITY":
			equity.Accounts = append(equity.Accounts, acc)
			equity.Total += acc.Opening
		}
	}

	for _, section := range []*SheetSection{&assets, &liabilities, &equity} {
		accs := section.Accounts
		sort.Slice(accs, func(i, j int) bool { return accs[i].Code < accs[j].Code })
	}

	return BalanceSheet{
		AsOf:             asOf,
		Assets:           assets,
		Liabilities:      liabilities,
		Equity:           equity,
		TotalAssets:      assets.Total,
		TotalLiabilities: liabilities.Total,
		TotalEquity:      equity.Total,
	}
}

// IncomeAccount represents a revenue or expense account summary.
type IncomeAccount struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// IncomeSection groups accounts by nature.
type IncomeSection struct {
	Label    string          `json:"label"`
	Accounts []IncomeAccount `json:"accounts"`
	Total    float64         `json:"total"`
}

// IncomeStatement contains the structured profit and loss output.
type IncomeStatement struct {
	From      time.Time     `json:"from"`
	To        time.Time     `json:"to"`
	Revenue   IncomeSection `json:"revenue"`
	Expense   IncomeSection `json:"expense"`
	NetIncome float64       `json:"net_income"`
}

// BuildIncomeStatement aggregates accounts into revenue and expense
// sections over the window.
func BuildIncomeStatement(from, to time.Time, accounts []AccountBalance) IncomeStatement {
	revenue := IncomeSection{Label: "Revenue"}
	expense := IncomeSection{Label: "Expense"}

	for _, acc := range accounts {
		row := IncomeAccount{Code: acc.Code, Name: acc.Name}
		switch strings.ToUpper(acc.Class) {
		case "REVENUE", "INCOME":
			row.Amount = acc.Credit - acc.Debit
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total += row.Amount
		case "EXPENSE", "COGS":
			row.Amount = acc.Debit - acc.Credit
			expense.Accounts = append(expense.Accounts, row)
			expense.Total += row.Amount
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return IncomeStatement{
		From:      from,
		To:        to,
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total - expense.Total,
	}
}
