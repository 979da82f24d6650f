package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateEquationBalanced(t *testing.T) {
	check, err := ValidateEquation(1000, 400, 600)
	require.NoError(t, err)
	require.True(t, check.Balanced)
	require.InDelta(t, 1000.0, check.Assets, 0.001)
	require.InDelta(t, 1000.0, check.LiabilitiesEquity, 0.001)
}

func TestValidateEquationImbalance(t *testing.T) {
	_, err := ValidateEquation(1000, 400, 550)
	var imbalance *ImbalanceError
	require.ErrorAs(t, err, &imbalance)
	require.Equal(t, "BALANCE_SHEET_IMBALANCE", imbalance.Code())
	require.InDelta(t, 50.0, imbalance.Difference, 0.001)
}

func TestValidateEquationTolerance(t *testing.T) {
	_, err := ValidateEquation(1000.009, 400, 600)
	require.NoError(t, err)

	_, err = ValidateEquation(1000.02, 400, 600)
	require.Error(t, err)
}

func TestBuildBalanceSheetSections(t *testing.T) {
	asOf := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	accounts := []AccountBalance{
		{Code: "1000", Name: "Cash", Class: "ASSET", Opening: 500, Debit: 100, Credit: 20},
		{Code: "1100", Name: "Inventory", Class: "ASSET", Opening: 200},
		{Code: "2000", Name: "Accounts Payable", Class: "LIABILITY", Opening: 300},
		{Code: "3000", Name: "Share Capital", Class: "EQUITY", Opening: 480},
		{Code: "4000", Name: "Sales", Class: "REVENUE", Credit: 1200},
	}

	sheet := BuildBalanceSheet(asOf, accounts)
	require.InDelta(t, 780.0, sheet.TotalAssets, 0.001)
	require.InDelta(t, 300.0, sheet.TotalLiabilities, 0.001)
	require.InDelta(t, 480.0, sheet.TotalEquity, 0.001)
	require.Len(t, sheet.Assets.Accounts, 2)
	require.Equal(t, "1000", sheet.Assets.Accounts[0].Code)
}

func TestBuildIncomeStatement(t *testing.T) {
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	accounts := []AccountBalance{
		{Code: "4000", Name: "Sales", Class: "REVENUE", Credit: 1200},
		{Code: "5000", Name: "Cost of Goods Sold", Class: "COGS", Debit: 300},
		{Code: "5100", Name: "Marketing", Class: "EXPENSE", Debit: 200},
	}

	statement := BuildIncomeStatement(from, to, accounts)
	require.InDelta(t, 1200.0, statement.Revenue.Total, 0.001)
	require.InDelta(t, 500.0, statement.Expense.Total, 0.001)
	require.InDelta(t, 700.0, statement.NetIncome, 0.001)
}
