package model

import "github.com/shopspring/decimal"

// Property summary category names. These five are fixed; everything else
// rolls into the outgoings view.
const (
	CategoryMortgage        = "Mortgage"
	CategoryPropertyExpense = "PropertyExpense"
	CategoryServiceCharge   = "ServiceCharge"
	CategoryOurRent         = "OurRent"
	CategoryBealsRent       = "BealsRent"
)

// PropertySummaryCategories returns the fixed category set of the property
// summary view.
func PropertySummaryCategories() []string {
	return []string{
		CategoryMortgage,
		CategoryPropertyExpense,
		CategoryServiceCharge,
		CategoryOurRent,
		CategoryBealsRent,
	}
}

// PropertySummaryRow is one month of the property summary report.
type PropertySummaryRow struct {
	Month           string          `json:"month"`
	Mortgage        decimal.Decimal `json:"Mortgage"`
	PropertyExpense decimal.Decimal `json:"PropertyExpense"`
	ServiceCharge   decimal.Decimal `json:"ServiceCharge"`
	OurRent         decimal.Decimal `json:"OurRent"`
	BealsRent       decimal.Decimal `json:"BealsRent"`
	TotalRent       decimal.Decimal `json:"TotalRent"`
	NetProfit       decimal.Decimal `json:"NetProfit"`
}

// OutgoingsRow is one month of category sums outside the property summary set.
type OutgoingsRow struct {
	Totals map[string]decimal.Decimal `json:"totals"`
	Month  string                     `json:"month"`
}

// PersonalSpendingRow is one month of subcategory sums for the configured
// personal-spending categories.
type PersonalSpendingRow struct {
	Totals map[string]decimal.Decimal `json:"totals"`
	Month  string                     `json:"month"`
}

// ReportSummary bundles the three parallel monthly series.
type ReportSummary struct {
	PropertySummary  []PropertySummaryRow  `json:"property_summary"`
	Outgoings        []OutgoingsRow        `json:"outgoings"`
	PersonalSpending []PersonalSpendingRow `json:"personal_spending"`
}
