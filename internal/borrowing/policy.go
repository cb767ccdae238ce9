package borrowing

import (
	"github.com/shopspring/decimal"

	"libdesk/internal/domain"
)

const (
	DefaultLoanDays = 14
	DefaultCurrency = "$"
)

// Policy holds the loan and fine rules.
type Policy struct {
	LoanDays        int
	FinePerDay      decimal.Decimal
	Currency        string
	RestockOnReturn bool
}

func DefaultPolicy() Policy {
	return Policy{
		LoanDays:   DefaultLoanDays,
		FinePerDay: decimal.NewFromInt(5),
		Currency:   DefaultCurrency,
	}
}

// DueDate is issue + LoanDays calendar days.
func (p Policy) DueDate(issue domain.Date) domain.Date {
	days := p.LoanDays
	if days <= 0 {
		days = DefaultLoanDays
	}
	return issue.AddDays(days)
}

func (p Policy) Fine(daysPastDue int) decimal.Decimal {
	return p.FinePerDay.Mul(decimal.NewFromInt(int64(daysPastDue)))
}

// FormatMoney renders an amount with two decimals, e.g. "$45.00".
func (p Policy) FormatMoney(d decimal.Decimal) string {
	return p.Currency + d.StringFixed(2)
}
