package domain

import "time"

// ReportRow is a single row in a trip's expense report export.
// It is a flat, denormalized view: one row per payment, with expense fields
// repeated for every payment on that expense. Expenses with no payments yield
// one row with zero values for all payment fields.
type ReportRow struct {
	// Expense fields — repeated for every payment on the expense.
	ExpenseID     string
	ExpenseTitle  string
	ExpenseTotal  Money
	ExpensePaid   Money
	ExpenseStatus ExpenseStatus

	// Payment fields — zero values when the expense has no payments.
	PaymentID     string
	PaymentAmount Money
	PayerName     string
	PaidAt        *time.Time
}
