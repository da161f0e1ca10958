// Package report derives summary figures and exports from snapshot
// data. All functions are pure over their inputs.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"rentport/core/internal/store"
)

// PaymentSummary aggregates a set of rent payments.
type PaymentSummary struct {
	TotalPaid    float64
	TotalPending float64
	TotalOverdue float64
	// OnTime counts paid payments whose paidDate is on or before
	// the due date.
	OnTime int
	Paid   int
}

// SummarizePayments totals payments by status.
func SummarizePayments(payments []store.RentPayment) PaymentSummary {
	var s PaymentSummary
	for _, p := range payments {
		switch p.Status {
		case store.PaymentPaid:
			s.TotalPaid += p.Amount
			s.Paid++
			if p.PaidDate != nil && !p.PaidDate.After(endOfDay(p.DueDate)) {
				s.OnTime++
			}
		case store.PaymentOverdue:
			s.TotalOverdue += p.Amount
		default:
			s.TotalPending += p.Amount
		}
	}
	return s
}

// CountRequests tallies maintenance requests per status.
func CountRequests(requests []store.MaintenanceRequest) map[string]int {
	counts := make(map[string]int)
	for _, r := range requests {
		counts[r.Status]++
	}
	return counts
}

// WritePaymentsCSV writes the given year's payments as CSV.
func WritePaymentsCSV(w io.Writer, payments []store.RentPayment, year int) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "tenantId", "amount", "dueDate", "status", "paidDate"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range payments {
		if p.DueDate.Year() != year {
			continue
		}
		paid := ""
		if p.PaidDate != nil {
			paid = p.PaidDate.Format("2006-01-02")
		}
		row := []string{
			p.ID,
			p.TenantID,
			fmt.Sprintf("%.2f", p.Amount),
			p.DueDate.Format("2006-01-02"),
			p.Status,
			paid,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// A payment made any time on the due date still counts as on time.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
