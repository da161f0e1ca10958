package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"rentport/core/internal/store"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestSummarizePayments(t *testing.T) {
	payments := []store.RentPayment{
		{Amount: 1200, Status: store.PaymentPaid, DueDate: date(2026, 1, 1), PaidDate: ptr(date(2026, 1, 1))},
		{Amount: 1200, Status: store.PaymentPaid, DueDate: date(2026, 2, 1), PaidDate: ptr(date(2026, 2, 5))},
		{Amount: 1250, Status: store.PaymentPending, DueDate: date(2026, 3, 1)},
		{Amount: 1250, Status: store.PaymentOverdue, DueDate: date(2025, 12, 1)},
	}

	s := SummarizePayments(payments)
	if s.TotalPaid != 2400 {
		t.Errorf("TotalPaid = %v, want 2400", s.TotalPaid)
	}
	if s.TotalPending != 1250 {
		t.Errorf("TotalPending = %v", s.TotalPending)
	}
	if s.TotalOverdue != 1250 {
		t.Errorf("TotalOverdue = %v", s.TotalOverdue)
	}
	if s.Paid != 2 {
		t.Errorf("Paid = %d, want 2", s.Paid)
	}
	// Paid on the due date counts as on time; five days late does not.
	if s.OnTime != 1 {
		t.Errorf("OnTime = %d, want 1", s.OnTime)
	}
}

func TestSummarizePaymentsEmpty(t *testing.T) {
	s := SummarizePayments(nil)
	if s != (PaymentSummary{}) {
		t.Errorf("summary of nothing = %+v", s)
	}
}

func TestCountRequests(t *testing.T) {
	requests := []store.MaintenanceRequest{
		{Status: store.StatusPending},
		{Status: store.StatusPending},
		{Status: store.StatusCompleted},
		{Status: store.StatusScheduled},
	}
	counts := CountRequests(requests)
	if counts[store.StatusPending] != 2 || counts[store.StatusCompleted] != 1 || counts[store.StatusScheduled] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestWritePaymentsCSV(t *testing.T) {
	payments := []store.RentPayment{
		{ID: "pay-1", TenantID: "user-1", Amount: 1200, DueDate: date(2026, 1, 1), Status: store.PaymentPaid, PaidDate: ptr(date(2026, 1, 1))},
		{ID: "pay-2", TenantID: "user-1", Amount: 1200, DueDate: date(2025, 12, 1), Status: store.PaymentPaid},
		{ID: "pay-3", TenantID: "user-1", Amount: 1250, DueDate: date(2026, 6, 1), Status: store.PaymentPending},
	}

	var buf bytes.Buffer
	if err := WritePaymentsCSV(&buf, payments, 2026); err != nil {
		t.Fatalf("WritePaymentsCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus two 2026 rows:\n%s", len(lines), buf.String())
	}
	if lines[0] != "id,tenantId,amount,dueDate,status,paidDate" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "pay-1,user-1,1200.00,2026-01-01,paid,2026-01-01") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if strings.Contains(buf.String(), "pay-2") {
		t.Error("2025 payment leaked into the 2026 export")
	}
	// Pending payment has an empty paidDate column.
	if !strings.HasSuffix(lines[2], ",") {
		t.Errorf("row 2 = %q, want trailing empty paidDate", lines[2])
	}
}
