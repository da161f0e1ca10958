// Package ordering holds the pure sort and filter functions applied
// to every incoming snapshot. All ordering lives here, client side,
// so the remote store never needs composite indexes; swapping in
// server-side ordering later only touches this package.
package ordering

import (
	"sort"
	"strings"
	"time"

	"rentport/core/internal/store"
)

// RequestFilter selects maintenance requests. Zero values ("" or
// "all") match everything.
type RequestFilter struct {
	Status   string
	Category string
	Search   string
}

func (f RequestFilter) matches(req store.MaintenanceRequest) bool {
	if f.Status != "" && f.Status != "all" && req.Status != f.Status {
		return false
	}
	if f.Category != "" && f.Category != "all" && req.Category != f.Category {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(req.Title), needle) &&
			!strings.Contains(strings.ToLower(req.Description), needle) &&
			!strings.Contains(strings.ToLower(req.Category), needle) {
			return false
		}
	}
	return true
}

// FilterRequests returns the requests matching f, preserving the
// input order.
func FilterRequests(requests []store.MaintenanceRequest, f RequestFilter) []store.MaintenanceRequest {
	out := []store.MaintenanceRequest{}
	for _, req := range requests {
		if f.matches(req) {
			out = append(out, req)
		}
	}
	return out
}

// SortRequests orders high-urgency requests first, then by
// descending submission date. The sort is stable: equal keys keep
// their snapshot order. The input is not modified.
func SortRequests(requests []store.MaintenanceRequest) []store.MaintenanceRequest {
	out := append([]store.MaintenanceRequest{}, requests...)
	sort.SliceStable(out, func(i, j int) bool {
		hi, hj := out[i].Urgency == "high", out[j].Urgency == "high"
		if hi != hj {
			return hi
		}
		return out[i].DateSubmitted.After(out[j].DateSubmitted)
	})
	return out
}

// MessageTime is the effective ordering time of a message: the
// authoritative store timestamp when assigned, otherwise the local
// submission time standing in until the next snapshot carries the
// server value.
func MessageTime(msg store.Message) time.Time {
	if msg.Timestamp != nil {
		return *msg.Timestamp
	}
	return msg.ClientTime
}

// SortMessages orders messages by ascending effective time. Stable;
// the input is not modified.
func SortMessages(messages []store.Message) []store.Message {
	out := append([]store.Message{}, messages...)
	sort.SliceStable(out, func(i, j int) bool {
		return MessageTime(out[i]).Before(MessageTime(out[j]))
	})
	return out
}

// FilterConversation returns the messages exchanged between the two
// participants, preserving input order.
func FilterConversation(messages []store.Message, userID, otherID string) []store.Message {
	out := []store.Message{}
	for _, msg := range messages {
		if contains(msg.Participants, userID) && contains(msg.Participants, otherID) {
			out = append(out, msg)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// FilterPaymentsByYear returns the payments due in the given year,
// preserving input order.
func FilterPaymentsByYear(payments []store.RentPayment, year int) []store.RentPayment {
	out := []store.RentPayment{}
	for _, p := range payments {
		if p.DueDate.Year() == year {
			out = append(out, p)
		}
	}
	return out
}

// SortPayments orders payments by descending due date. Stable; the
// input is not modified.
func SortPayments(payments []store.RentPayment) []store.RentPayment {
	out := append([]store.RentPayment{}, payments...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.After(out[j].DueDate)
	})
	return out
}
