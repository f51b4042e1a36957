package calculator

import (
	"testing"

	"github.com/mmynk/tableside/internal/models"
)

func TestAggregateStatus(t *testing.T) {
	const (
		pending   = models.StatusPending
		confirmed = models.StatusConfirmed
		kitchen   = models.StatusInKitchen
		ready     = models.StatusReady
		served    = models.StatusServed
		bill      = models.StatusRequestedBill
		paid      = models.StatusPaid
		canceled  = models.StatusCanceled
	)

	tests := []struct {
		name     string
		statuses []models.ItemStatus
		want     models.ItemStatus
	}{
		{"empty order is pending", nil, pending},
		{"single pending", []models.ItemStatus{pending}, pending},
		{"all canceled", []models.ItemStatus{canceled, canceled}, canceled},
		{"all paid", []models.ItemStatus{paid, paid, paid}, paid},
		{"paid and served", []models.ItemStatus{paid, served}, served},
		{"all served", []models.ItemStatus{served, served}, served},
		{"requested bill overrides cooking", []models.ItemStatus{bill, kitchen, pending}, bill},
		{"requested bill overrides paid and served", []models.ItemStatus{paid, served, bill}, bill},
		{"requested bill next to confirmed", []models.ItemStatus{confirmed, bill}, bill},
		{"ready with served", []models.ItemStatus{ready, served}, ready},
		{"ready with paid", []models.ItemStatus{ready, paid}, ready},
		{"all ready", []models.ItemStatus{ready, ready}, ready},
		{"any in kitchen", []models.ItemStatus{ready, kitchen, served}, kitchen},
		{"kitchen beats confirmed", []models.ItemStatus{confirmed, kitchen}, kitchen},
		{"any confirmed", []models.ItemStatus{pending, confirmed}, confirmed},
		{"confirmed with ready", []models.ItemStatus{confirmed, ready}, confirmed},
		{"pending with ready", []models.ItemStatus{pending, ready}, pending},
		{"canceled mixed with served", []models.ItemStatus{canceled, served}, pending},
		{"canceled mixed with kitchen", []models.ItemStatus{canceled, kitchen}, kitchen},
		{"canceled mixed with requested bill", []models.ItemStatus{canceled, bill}, bill},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateStatus(tt.statuses); got != tt.want {
				t.Errorf("AggregateStatus(%v) = %s, want %s", tt.statuses, got, tt.want)
			}
		})
	}
}

// Every multiset with at least one requested_bill and no canceled item aggregates to
// requested_bill, whatever else it holds.
func TestAggregateStatus_RequestedBillIsSticky(t *testing.T) {
	others := []models.ItemStatus{
		models.StatusPending,
		models.StatusConfirmed,
		models.StatusInKitchen,
		models.StatusReady,
		models.StatusServed,
		models.StatusRequestedBill,
		models.StatusPaid,
	}

	// All multisets of size 1..3 drawn from others, each with one requested_bill added.
	var walk func(prefix []models.ItemStatus, start, depth int)
	walk = func(prefix []models.ItemStatus, start, depth int) {
		statuses := append([]models.ItemStatus{models.StatusRequestedBill}, prefix...)
		if got := AggregateStatus(statuses); got != models.StatusRequestedBill {
			t.Errorf("AggregateStatus(%v) = %s, want requested_bill", statuses, got)
		}
		if depth == 0 {
			return
		}
		for i := start; i < len(others); i++ {
			walk(append(append([]models.ItemStatus(nil), prefix...), others[i]), i, depth-1)
		}
	}
	walk(nil, 0, 3)
}

func TestAggregateStatus_CanceledBeatsPaid(t *testing.T) {
	for n := 1; n <= 5; n++ {
		statuses := make([]models.ItemStatus, n)
		for i := range statuses {
			statuses[i] = models.StatusCanceled
		}
		if got := AggregateStatus(statuses); got != models.StatusCanceled {
			t.Errorf("AggregateStatus(%d canceled) = %s, want canceled", n, got)
		}
	}
}

func TestAggregateItems(t *testing.T) {
	items := []models.OrderItem{
		{ID: 1, Status: models.StatusServed},
		{ID: 2, Status: models.StatusPaid},
	}
	if got := AggregateItems(items); got != models.StatusServed {
		t.Errorf("AggregateItems() = %s, want served", got)
	}
}
