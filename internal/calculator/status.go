package calculator

import "github.com/mmynk/tableside/internal/models"

// AggregateStatus derives the order status from the multiset of its item statuses.
//
// Rules are checked in order and the first match wins:
//
//	empty                                  -> pending
//	all canceled                           -> canceled
//	all paid                               -> paid
//	all paid or served                     -> served
//	any requested_bill                     -> requested_bill
//	all ready, served, paid, requested_bill -> ready
//	any in_kitchen                         -> in_kitchen
//	any confirmed                          -> confirmed
//	otherwise                              -> pending
//
// A single requested_bill item overrides items still being cooked so staff see the
// bill request immediately. This is not a min/max fold over the progression.
func AggregateStatus(statuses []models.ItemStatus) models.ItemStatus {
	if len(statuses) == 0 {
		return models.StatusPending
	}

	counts := make(map[models.ItemStatus]int, len(models.AllItemStatuses))
	for _, s := range statuses {
		counts[s]++
	}
	n := len(statuses)
	count := func(ss ...models.ItemStatus) int {
		total := 0
		for _, s := range ss {
			total += counts[s]
		}
		return total
	}

	switch {
	case counts[models.StatusCanceled] == n:
		return models.StatusCanceled
	case counts[models.StatusPaid] == n:
		return models.StatusPaid
	case count(models.StatusPaid, models.StatusServed) == n:
		return models.StatusServed
	case counts[models.StatusRequestedBill] > 0:
		return models.StatusRequestedBill
	case count(models.StatusReady, models.StatusServed, models.StatusPaid, models.StatusRequestedBill) == n:
		return models.StatusReady
	case counts[models.StatusInKitchen] > 0:
		return models.StatusInKitchen
	case counts[models.StatusConfirmed] > 0:
		return models.StatusConfirmed
	default:
		return models.StatusPending
	}
}

// AggregateItems is AggregateStatus over the statuses of items.
func AggregateItems(items []models.OrderItem) models.ItemStatus {
	statuses := make([]models.ItemStatus, len(items))
	for i, item := range items {
		statuses[i] = item.Status
	}
	return AggregateStatus(statuses)
}
