package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/models"
)

// Item represents a single cart line in a one-shot split.
type Item struct {
	ID          int64
	Description string
	Amount      decimal.Decimal
	// AssignedTo lists the participants sharing the line. An empty list shares it
	// among everybody.
	AssignedTo []string
}

// PersonItem represents an item's share for one person.
type PersonItem struct {
	Description string
	Amount      decimal.Decimal
}

// PersonSplit represents the calculated split for one person.
type PersonSplit struct {
	Participant string
	Amount      decimal.Decimal
	Percentage  decimal.NullDecimal
	Items       []PersonItem
}

// Plan describes a cart-level split computed before checkout.
type Plan struct {
	Mode         models.SplitMode
	Total        decimal.Decimal
	Participants []string

	// Percentages is required for SplitPercentage and must cover every participant.
	Percentages map[string]decimal.Decimal

	// Items is required for SplitItems and must sum to Total.
	Items []Item
}

// CalculateSplit computes a stateless split of a cart. It applies the same rounding
// and remainder rules as the incremental settlement session: each amount is rounded
// once, and the last participant in Participants absorbs the rounding remainder so
// the amounts always sum exactly to Total.
func CalculateSplit(plan Plan) ([]PersonSplit, error) {
	if len(plan.Participants) == 0 {
		return nil, apperr.Validation(apperr.CodeInvalidParticipant, "must have at least one participant")
	}
	if plan.Total.IsNegative() {
		return nil, apperr.Validation(apperr.CodeInvalidPrice, "total cannot be negative")
	}
	seen := make(map[string]bool, len(plan.Participants))
	for _, p := range plan.Participants {
		if p == "" {
			return nil, apperr.Validation(apperr.CodeInvalidParticipant, "participant name cannot be empty")
		}
		if seen[p] {
			return nil, apperr.Validation(apperr.CodeInvalidParticipant, "duplicate participant %q", p)
		}
		seen[p] = true
	}

	splits := make([]PersonSplit, len(plan.Participants))
	for i, p := range plan.Participants {
		splits[i] = PersonSplit{Participant: p, Amount: decimal.Zero}
	}

	switch plan.Mode {
	case models.SplitFull:
		splits[0].Amount = plan.Total
	case models.SplitEven:
		for i, amount := range EvenAllocation(plan.Total, len(splits)) {
			splits[i].Amount = amount
		}
	case models.SplitPercentage:
		if err := splitByPercentage(plan, splits); err != nil {
			return nil, err
		}
	case models.SplitItems:
		if err := splitByItems(plan, splits, seen); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Validation(apperr.CodeInvalidMode, "unsupported split mode %s", plan.Mode)
	}
	return splits, nil
}

func splitByPercentage(plan Plan, splits []PersonSplit) error {
	sum := decimal.Zero
	for _, p := range plan.Participants {
		pct, ok := plan.Percentages[p]
		if !ok {
			return apperr.Validation(apperr.CodeInvalidPercentage, "missing percentage for %q", p)
		}
		if !pct.IsPositive() || pct.GreaterThan(hundred) {
			return apperr.Validation(apperr.CodeInvalidPercentage, "percentage for %q must be in (0, 100]", p)
		}
		sum = sum.Add(pct)
	}
	if sum.Sub(hundred).Abs().GreaterThan(PercentageTolerance) {
		return apperr.Validation(apperr.CodeInvalidPercentage, "percentages sum to %s%%, want 100%%", sum.String())
	}

	remaining := plan.Total
	last := len(splits) - 1
	for i := range splits {
		pct := plan.Percentages[splits[i].Participant]
		splits[i].Percentage = decimal.NewNullDecimal(pct)
		if i == last {
			splits[i].Amount = remaining
			break
		}
		splits[i].Amount = Clamp(PercentageShare(plan.Total, pct), remaining)
		remaining = remaining.Sub(splits[i].Amount)
	}
	return nil
}

func splitByItems(plan Plan, splits []PersonSplit, participants map[string]bool) error {
	if len(plan.Items) == 0 {
		return apperr.Validation(apperr.CodeNoItems, "must have at least one item")
	}
	index := make(map[string]int, len(splits))
	for i, s := range splits {
		index[s.Participant] = i
	}

	itemsTotal := decimal.Zero
	for _, item := range plan.Items {
		if item.Amount.IsNegative() {
			return apperr.Validation(apperr.CodeInvalidPrice, "item %q has a negative amount", item.Description)
		}
		itemsTotal = itemsTotal.Add(item.Amount)

		assigned := item.AssignedTo
		if len(assigned) == 0 {
			assigned = plan.Participants
		}
		for _, person := range assigned {
			if !participants[person] {
				return apperr.Validation(apperr.CodeInvalidParticipant, "item %q assigned to unknown participant %q", item.Description, person)
			}
		}

		// Split item among assigned people; the last assignee absorbs the remainder.
		for j, amount := range EvenAllocation(item.Amount, len(assigned)) {
			split := &splits[index[assigned[j]]]
			split.Amount = split.Amount.Add(amount)
			split.Items = append(split.Items, PersonItem{
				Description: item.Description,
				Amount:      amount,
			})
		}
	}
	if !itemsTotal.Equal(plan.Total) {
		return apperr.Validation(apperr.CodeItemsTotalMismatch, "items sum to %s, bill total is %s", itemsTotal.StringFixed(MoneyPlaces), plan.Total.StringFixed(MoneyPlaces))
	}
	return nil
}
