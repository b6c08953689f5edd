package allocation

import (
	"sort"

	"github.com/shopspring/decimal"
)

// WeightedProperty is a snapshot of one property taken for an allocation run.
// Callers pass only active properties with a known share weight.
type WeightedProperty struct {
	OwnerID      int64
	Weight       decimal.Decimal
	Conservation bool
}

// OwnerShare is the per-owner outcome of an allocation: the owner's summed
// weight in the pool and the monetary amount charged to them.
type OwnerShare struct {
	OwnerID int64
	Weight  decimal.Decimal
	Amount  decimal.Decimal
}

var (
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

// ElectricityTotal computes the communal electricity cost for a period:
// (end - start) * multiplier * rate * (1 + lossRatio), half-up to 2 decimals.
func ElectricityTotal(start, end, multiplier, rate, lossRatio decimal.Decimal) (decimal.Decimal, error) {
	if start.IsNegative() || end.IsNegative() {
		return decimal.Zero, ErrNegativeReading
	}
	if end.Cmp(start) <= 0 {
		return decimal.Zero, ErrEndBeforeStart
	}
	if multiplier.Sign() <= 0 || rate.Sign() <= 0 {
		return decimal.Zero, ErrNonPositiveFactor
	}
	if lossRatio.IsNegative() {
		return decimal.Zero, ErrNegativeLoss
	}

	consumption := end.Sub(start)
	total := consumption.Mul(multiplier).Mul(rate).Mul(decimal.NewFromInt(1).Add(lossRatio))
	return total.Round(2), nil
}

// MainShares computes main-budget amounts for every property in the snapshot,
// summed per owner: (yearBudget/12) * periodMonths * (weight/100).
// A non-positive budget or a month count outside 1..12 yields an empty result;
// budgetless periods are valid and simply produce no bills.
func MainShares(properties []WeightedProperty, yearBudget decimal.Decimal, periodMonths int) []OwnerShare {
	if yearBudget.Sign() <= 0 || periodMonths < 1 || periodMonths > 12 {
		return nil
	}
	monthly := yearBudget.Div(twelve)
	months := decimal.NewFromInt(int64(periodMonths))

	totals := make(map[int64]*OwnerShare)
	for _, p := range properties {
		amount := monthly.Mul(months).Mul(p.Weight.Div(hundred))
		share, ok := totals[p.OwnerID]
		if !ok {
			share = &OwnerShare{OwnerID: p.OwnerID}
			totals[p.OwnerID] = share
		}
		share.Weight = share.Weight.Add(p.Weight)
		share.Amount = share.Amount.Add(amount)
	}
	return collect(totals)
}

// ConservationShares computes conservation-budget amounts for the conservation
// subset of the snapshot. The subset's weights are renormalized to a virtual
// 100% pool: coefficient = 100 / sum(weights), normalized = weight * coefficient,
// then the main formula applies with the normalized weight.
func ConservationShares(properties []WeightedProperty, conservationBudget decimal.Decimal, periodMonths int) []OwnerShare {
	if conservationBudget.Sign() <= 0 || periodMonths < 1 || periodMonths > 12 {
		return nil
	}

	var subset []WeightedProperty
	sum := decimal.Zero
	for _, p := range properties {
		if !p.Conservation {
			continue
		}
		subset = append(subset, p)
		sum = sum.Add(p.Weight)
	}
	if len(subset) == 0 || sum.Sign() <= 0 {
		return nil
	}

	coefficient := hundred.Div(sum)
	monthly := conservationBudget.Div(twelve)
	months := decimal.NewFromInt(int64(periodMonths))

	totals := make(map[int64]*OwnerShare)
	for _, p := range subset {
		normalized := p.Weight.Mul(coefficient)
		amount := monthly.Mul(months).Mul(normalized.Div(hundred))
		share, ok := totals[p.OwnerID]
		if !ok {
			share = &OwnerShare{OwnerID: p.OwnerID}
			totals[p.OwnerID] = share
		}
		share.Weight = share.Weight.Add(normalized)
		share.Amount = share.Amount.Add(amount)
	}
	return collect(totals)
}

// DistributeShared splits a total cost across owners in proportion to their
// aggregated weights. Shares are settled in whole cents with the largest-
// remainder rule, so the returned amounts always sum to exactly totalCost.
func DistributeShared(totalCost decimal.Decimal, properties []WeightedProperty) ([]OwnerShare, error) {
	if totalCost.IsNegative() {
		return nil, ErrNegativeTotal
	}

	weights := make(map[int64]decimal.Decimal)
	sum := decimal.Zero
	for _, p := range properties {
		weights[p.OwnerID] = weights[p.OwnerID].Add(p.Weight)
		sum = sum.Add(p.Weight)
	}
	if len(weights) == 0 || sum.Sign() <= 0 {
		return nil, nil
	}

	totalCost = totalCost.Round(2)
	shares := make([]OwnerShare, 0, len(weights))
	for ownerID, weight := range weights {
		shares = append(shares, OwnerShare{OwnerID: ownerID, Weight: weight})
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].OwnerID < shares[j].OwnerID })

	// First pass: exact proportional shares truncated to whole cents.
	remainders := make([]decimal.Decimal, len(shares))
	distributed := decimal.Zero
	for i := range shares {
		exact := totalCost.Mul(shares[i].Weight.Div(sum))
		floored := exact.RoundDown(2)
		shares[i].Amount = floored
		remainders[i] = exact.Sub(floored)
		distributed = distributed.Add(floored)
	}

	// Second pass: hand the leftover cents to the largest remainders.
	leftoverCents := totalCost.Sub(distributed).Div(cent).IntPart()
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].Cmp(remainders[order[b]]) > 0
	})
	for k := int64(0); k < leftoverCents && int(k) < len(order); k++ {
		shares[order[k]].Amount = shares[order[k]].Amount.Add(cent)
	}

	return shares, nil
}

func collect(totals map[int64]*OwnerShare) []OwnerShare {
	shares := make([]OwnerShare, 0, len(totals))
	for _, share := range totals {
		share.Amount = share.Amount.Round(2)
		shares = append(shares, *share)
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].OwnerID < shares[j].OwnerID })
	return shares
}
