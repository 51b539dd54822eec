package services

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// ErrNoLessors is returned when no active lease contributes to a period.
	ErrNoLessors = fmt.Errorf("%w: no active leases for the period", apperrors.ErrValidation)
)

// LeaseFeeInput is everything the lease fee calculation needs. Annual rates in
// Config are scaled by Fraction, the share of a year the period covers.
type LeaseFeeInput struct {
	Config              domain.ParkFeeConfig
	Fraction            decimal.Decimal
	RevenueEur          decimal.Decimal
	MinimumGuaranteeEur decimal.Decimal
	Leases              []domain.Lease
}

// LessorFee is one lessor's computed item together with the lessor record.
type LessorFee struct {
	Lessor domain.Lessor
	Item   domain.LeaseRevenueSettlementItem
}

// LeaseFeeResult holds the park totals and the per-lessor breakdown.
type LeaseFeeResult struct {
	RevenueSharePercent decimal.Decimal
	CalculatedFeeEur    decimal.Decimal
	MinimumGuaranteeEur decimal.Decimal
	ActualFeeEur        decimal.Decimal
	UsedMinimum         bool
	Lessors             []LessorFee
}

// Items returns the settlement items in lessor order.
func (r *LeaseFeeResult) Items() []domain.LeaseRevenueSettlementItem {
	items := make([]domain.LeaseRevenueSettlementItem, len(r.Lessors))
	for i, l := range r.Lessors {
		items[i] = l.Item
	}
	return items
}

type lessorAcc struct {
	lessor   domain.Lessor
	turbines int
	pool     decimal.Decimal
	sealed   decimal.Decimal
	road     decimal.Decimal
	cable    decimal.Decimal
}

// CalculateLeaseFees splits a park's lease fee across its lessors.
//
// Component amounts are rounded to cents per lessor. Pooled amounts (site and
// pool fee) are distributed with a largest-remainder correction so the lessor
// shares add up to the pooled total. When the minimum guarantee exceeds the
// calculated fee, subtotals are scaled proportionally so that they sum to the
// guarantee exactly.
func CalculateLeaseFees(in LeaseFeeInput) (*LeaseFeeResult, error) {
	accs := aggregateLessors(in.Leases)
	if len(accs) == 0 {
		return nil, ErrNoLessors
	}
	cfg := in.Config
	fraction := in.Fraction
	if !fraction.IsPositive() {
		fraction = decimal.NewFromInt(1)
	}

	items := make([]domain.LeaseRevenueSettlementItem, len(accs))
	turbineWeights := make([]decimal.Decimal, len(accs))
	poolWeights := make([]decimal.Decimal, len(accs))
	totalTurbines := 0
	lessorPool := decimal.Zero
	for i, a := range accs {
		items[i] = domain.LeaseRevenueSettlementItem{
			LessorID:         a.lessor.ID,
			LessorName:       a.lessor.Name,
			TurbineCount:     a.turbines,
			PoolAreaSqm:      a.pool,
			StandortFeeEur:   decimal.Zero,
			PoolFeeEur:       decimal.Zero,
			SealedAreaFeeEur: domain.RoundMoney(cfg.AusgleichCompensationPerSqm.Mul(a.sealed).Mul(fraction)),
			RoadFeeEur:       domain.RoundMoney(cfg.WegCompensationPerSqm.Mul(a.road).Mul(fraction)),
			CableFeeEur:      domain.RoundMoney(cfg.KabelCompensationPerM.Mul(a.cable).Mul(fraction)),
			AdvancePaidEur:   decimal.Zero,
		}
		turbineWeights[i] = decimal.NewFromInt(int64(a.turbines))
		poolWeights[i] = a.pool
		totalTurbines += a.turbines
		lessorPool = lessorPool.Add(a.pool)
	}

	// Site fee: revenue share or minimum rent per turbine, whichever is greater.
	if totalTurbines > 0 {
		standortTotal := domain.RoundMoney(in.RevenueEur.Mul(cfg.WeaSharePercentage).Div(hundred))
		if cfg.MinimumRentPerTurbine != nil {
			minRent := domain.RoundMoney(cfg.MinimumRentPerTurbine.Mul(decimal.NewFromInt(int64(totalTurbines))).Mul(fraction))
			standortTotal = decimal.Max(standortTotal, minRent)
		}
		shares, err := accounting.AllocateMoney(standortTotal, turbineWeights)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate site fee: %w", err)
		}
		for i := range items {
			items[i].StandortFeeEur = shares[i]
		}
	}

	// Pool fee: the lessors' share of the park's pooled area.
	if lessorPool.IsPositive() {
		parkPool := cfg.TotalPoolAreaSqm
		if !parkPool.IsPositive() || parkPool.LessThan(lessorPool) {
			parkPool = lessorPool
		}
		poolTotal := in.RevenueEur.Mul(cfg.PoolSharePercentage).Div(hundred)
		distributable := domain.RoundMoney(poolTotal.Mul(lessorPool).Div(parkPool))
		shares, err := accounting.AllocateMoney(distributable, poolWeights)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate pool fee: %w", err)
		}
		for i := range items {
			items[i].PoolFeeEur = shares[i]
		}
	}

	calculated := decimal.Zero
	sums := make([]decimal.Decimal, len(items))
	for i := range items {
		sums[i] = items[i].ComponentSum()
		calculated = calculated.Add(sums[i])
	}

	minimum := domain.RoundMoney(in.MinimumGuaranteeEur)
	usedMinimum := minimum.GreaterThan(calculated)
	actual := decimal.Max(calculated, minimum)

	subtotals := sums
	if usedMinimum {
		scaled, err := scaleToTotal(actual, sums, turbineWeights)
		if err != nil {
			return nil, err
		}
		subtotals = scaled
	}

	res := &LeaseFeeResult{
		RevenueSharePercent: cfg.WeaSharePercentage.Add(cfg.PoolSharePercentage),
		CalculatedFeeEur:    calculated,
		MinimumGuaranteeEur: minimum,
		ActualFeeEur:        actual,
		UsedMinimum:         usedMinimum,
		Lessors:             make([]LessorFee, len(items)),
	}
	for i := range items {
		items[i].SubtotalEur = subtotals[i]
		taxable, exempt, err := splitByTreatment(cfg, items[i], subtotals[i])
		if err != nil {
			return nil, err
		}
		items[i].TaxableAmountEur = taxable
		items[i].ExemptAmountEur = exempt
		items[i].RemainderEur = subtotals[i]
		res.Lessors[i] = LessorFee{Lessor: accs[i].lessor, Item: items[i]}
	}
	return res, nil
}

// scaleToTotal allocates total by the component sums, falling back to turbine
// counts and then to an even split when every sum is zero.
func scaleToTotal(total decimal.Decimal, sums, turbines []decimal.Decimal) ([]decimal.Decimal, error) {
	shares, err := accounting.AllocateMoney(total, sums)
	if err == nil {
		return shares, nil
	}
	if !errors.Is(err, accounting.ErrNoWeight) {
		return nil, fmt.Errorf("failed to scale to minimum guarantee: %w", err)
	}
	shares, err = accounting.AllocateMoney(total, turbines)
	if err == nil {
		return shares, nil
	}
	if !errors.Is(err, accounting.ErrNoWeight) {
		return nil, fmt.Errorf("failed to scale to minimum guarantee: %w", err)
	}
	return accounting.SplitEvenly(total, len(sums))
}

// splitByTreatment divides subtotal into taxable and exempt parts in the
// proportion of the item's taxable and exempt components.
func splitByTreatment(cfg domain.ParkFeeConfig, item domain.LeaseRevenueSettlementItem, subtotal decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	taxableBase, exemptBase := decimal.Zero, decimal.Zero
	for _, c := range domain.FeeComponents {
		if cfg.TreatmentFor(c) == domain.TaxTaxable {
			taxableBase = taxableBase.Add(item.Component(c))
		} else {
			exemptBase = exemptBase.Add(item.Component(c))
		}
	}
	if taxableBase.Add(exemptBase).Equal(subtotal) {
		return taxableBase, exemptBase, nil
	}
	parts, err := accounting.AllocateMoney(subtotal, []decimal.Decimal{taxableBase, exemptBase})
	if errors.Is(err, accounting.ErrNoWeight) {
		if cfg.TreatmentFor(domain.ComponentStandort) == domain.TaxTaxable {
			return subtotal, decimal.Zero, nil
		}
		return decimal.Zero, subtotal, nil
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to split tax treatment: %w", err)
	}
	return parts[0], parts[1], nil
}

// aggregateLessors merges the plots of all leases per lessor, ordered by name.
func aggregateLessors(leases []domain.Lease) []*lessorAcc {
	byID := make(map[string]*lessorAcc)
	for _, lease := range leases {
		acc, ok := byID[lease.Lessor.ID]
		if !ok {
			acc = &lessorAcc{lessor: lease.Lessor, pool: decimal.Zero, sealed: decimal.Zero, road: decimal.Zero, cable: decimal.Zero}
			byID[lease.Lessor.ID] = acc
		}
		for _, p := range lease.Plots {
			acc.turbines += p.TurbineCount
			acc.pool = acc.pool.Add(p.PoolAreaSqm)
			acc.sealed = acc.sealed.Add(p.SealedAreaSqm)
			acc.road = acc.road.Add(p.RoadAreaSqm)
			acc.cable = acc.cable.Add(p.CableLengthM)
		}
	}
	accs := make([]*lessorAcc, 0, len(byID))
	for _, a := range byID {
		accs = append(accs, a)
	}
	sort.Slice(accs, func(i, j int) bool {
		if accs[i].lessor.Name != accs[j].lessor.Name {
			return accs[i].lessor.Name < accs[j].lessor.Name
		}
		return accs[i].lessor.ID < accs[j].lessor.ID
	})
	return accs
}
