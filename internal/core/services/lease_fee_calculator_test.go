package services_test

import (
	"testing"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLease(lessorID, name string, plots ...domain.Plot) domain.Lease {
	return domain.Lease{
		ID:     "lease-" + lessorID,
		ParkID: "park-1",
		Status: domain.LeaseActive,
		Lessor: domain.Lessor{
			ID:         lessorID,
			Name:       name,
			Street:     "Dorfstr. 4",
			PostalCode: "25899",
			City:       "Niebüll",
			IBAN:       strPtr("DE02120300000000202051"),
		},
		Plots: plots,
	}
}

func plot(turbines int, pool string) domain.Plot {
	return domain.Plot{
		TurbineCount:  turbines,
		PoolAreaSqm:   dec(pool),
		SealedAreaSqm: decimal.Zero,
		RoadAreaSqm:   decimal.Zero,
		CableLengthM:  decimal.Zero,
	}
}

func baseFeeConfig() domain.ParkFeeConfig {
	return domain.ParkFeeConfig{
		WeaSharePercentage:  dec("10"),
		PoolSharePercentage: dec("5"),
		TotalPoolAreaSqm:    dec("10000"),
	}
}

func twoLessors() []domain.Lease {
	return []domain.Lease{
		testLease("l-2", "Brandt, Maria", plot(1, "4000")),
		testLease("l-1", "Albers, Heinrich", plot(2, "6000")),
	}
}

func subtotalSum(res *services.LeaseFeeResult) decimal.Decimal {
	var amounts []decimal.Decimal
	for _, item := range res.Items() {
		amounts = append(amounts, item.SubtotalEur)
	}
	return accounting.Sum(amounts)
}

func TestCalculateLeaseFees_RevenueShare(t *testing.T) {
	res, err := services.CalculateLeaseFees(services.LeaseFeeInput{
		Config:              baseFeeConfig(),
		Fraction:            decimal.NewFromInt(1),
		RevenueEur:          dec("100000"),
		MinimumGuaranteeEur: decimal.Zero,
		Leases:              twoLessors(),
	})
	require.NoError(t, err)
	require.Len(t, res.Lessors, 2)

	items := res.Items()
	assert.Equal(t, "l-1", items[0].LessorID, "lessors are ordered by name")
	assert.Equal(t, "6666.67", items[0].StandortFeeEur.StringFixed(2))
	assert.Equal(t, "3333.33", items[1].StandortFeeEur.StringFixed(2))
	assert.Equal(t, "3000.00", items[0].PoolFeeEur.StringFixed(2))
	assert.Equal(t, "2000.00", items[1].PoolFeeEur.StringFixed(2))
	assert.Equal(t, "15000.00", res.CalculatedFeeEur.StringFixed(2))
	assert.True(t, res.ActualFeeEur.Equal(res.CalculatedFeeEur))
	assert.False(t, res.UsedMinimum)
	assert.Equal(t, "15", res.RevenueSharePercent.String())
	assert.True(t, subtotalSum(res).Equal(res.ActualFeeEur))
	for _, item := range items {
		assert.True(t, item.RemainderEur.Equal(item.SubtotalEur))
		assert.True(t, item.TaxableAmountEur.Add(item.ExemptAmountEur).Equal(item.SubtotalEur))
	}
}

func TestCalculateLeaseFees_MinimumGuaranteeScalesSubtotals(t *testing.T) {
	res, err := services.CalculateLeaseFees(services.LeaseFeeInput{
		Config:              baseFeeConfig(),
		Fraction:            decimal.NewFromInt(1),
		RevenueEur:          dec("10000"),
		MinimumGuaranteeEur: dec("3000"),
		Leases:              twoLessors(),
	})
	require.NoError(t, err)

	assert.Equal(t, "1500.00", res.CalculatedFeeEur.StringFixed(2))
	assert.True(t, res.UsedMinimum)
	assert.Equal(t, "3000.00", res.ActualFeeEur.StringFixed(2))
	items := res.Items()
	assert.Equal(t, "1933.34", items[0].SubtotalEur.StringFixed(2))
	assert.Equal(t, "1066.66", items[1].SubtotalEur.StringFixed(2))
	assert.True(t, subtotalSum(res).Equal(res.ActualFeeEur))
	assert.Equal(t, "1933.34", items[0].ExemptAmountEur.StringFixed(2))
}

func TestCalculateLeaseFees_MinimumRentPerTurbine(t *testing.T) {
	cfg := baseFeeConfig()
	cfg.MinimumRentPerTurbine = decPtr("2000")

	res, err := services.CalculateLeaseFees(services.LeaseFeeInput{
		Config:     cfg,
		Fraction:   decimal.NewFromInt(1),
		RevenueEur: dec("10000"),
		Leases:     twoLessors(),
	})
	require.NoError(t, err)

	items := res.Items()
	assert.Equal(t, "4000.00", items[0].StandortFeeEur.StringFixed(2))
	assert.Equal(t, "2000.00", items[1].StandortFeeEur.StringFixed(2))
}

func TestCalculateLeaseFees_TaxTreatmentSplit(t *testing.T) {
	cfg := baseFeeConfig()
	cfg.TaxTreatments = map[domain.FeeComponent]domain.TaxTreatment{domain.ComponentStandort: domain.TaxTaxable}

	res, err := services.CalculateLeaseFees(services.LeaseFeeInput{
		Config:     cfg,
		Fraction:   decimal.NewFromInt(1),
		RevenueEur: dec("100000"),
		Leases:     twoLessors(),
	})
	require.NoError(t, err)

	first := res.Items()[0]
	assert.Equal(t, "6666.67", first.TaxableAmountEur.StringFixed(2))
	assert.Equal(t, "3000.00", first.ExemptAmountEur.StringFixed(2))
}

func TestCalculateLeaseFees_AreaCompensationScalesWithFraction(t *testing.T) {
	cfg := domain.ParkFeeConfig{
		AusgleichCompensationPerSqm: dec("2"),
		WegCompensationPerSqm:       dec("1.5"),
		KabelCompensationPerM:       dec("3"),
	}
	p := domain.Plot{SealedAreaSqm: dec("100"), RoadAreaSqm: dec("50"), CableLengthM: dec("120"), PoolAreaSqm: decimal.Zero}

	res, err := services.CalculateLeaseFees(services.LeaseFeeInput{
		Config:     cfg,
		Fraction:   dec("0.25"),
		RevenueEur: dec("50000"),
		Leases:     []domain.Lease{testLease("l-1", "Albers, Heinrich", p)},
	})
	require.NoError(t, err)

	item := res.Items()[0]
	assert.Equal(t, "50.00", item.SealedAreaFeeEur.StringFixed(2))
	assert.Equal(t, "18.75", item.RoadFeeEur.StringFixed(2))
	assert.Equal(t, "90.00", item.CableFeeEur.StringFixed(2))
	assert.True(t, item.StandortFeeEur.IsZero())
	assert.Equal(t, "158.75", item.SubtotalEur.StringFixed(2))
}

func TestCalculateLeaseFees_UnleasedPoolAreaIsNotDistributed(t *testing.T) {
	cfg := baseFeeConfig()
	cfg.TotalPoolAreaSqm = dec("20000")

	res, err := services.CalculateLeaseFees(services.LeaseFeeInput{
		Config:     cfg,
		Fraction:   decimal.NewFromInt(1),
		RevenueEur: dec("100000"),
		Leases:     twoLessors(),
	})
	require.NoError(t, err)

	items := res.Items()
	assert.Equal(t, "1500.00", items[0].PoolFeeEur.StringFixed(2))
	assert.Equal(t, "1000.00", items[1].PoolFeeEur.StringFixed(2))
}

func TestCalculateLeaseFees_MergesLeasesOfOneLessor(t *testing.T) {
	leases := []domain.Lease{
		testLease("l-1", "Albers, Heinrich", plot(1, "3000")),
		testLease("l-1", "Albers, Heinrich", plot(1, "3000")),
		testLease("l-2", "Brandt, Maria", plot(1, "4000")),
	}

	res, err := services.CalculateLeaseFees(services.LeaseFeeInput{
		Config:     baseFeeConfig(),
		Fraction:   decimal.NewFromInt(1),
		RevenueEur: dec("100000"),
		Leases:     leases,
	})
	require.NoError(t, err)

	require.Len(t, res.Lessors, 2)
	assert.Equal(t, 2, res.Items()[0].TurbineCount)
	assert.Equal(t, "6000", res.Items()[0].PoolAreaSqm.String())
}

func TestCalculateLeaseFees_MinimumWithoutAnyComponentSplitsEvenly(t *testing.T) {
	leases := []domain.Lease{
		testLease("l-1", "Albers", plot(0, "0")),
		testLease("l-2", "Brandt", plot(0, "0")),
		testLease("l-3", "Carstens", plot(0, "0")),
	}

	res, err := services.CalculateLeaseFees(services.LeaseFeeInput{
		Config:              baseFeeConfig(),
		Fraction:            decimal.NewFromInt(1),
		RevenueEur:          dec("1000"),
		MinimumGuaranteeEur: dec("900"),
		Leases:              leases,
	})
	require.NoError(t, err)

	for _, item := range res.Items() {
		assert.Equal(t, "300.00", item.SubtotalEur.StringFixed(2))
	}
}

func TestCalculateLeaseFees_NoLessors(t *testing.T) {
	_, err := services.CalculateLeaseFees(services.LeaseFeeInput{Config: baseFeeConfig(), RevenueEur: dec("1000")})

	assert.ErrorIs(t, err, services.ErrNoLessors)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
