package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FeeComponent names one part of a lessor's lease fee.
type FeeComponent string

const (
	ComponentStandort   FeeComponent = "STANDORT"    // turbine site
	ComponentPool       FeeComponent = "POOL"        // pooled area
	ComponentSealedArea FeeComponent = "SEALED_AREA" // ausgleich compensation
	ComponentRoad       FeeComponent = "ROAD"        // weg compensation
	ComponentCable      FeeComponent = "CABLE"
)

// FeeComponents lists the components in invoice line order.
var FeeComponents = []FeeComponent{ComponentStandort, ComponentPool, ComponentSealedArea, ComponentRoad, ComponentCable}

// TaxTreatment decides whether a fee component carries VAT.
type TaxTreatment string

const (
	TaxExempt  TaxTreatment = "EXEMPT"
	TaxTaxable TaxTreatment = "TAXABLE"
)

// AdvanceInterval is the cadence of advance lease payments.
type AdvanceInterval string

const (
	AdvanceYearly    AdvanceInterval = "YEARLY"
	AdvanceQuarterly AdvanceInterval = "QUARTERLY"
	AdvanceMonthly   AdvanceInterval = "MONTHLY"
)

// IsValid reports whether i is a known interval.
func (i AdvanceInterval) IsValid() bool {
	return i == AdvanceYearly || i == AdvanceQuarterly || i == AdvanceMonthly
}

// Months returns the number of months one advance covers.
func (i AdvanceInterval) Months() int {
	switch i {
	case AdvanceQuarterly:
		return 3
	case AdvanceYearly:
		return 12
	default:
		return 1
	}
}

// PeriodStartMonth maps a month onto the first month of the advance period containing it.
func (i AdvanceInterval) PeriodStartMonth(month int) int {
	switch i {
	case AdvanceYearly:
		return 1
	case AdvanceQuarterly:
		return ((month-1)/3)*3 + 1
	default:
		return month
	}
}

// ParkFeeConfig is the lease fee configuration of a park. Per-area and
// per-turbine rates are annual amounts.
type ParkFeeConfig struct {
	WeaSharePercentage          decimal.Decimal              `json:"weaSharePercentage"`
	PoolSharePercentage         decimal.Decimal              `json:"poolSharePercentage"`
	MinimumRentPerTurbine       *decimal.Decimal             `json:"minimumRentPerTurbine,omitempty"`
	WegCompensationPerSqm       decimal.Decimal              `json:"wegCompensationPerSqm"`
	AusgleichCompensationPerSqm decimal.Decimal              `json:"ausgleichCompensationPerSqm"`
	KabelCompensationPerM       decimal.Decimal              `json:"kabelCompensationPerM"`
	MinimumGuaranteeEur         decimal.Decimal              `json:"minimumGuaranteeEur"`
	TotalPoolAreaSqm            decimal.Decimal              `json:"totalPoolAreaSqm"` // zero: sum of leased pool areas
	EstimatedAnnualRevenueEur   decimal.Decimal              `json:"estimatedAnnualRevenueEur"`
	AdvanceInterval             AdvanceInterval              `json:"advanceInterval"`
	TaxTreatments               map[FeeComponent]TaxTreatment `json:"taxTreatments,omitempty"`
}

// TreatmentFor returns the configured tax treatment, defaulting to exempt.
func (c ParkFeeConfig) TreatmentFor(comp FeeComponent) TaxTreatment {
	if t, ok := c.TaxTreatments[comp]; ok {
		return t
	}
	return TaxExempt
}

// Park is a wind park with its fee configuration.
type Park struct {
	ID              string        `json:"id"`
	TenantID        string        `json:"tenantId"`
	Name            string        `json:"name"`
	OperatorName    string        `json:"operatorName"`
	OperatorAddress string        `json:"operatorAddress"`
	FeeConfig       ParkFeeConfig `json:"feeConfig"`
	AuditFields
}

// Lessor owns plots leased to a park.
type Lessor struct {
	ID         string  `json:"id"`
	TenantID   string  `json:"tenantId"`
	Name       string  `json:"name"`
	Street     string  `json:"street"`
	PostalCode string  `json:"postalCode"`
	City       string  `json:"city"`
	IBAN       *string `json:"iban,omitempty"`
	BIC        *string `json:"bic,omitempty"`
}

var (
	errLessorNoIBAN    = errors.New("lessor has no IBAN on file")
	errLessorNoAddress = errors.New("lessor has no postal address on file")
)

// CheckPayable verifies the lessor carries the data required to pay them.
func (l Lessor) CheckPayable() error {
	if l.IBAN == nil || strings.TrimSpace(*l.IBAN) == "" {
		return errLessorNoIBAN
	}
	if strings.TrimSpace(l.Street) == "" || strings.TrimSpace(l.City) == "" {
		return errLessorNoAddress
	}
	return nil
}

// Address renders a single-line postal address.
func (l Lessor) Address() string {
	return strings.TrimSpace(l.Street + ", " + strings.TrimSpace(l.PostalCode+" "+l.City))
}

// Plot is a parcel of land covered by a lease.
type Plot struct {
	ID            string          `json:"id"`
	ParkID        string          `json:"parkId"`
	PlotNumber    string          `json:"plotNumber"`
	AreaSqm       decimal.Decimal `json:"areaSqm"`
	PoolAreaSqm   decimal.Decimal `json:"poolAreaSqm"`
	SealedAreaSqm decimal.Decimal `json:"sealedAreaSqm"`
	RoadAreaSqm   decimal.Decimal `json:"roadAreaSqm"`
	CableLengthM  decimal.Decimal `json:"cableLengthM"`
	TurbineCount  int             `json:"turbineCount"`
}

// LeaseStatus is the contractual state of a lease.
type LeaseStatus string

const (
	LeaseActive     LeaseStatus = "ACTIVE"
	LeaseTerminated LeaseStatus = "TERMINATED"
)

// Lease binds a lessor's plots to a park.
type Lease struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenantId"`
	ParkID    string      `json:"parkId"`
	Lessor    Lessor      `json:"lessor"`
	Status    LeaseStatus `json:"status"`
	StartDate time.Time   `json:"startDate"`
	EndDate   *time.Time  `json:"endDate,omitempty"`
	Plots     []Plot      `json:"plots"`
}

// ActiveDuring reports whether the lease is active at some point in [from, to).
func (l Lease) ActiveDuring(from, to time.Time) bool {
	if l.Status != LeaseActive {
		return false
	}
	if !l.StartDate.Before(to) {
		return false
	}
	return l.EndDate == nil || l.EndDate.After(from)
}
