package entity

import (
	"fmt"

	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
)

// Plan is the tier name used by the price table.
type Plan string

const (
	PlanStarter  Plan = "starter"
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

// StoredType returns the value persisted in subscriptions.plan_type.
// The starter tier is stored as "basic".
func (p Plan) StoredType() string {
	if p == PlanStarter {
		return "basic"
	}
	return string(p)
}

// PlanFromStoredType is the inverse of StoredType.
func PlanFromStoredType(s string) Plan {
	if s == "basic" {
		return PlanStarter
	}
	return Plan(s)
}

type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// IntervalFromRecurring maps a provider recurring interval ("month", "year")
// to a billing interval. Unknown values yield "".
func IntervalFromRecurring(s string) Interval {
	switch s {
	case "year":
		return IntervalYearly
	case "month":
		return IntervalMonthly
	}
	return ""
}

// Price is one entry of the price table.
type Price struct {
	ID       string
	Plan     Plan
	Interval Interval
}

// PriceTable maps provider price ids to (plan, interval).
type PriceTable struct {
	prices map[string]Price
}

func NewPriceTable(prices []Price) *PriceTable {
	t := &PriceTable{prices: make(map[string]Price, len(prices))}
	for _, p := range prices {
		t.prices[p.ID] = p
	}
	return t
}

// Lookup returns the plan and interval for priceID or ErrUnknownPrice.
func (t *PriceTable) Lookup(priceID string) (Price, error) {
	p, ok := t.prices[priceID]
	if !ok {
		return Price{}, fmt.Errorf("%w: %q", domainErrors.ErrUnknownPrice, priceID)
	}
	return p, nil
}

// CreditCaps is the monthly credit cap per plan.
type CreditCaps map[Plan]int

// Cap returns the cap for plan and whether the plan is known.
func (c CreditCaps) Cap(plan Plan) (int, bool) {
	v, ok := c[plan]
	return v, ok
}

// DefaultCreditCaps are used when configuration does not override them.
func DefaultCreditCaps() CreditCaps {
	return CreditCaps{
		PlanStarter:  240,
		PlanPro:      720,
		PlanBusiness: 1999,
	}
}
