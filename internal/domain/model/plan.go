package model

import (
	"fmt"

	"fliq-payments/internal/domain"
)

// PackageType identifies what a credit package unlocks.
type PackageType string

const (
	PackageStudentProfiles PackageType = "student_profiles"
	PackageEssayRevisions  PackageType = "essay_revisions"
	PackageCombo           PackageType = "combo_package"
)

func (p PackageType) Valid() bool {
	switch p {
	case PackageStudentProfiles, PackageEssayRevisions, PackageCombo:
		return true
	}
	return false
}

// PaymentPlan is an immutable catalog entry fetched from the backend.
// Price is stored in minor currency units (cents) to avoid float errors.
type PaymentPlan struct {
	ID                string
	Name              string
	Description       string
	Credits           int64
	Price             int64 // minor units
	Currency          string
	PackageType       PackageType
	ProfilesUnlocked  int
	RevisionsUnlocked int
	Popular           bool
}

func (p *PaymentPlan) IsZero() bool { return p == nil || p.ID == "" }

// PriceFormatted renders the price as a display string, e.g. "$9.99".
func (p *PaymentPlan) PriceFormatted() string {
	return fmt.Sprintf("$%d.%02d", p.Price/100, p.Price%100)
}

// NewPaymentPlan validates and constructs a plan.
func NewPaymentPlan(id, name string, credits, price int64, currency string, pkg PackageType) (*PaymentPlan, error) {
	if id == "" || name == "" || credits <= 0 || price < 0 || !pkg.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "usd"
	}
	return &PaymentPlan{
		ID:          id,
		Name:        name,
		Credits:     credits,
		Price:       price,
		Currency:    currency,
		PackageType: pkg,
	}, nil
}

// DefaultCatalog is the hardcoded fallback used when the plan fetch fails.
// Browsing is never blocked on a non-critical fetch.
func DefaultCatalog() []*PaymentPlan {
	return []*PaymentPlan{
		{
			ID:               "profiles-10",
			Name:             "Profile Explorer",
			Description:      "Unlock 10 student profiles",
			Credits:          10,
			Price:            999,
			Currency:         "usd",
			PackageType:      PackageStudentProfiles,
			ProfilesUnlocked: 10,
		},
		{
			ID:                "revisions-5",
			Name:              "Essay Polisher",
			Description:       "5 essay revision analyses",
			Credits:           5,
			Price:             1499,
			Currency:          "usd",
			PackageType:       PackageEssayRevisions,
			RevisionsUnlocked: 5,
		},
		{
			ID:                "combo-20",
			Name:              "All Access Combo",
			Description:       "15 profiles + 5 revisions",
			Credits:           20,
			Price:             2499,
			Currency:          "usd",
			PackageType:       PackageCombo,
			ProfilesUnlocked:  15,
			RevisionsUnlocked: 5,
			Popular:           true,
		},
	}
}
