package rules

import "github.com/maffers001/property/internal/model"

// DefaultConfidenceThreshold is the confidence below which a transaction is
// flagged for review.
const DefaultConfidenceThreshold = 0.85

// ReviewPolicy decides, at classification time, whether a transaction needs
// review. The server and the client must compute this identically, so the
// policy lives in one place.
type ReviewPolicy struct {
	moneyMovement       map[string]struct{}
	ConfidenceThreshold float64
}

// DefaultMoneyMovementCategories are the categories that require a property
// code before they can skip review.
func DefaultMoneyMovementCategories() []string {
	return []string{
		model.CategoryMortgage,
		model.CategoryPropertyExpense,
		model.CategoryOurRent,
		model.CategoryBealsRent,
	}
}

// NewReviewPolicy builds a policy from a threshold and the money-movement
// category set.
func NewReviewPolicy(threshold float64, moneyMovement []string) ReviewPolicy {
	set := make(map[string]struct{}, len(moneyMovement))
	for _, c := range moneyMovement {
		set[c] = struct{}{}
	}
	return ReviewPolicy{
		ConfidenceThreshold: threshold,
		moneyMovement:       set,
	}
}

// DefaultReviewPolicy returns the policy with stock threshold and categories.
func DefaultReviewPolicy() ReviewPolicy {
	return NewReviewPolicy(DefaultConfidenceThreshold, DefaultMoneyMovementCategories())
}

// IsMoneyMovement reports whether a category is in the money-movement set.
func (p ReviewPolicy) IsMoneyMovement(category string) bool {
	_, ok := p.moneyMovement[category]
	return ok
}

// NeedsReview applies the review-flag policy to one classified transaction:
// low confidence, a catch-all match, or a money-movement category with no
// property code. A nil confidence (manual classification) never triggers the
// confidence term.
func (p ReviewPolicy) NeedsReview(confidence *float64, strength model.RuleStrength, category, propertyCode string) bool {
	if confidence != nil && *confidence < p.ConfidenceThreshold {
		return true
	}
	if strength == model.StrengthCatchAll {
		return true
	}
	if p.IsMoneyMovement(category) && propertyCode == "" {
		return true
	}
	return false
}

// Evaluate applies the policy to a classification result.
func (p ReviewPolicy) Evaluate(c Classification) bool {
	conf := c.Confidence
	return p.NeedsReview(&conf, c.Strength, c.Category, c.PropertyCode)
}
