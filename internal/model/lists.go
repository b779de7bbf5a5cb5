package model

// ListDomain identifies one of the three enumerable label domains.
type ListDomain string

// List domain constants.
const (
	DomainProperty    ListDomain = "property"
	DomainCategory    ListDomain = "category"
	DomainSubcategory ListDomain = "subcategory"
)

// ValidDomain reports whether d names a known list domain.
func ValidDomain(d ListDomain) bool {
	switch d {
	case DomainProperty, DomainCategory, DomainSubcategory:
		return true
	}
	return false
}

// Lists holds the three append-only value sets of the list registry.
type Lists struct {
	PropertyCodes []string `json:"property_codes"`
	Categories    []string `json:"categories"`
	Subcategories []string `json:"subcategories"`
}
