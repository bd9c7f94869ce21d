package finding

import "strings"

// Category names the kind of harm a finding describes.
type Category string

// Legal categories.
const (
	CategoryDefamation    Category = "defamation"
	CategoryPrivacy       Category = "privacy"
	CategoryFalseLight    Category = "false_light"
	CategoryAppropriation Category = "appropriation"
)

// Platform policy categories.
const (
	CategoryCommunityGuidelines Category = "community_guidelines"
	CategoryAgeRestriction      Category = "age_restriction"
	CategoryMonetization        Category = "monetization"
	CategoryCopyright           Category = "copyright"
	CategoryMisinformation      Category = "misinformation"
	CategoryGraphicContent      Category = "graphic_content"
	CategoryHarassment          Category = "harassment"
)

// LegalCategories is the enumeration analyzers are asked to use in legal review.
var LegalCategories = []Category{
	CategoryDefamation, CategoryPrivacy, CategoryFalseLight, CategoryAppropriation,
}

// PolicyCategories is the enumeration used in platform policy review.
var PolicyCategories = []Category{
	CategoryCommunityGuidelines, CategoryAgeRestriction, CategoryMonetization,
	CategoryCopyright, CategoryMisinformation, CategoryGraphicContent, CategoryHarassment,
}

// ParseCategory canonicalises analyzer wording: lower case, spaces and
// hyphens folded to underscores. Unknown categories are kept as-is so that
// two analyzers inventing the same label still compare equal.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case "libel", "slander":
		return CategoryDefamation
	case "invasion_of_privacy", "public_disclosure_of_private_facts", "private_facts":
		return CategoryPrivacy
	case "misappropriation", "right_of_publicity":
		return CategoryAppropriation
	}
	return Category(s)
}

// IsLegal reports whether c is one of the legal categories.
func (c Category) IsLegal() bool {
	for _, v := range LegalCategories {
		if v == c {
			return true
		}
	}
	return false
}
