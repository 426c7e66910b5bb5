package lead

// ResolutionCategory is the closed taxonomy a free-text outcome string
// maps into. Categories are evaluated in the order returned by
// ResolutionCategories; the first keyword match wins, so reordering
// changes classification outcomes for ambiguous text.
type ResolutionCategory string

const (
	ResolutionSuccess           ResolutionCategory = "success"
	ResolutionInProgress        ResolutionCategory = "in_progress"
	ResolutionEnrolledElsewhere ResolutionCategory = "rejected_enrolled_elsewhere"
	ResolutionNoContact         ResolutionCategory = "rejected_no_contact"
	ResolutionPhoneIssue        ResolutionCategory = "rejected_phone_issue"
	ResolutionWhatsAppIssue     ResolutionCategory = "rejected_whatsapp_issue"
	ResolutionNotInterested     ResolutionCategory = "rejected_not_interested"
	ResolutionRejectedOther     ResolutionCategory = "rejected_other"
	ResolutionInformational     ResolutionCategory = "informational"
	ResolutionUnknown           ResolutionCategory = "unknown"
)

// ResolutionCategories returns every category that carries a keyword
// list, in evaluation order: success and in_progress before the specific
// rejection reasons, which come before the generic catch-alls.
// ResolutionUnknown is not listed; it is the no-match result.
func ResolutionCategories() []ResolutionCategory {
	return []ResolutionCategory{
		ResolutionSuccess,
		ResolutionInProgress,
		ResolutionEnrolledElsewhere,
		ResolutionNoContact,
		ResolutionPhoneIssue,
		ResolutionWhatsAppIssue,
		ResolutionNotInterested,
		ResolutionRejectedOther,
		ResolutionInformational,
	}
}

// Valid checks if the category is part of the closed set
func (c ResolutionCategory) Valid() bool {
	switch c {
	case ResolutionSuccess, ResolutionInProgress, ResolutionEnrolledElsewhere,
		ResolutionNoContact, ResolutionPhoneIssue, ResolutionWhatsAppIssue,
		ResolutionNotInterested, ResolutionRejectedOther, ResolutionInformational,
		ResolutionUnknown:
		return true
	}
	return false
}

// String returns string representation
func (c ResolutionCategory) String() string {
	return string(c)
}

// Binary derives the enrollment outcome label: 1 only for success.
// Unknown deliberately maps to 0 so an uncategorized outcome is never
// silently counted as a conversion.
func (c ResolutionCategory) Binary() int {
	if c == ResolutionSuccess {
		return 1
	}
	return 0
}
