package pipeline

import (
	"strings"
	"time"

	"leadscore/internal/domain/lead"
	"leadscore/internal/normalize"
)

// Category fallbacks and sentinels shared by the keyword categorizers
const (
	CategoryOther        = "OTHER"
	CategoryNotSpecified = "NOT_SPECIFIED"

	// UTMOther marks attribution that is present but unrecognized;
	// UTMNotAvailable marks absent attribution data. The two are
	// deliberately distinct vocabulary values.
	UTMOther        = "other"
	UTMNotAvailable = "not_available"
)

// FeatureEngine derives the fixed engineered feature set from canonical
// leads. Every derivation is a total pure function: given a normalized
// lead with backfilled defaults it never fails.
type FeatureEngine struct {
	cfg *normalize.Config
}

// NewFeatureEngine creates a new feature engine
func NewFeatureEngine(cfg *normalize.Config) *FeatureEngine {
	return &FeatureEngine{cfg: cfg}
}

// Derive builds the feature vector for one lead
func (fe *FeatureEngine) Derive(l *lead.Lead) lead.FeatureVector {
	days := daysUnderManagement(l.InsertedAt, l.UpdatedAt)

	v := lead.FeatureVector{
		Institution:         l.Institution.String(),
		PhoneCalls:          l.PhoneCalls,
		DialerCalls:         l.DialerCalls,
		DaysUnderManagement: days,
		// Denominator floored at 1: a same-day lead keeps its raw call
		// count instead of blowing up the ratio.
		CallRatio:         float64(l.PhoneCalls) / float64(max(days, 1)),
		ProgramCategory:   fe.CategorizeProgram(l.Program),
		DatabaseCategory:  fe.CategorizeDatabase(l.Database),
		UTMSourceCategory: fe.CategorizeUTMSource(l.UTMSource),
		UTMMediumCategory: fe.CategorizeUTMMedium(l.UTMMedium),
	}

	if l.PhoneCalls > 5 {
		v.HighCallActivity = 1
	}
	// Both recency flags stay 0 in the 7-30 day band; that is the
	// intended middle band, not a gap.
	if days < 7 {
		v.RecentLead = 1
	}
	if days > 30 {
		v.StaleLead = 1
	}
	if l.EmailValid {
		v.HasEmail = 1
	}
	if l.WhatsAppInbound {
		v.WhatsAppInbound = 1
	}

	return v
}

// daysUnderManagement is the floor-day difference between insertion and
// last update, clamped at zero. Unparseable timestamps already arrive as
// zero values and count as a zero-day difference, never as an error.
func daysUnderManagement(insertedAt, updatedAt time.Time) int {
	if insertedAt.IsZero() || updatedAt.IsZero() {
		return 0
	}
	days := int(updatedAt.Sub(insertedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// CategorizeProgram maps free program text onto the closed program
// vocabulary. Sentinel strings short-circuit to NOT_SPECIFIED before any
// keyword rule; rules run in config order, most specific first.
func (fe *FeatureEngine) CategorizeProgram(program string) string {
	s := strings.ToUpper(strings.TrimSpace(program))

	for _, sentinel := range fe.cfg.ProgramSentinels {
		if s == sentinel {
			return CategoryNotSpecified
		}
	}

	for _, rule := range fe.cfg.ProgramRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(s, kw) {
				return rule.Category
			}
		}
	}
	return CategoryOther
}

// CategorizeDatabase maps the source segment label onto the database
// vocabulary: explicit level names first, then operational tags, then the
// numbered-segment heuristics.
func (fe *FeatureEngine) CategorizeDatabase(database string) string {
	s := strings.ToUpper(strings.TrimSpace(database))

	for _, sentinel := range fe.cfg.DatabaseSentinels {
		if s == sentinel {
			return CategoryNotSpecified
		}
	}

	for _, rule := range fe.cfg.DatabaseRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(s, kw) {
				return rule.Category
			}
		}
	}
	return CategoryOther
}

// CategorizeUTMSource normalizes campaign source attribution into the
// fixed source vocabulary. Absent or placeholder values map to
// not_available, kept apart from other.
func (fe *FeatureEngine) CategorizeUTMSource(source string) string {
	return fe.categorizeUTM(source, fe.cfg.UTMSourceNotAvailable, fe.cfg.UTMSourceRules)
}

// CategorizeUTMMedium normalizes campaign medium attribution into the
// fixed medium vocabulary. Medium carries its own placeholder list;
// it treats the literal "test" as absent where source does not.
func (fe *FeatureEngine) CategorizeUTMMedium(medium string) string {
	return fe.categorizeUTM(medium, fe.cfg.UTMMediumNotAvailable, fe.cfg.UTMMediumRules)
}

func (fe *FeatureEngine) categorizeUTM(value string, notAvailable []string, rules []normalize.CategoryRule) string {
	s := strings.ToLower(strings.TrimSpace(value))

	for _, na := range notAvailable {
		if s == na {
			return UTMNotAvailable
		}
	}

	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(s, kw) {
				return rule.Category
			}
		}
	}
	return UTMOther
}
