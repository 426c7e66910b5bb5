package pipeline

import (
	"sort"
	"strings"

	"leadscore/internal/domain/lead"
	"leadscore/internal/metrics"
	"leadscore/internal/normalize"
	"leadscore/pkg/logger"
)

// ResolutionClassifier maps free-text outcome strings into the closed
// resolution taxonomy via ordered, case-insensitive substring rules.
// The keyword lists are config data ported verbatim from production;
// their ordering decides ambiguous text and must not be re-derived.
type ResolutionClassifier struct {
	cfg *normalize.Config
	log *logger.Logger
}

// NewResolutionClassifier creates a new resolution classifier
func NewResolutionClassifier(cfg *normalize.Config) *ResolutionClassifier {
	return &ResolutionClassifier{
		cfg: cfg,
		log: logger.Get().With("component", "resolution"),
	}
}

// Categorize maps one outcome string to its resolution category.
// Empty text means the lead is still awaiting an outcome and counts as
// unknown, same as text no keyword matches.
func (rc *ResolutionClassifier) Categorize(text string) lead.ResolutionCategory {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return lead.ResolutionUnknown
	}

	for _, cat := range lead.ResolutionCategories() {
		for _, kw := range rc.cfg.KeywordsFor(cat) {
			if strings.Contains(s, kw) {
				return cat
			}
		}
	}
	return lead.ResolutionUnknown
}

// Binary derives the outcome label from a category using the configured
// mapping. Categories absent from the map, unknown included, count as 0.
func (rc *ResolutionClassifier) Binary(cat lead.ResolutionCategory) int {
	if v, ok := rc.cfg.ResolutionToBinary[cat.String()]; ok {
		return v
	}
	return 0
}

// UnknownReport tallies the distinct raw strings a batch left
// uncategorized. A growing unknown bucket signals the keyword table
// needs updating, so it is surfaced as a metric rather than discarded.
type UnknownReport struct {
	Total    int
	Distinct map[string]int
}

// Sample returns up to n distinct unknown strings, most frequent first
func (r *UnknownReport) Sample(n int) []string {
	type entry struct {
		text  string
		count int
	}
	entries := make([]entry, 0, len(r.Distinct))
	for text, count := range r.Distinct {
		entries = append(entries, entry{text, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].text < entries[j].text
	})

	if n > len(entries) {
		n = len(entries)
	}
	out := make([]string, 0, n)
	for _, e := range entries[:n] {
		out = append(out, e.text)
	}
	return out
}

// CategorizeBatch labels every lead that carries outcome text and
// reports the unknown bucket. Leads with no resolution text yet are
// excluded from the report; they are in progress, not drift.
func (rc *ResolutionClassifier) CategorizeBatch(leads []lead.Lead, inst lead.Institution) (map[int64]lead.ResolutionCategory, *UnknownReport) {
	categories := make(map[int64]lead.ResolutionCategory, len(leads))
	report := &UnknownReport{Distinct: make(map[string]int)}

	for _, l := range leads {
		cat := rc.Categorize(l.Resolution)
		categories[l.ContactID] = cat

		if cat == lead.ResolutionUnknown && strings.TrimSpace(l.Resolution) != "" {
			report.Total++
			report.Distinct[strings.TrimSpace(l.Resolution)]++
			metrics.UnknownResolutions.WithLabelValues(inst.String()).Inc()
		}
	}

	if report.Total > 0 {
		rc.log.Warnf("%d resolutions uncategorized (%d distinct), top: %v",
			report.Total, len(report.Distinct), report.Sample(5))
	}

	return categories, report
}
