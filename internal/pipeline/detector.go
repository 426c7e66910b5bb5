package pipeline

import (
	"strings"

	"leadscore/internal/domain/lead"
	"leadscore/internal/normalize"
	"leadscore/pkg/logger"
)

// Detector determines which institution produced a raw batch. Detection
// rules live in the normalization config; the detector itself is a pure
// function over the batch and never fails.
type Detector struct {
	cfg *normalize.Config
	log *logger.Logger
}

// NewDetector creates a new institution detector
func NewDetector(cfg *normalize.Config) *Detector {
	return &Detector{
		cfg: cfg,
		log: logger.Get().With("component", "detector"),
	}
}

// Detection is the result of institution detection
type Detection struct {
	Institution lead.Institution
	Confidence  lead.Confidence
	Method      string // which rule decided: segment|signature|program|volume|none
}

// Detect tags a raw batch with its source institution. Methods run in
// strict priority order; the record-count fallback is unconditional for
// non-empty batches, so only an empty batch yields the unknown tag.
func (d *Detector) Detect(b *lead.RawBatch) Detection {
	if det, ok := d.bySegmentTokens(b); ok {
		return det
	}
	if det, ok := d.bySignatureColumns(b); ok {
		return det
	}
	if det, ok := d.byProgramVocabulary(b); ok {
		return det
	}
	if det, ok := d.byVolume(b); ok {
		d.log.Warnf("Institution %s detected by volume fallback only (%d records)",
			det.Institution, b.Len())
		return det
	}

	return Detection{
		Institution: lead.InstitutionUnknown,
		Confidence:  lead.ConfidenceLow,
		Method:      "none",
	}
}

// bySegmentTokens matches institution name tokens against the uppercased
// distinct values of the segment-label column. Tokens are checked in
// config order, more specific first.
func (d *Detector) bySegmentTokens(b *lead.RawBatch) (Detection, bool) {
	segments := d.distinctColumnValues(b, "database", "Base de datos")
	if segments == "" {
		return Detection{}, false
	}

	for _, rule := range d.cfg.Institutions {
		for _, token := range rule.SegmentTokens {
			if strings.Contains(segments, strings.ToUpper(token)) {
				return Detection{
					Institution: rule.Name,
					Confidence:  lead.ConfidenceHigh,
					Method:      "segment",
				}, true
			}
		}
	}
	return Detection{}, false
}

// bySignatureColumns checks for column labels only one institution's
// export carries.
func (d *Detector) bySignatureColumns(b *lead.RawBatch) (Detection, bool) {
	for _, rule := range d.cfg.Institutions {
		for _, col := range rule.SignatureColumns {
			if b.HasColumn(col) {
				return Detection{
					Institution: rule.Name,
					Confidence:  lead.ConfidenceHigh,
					Method:      "signature",
				}, true
			}
		}
	}
	return Detection{}, false
}

// byProgramVocabulary matches program-name substrings unique to specific
// institutions' catalogs.
func (d *Detector) byProgramVocabulary(b *lead.RawBatch) (Detection, bool) {
	programs := d.distinctColumnValues(b, "program", "Programa interes")
	if programs == "" {
		return Detection{}, false
	}

	for _, rule := range d.cfg.Institutions {
		for _, token := range rule.ProgramTokens {
			if strings.Contains(programs, strings.ToUpper(token)) {
				return Detection{
					Institution: rule.Name,
					Confidence:  lead.ConfidenceHigh,
					Method:      "program",
				}, true
			}
		}
	}
	return Detection{}, false
}

// byVolume classifies by record-count bucket. Buckets are ordered largest
// first and thresholds are exclusive, so a batch of exactly min_records
// falls to the next bucket down. An empty batch falls outside every
// bucket.
func (d *Detector) byVolume(b *lead.RawBatch) (Detection, bool) {
	n := b.Len()
	for _, bucket := range d.cfg.VolumeBuckets {
		if n > bucket.MinRecords {
			return Detection{
				Institution: bucket.Institution,
				Confidence:  lead.ConfidenceLow,
				Method:      "volume",
			}, true
		}
	}
	return Detection{}, false
}

// distinctColumnValues concatenates the uppercased distinct values of the
// first present column among the given labels. Labels cover both the
// canonical name and the raw export header, since detection runs before
// normalization but must also work on an already-normalized batch.
func (d *Detector) distinctColumnValues(b *lead.RawBatch, labels ...string) string {
	var col string
	for _, want := range labels {
		for _, c := range b.Columns {
			if strings.EqualFold(strings.TrimSpace(c), want) {
				col = c
				break
			}
		}
		if col != "" {
			break
		}
	}
	if col == "" {
		return ""
	}

	seen := make(map[string]struct{})
	var sb strings.Builder
	for _, rec := range b.Records {
		v := strings.ToUpper(strings.TrimSpace(rec[col]))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(v)
	}
	return sb.String()
}
