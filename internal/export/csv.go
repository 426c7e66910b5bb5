// Package export writes scored batches back to disk as CSV, ready for
// the CRM teams' spreadsheet tooling.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"leadscore/internal/domain/lead"
	"leadscore/pkg/errors"
)

// Excel needs the BOM to pick UTF-8 over the locale codepage
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// scoredColumns is the fixed canonical + derived part of the output
// header. Passthrough columns from the source export follow it, then
// the two score columns close the row.
var scoredColumns = []string{
	"contact_id",
	"institution",
	"full_name",
	"phone",
	"email",
	"has_email",
	"program",
	"program_category",
	"database",
	"database_category",
	"channel",
	"whatsapp_inbound",
	"resolution",
	"phone_calls",
	"dialer_calls",
	"inserted_at",
	"updated_at",
	"days_under_management",
	"call_ratio",
	"high_call_activity",
	"recent_lead",
	"stale_lead",
	"utm_source",
	"utm_source_category",
	"utm_medium",
	"utm_medium_category",
	"utm_campaign",
	"utm_content",
}

// scoreColumns are always the last two cells of every row
var scoreColumns = []string{
	"enrollment_score",
	"score_tier",
}

// timestampLayout renders parsed CRM dates back out; zero times render
// as empty cells
const timestampLayout = "2006-01-02 15:04:05"

// Writer writes scored exports into a flat output directory
type Writer struct {
	outputDir string
}

// NewWriter creates a writer rooted at outputDir, creating it if needed
func NewWriter(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output dir %s", outputDir)
	}
	return &Writer{outputDir: outputDir}, nil
}

// WriteScored writes one scored batch. Rows are ordered by score
// descending so the hottest leads sit at the top of the sheet; ties keep
// contact id order for stable diffs between runs. Returns the written
// file path.
func (w *Writer) WriteScored(sourceFile string, leads []lead.ScoredLead) (string, error) {
	if len(leads) == 0 {
		return "", errors.Wrap(errors.ErrEmptyBatch, "nothing to export")
	}

	sorted := make([]lead.ScoredLead, len(leads))
	copy(sorted, leads)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Lead.ContactID < sorted[j].Lead.ContactID
	})

	extras := extraColumns(sorted)
	header := append(append([]string{}, scoredColumns...), extras...)
	header = append(header, scoreColumns...)

	base := filepath.Base(sourceFile)
	path := filepath.Join(w.outputDir, "scored_"+base)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return "", errors.Wrap(err, "failed to write BOM")
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return "", errors.Wrap(err, "failed to write header")
	}

	for i := range sorted {
		if err := cw.Write(row(&sorted[i], extras)); err != nil {
			return "", errors.Wrapf(err, "failed to write record %d", i)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", errors.Wrap(err, "failed to flush export")
	}
	return path, nil
}

// extraColumns collects the union of passthrough column labels across the
// batch, sorted for a deterministic header.
func extraColumns(leads []lead.ScoredLead) []string {
	seen := make(map[string]struct{})
	for i := range leads {
		for label := range leads[i].Lead.Extra {
			seen[label] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for label := range seen {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

func row(s *lead.ScoredLead, extras []string) []string {
	l := &s.Lead
	v := &s.Features

	cells := []string{
		strconv.FormatInt(l.ContactID, 10),
		l.Institution.String(),
		l.FullName,
		l.Phone,
		l.Email,
		strconv.Itoa(v.HasEmail),
		l.Program,
		v.ProgramCategory,
		l.Database,
		v.DatabaseCategory,
		l.Channel,
		strconv.Itoa(v.WhatsAppInbound),
		l.Resolution,
		strconv.Itoa(l.PhoneCalls),
		strconv.Itoa(l.DialerCalls),
		formatTimestamp(l.InsertedAt),
		formatTimestamp(l.UpdatedAt),
		strconv.Itoa(v.DaysUnderManagement),
		strconv.FormatFloat(v.CallRatio, 'f', 4, 64),
		strconv.Itoa(v.HighCallActivity),
		strconv.Itoa(v.RecentLead),
		strconv.Itoa(v.StaleLead),
		l.UTMSource,
		v.UTMSourceCategory,
		l.UTMMedium,
		v.UTMMediumCategory,
		l.UTMCampaign,
		l.UTMContent,
	}

	for _, label := range extras {
		cells = append(cells, l.Extra[label])
	}

	cells = append(cells,
		strconv.FormatFloat(s.Score, 'f', 2, 64),
		s.Tier.String(),
	)
	return cells
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}
