package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"leadscore/internal/domain/lead"
	"leadscore/internal/normalize"
	"leadscore/pkg/errors"
	"leadscore/pkg/logger"
)

// WhatsAppInboundSentinel is the value the yes-variant recode produces.
// Downstream flag derivation keys off its presence, never off a
// false-like string.
const WhatsAppInboundSentinel = "inbound"

// emailPattern is a conservative structural check: local@domain.tld with
// a top-level label of at least two characters.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// timestampLayouts are tried in order when parsing CRM date columns
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// Normalizer projects raw institution exports onto the canonical schema
// and runs the batch cleaning pass. All steps are idempotent: feeding an
// already-canonical batch through again is a no-op.
type Normalizer struct {
	cfg *normalize.Config
	log *logger.Logger
}

// NewNormalizer creates a new schema normalizer
func NewNormalizer(cfg *normalize.Config) *Normalizer {
	return &Normalizer{
		cfg: cfg,
		log: logger.Get().With("component", "normalizer"),
	}
}

// CleanStats aggregates the row-level anomalies absorbed during
// normalization. They are reported, never raised.
type CleanStats struct {
	EmptyColumnsDropped []string
	InvalidEmails       int
	DuplicatesDropped   int
}

// Normalize converts a raw batch into canonical leads. Missing optional
// columns are backfilled with neutral defaults; a missing required column
// is fatal and reported by exact name before any further processing.
func (n *Normalizer) Normalize(b *lead.RawBatch, inst lead.Institution) ([]lead.Lead, *CleanStats, error) {
	stats := &CleanStats{}
	if b.Len() == 0 {
		return []lead.Lead{}, stats, nil
	}

	// Map each raw header to its canonical name. Duplicate canonical
	// columns keep the first occurrence, matching the source CRM's own
	// export quirk.
	headers := make([]headerMapping, 0, len(b.Columns))
	seen := make(map[string]bool)
	for _, raw := range b.Columns {
		canonical := n.canonicalName(raw)
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		headers = append(headers, headerMapping{raw: raw, canonical: canonical})
	}

	if err := n.checkRequired(seen); err != nil {
		return nil, nil, err
	}

	// Drop columns that are empty across the whole batch
	empty := n.emptyColumns(b, headers)
	if len(empty) > 0 {
		stats.EmptyColumnsDropped = empty
		n.log.Debugf("Dropping %d fully empty columns: %s", len(empty), strings.Join(empty, ", "))
	}

	leads := make([]lead.Lead, 0, b.Len())
	for _, rec := range b.Records {
		leads = append(leads, n.buildLead(rec, headers, empty, inst, stats))
	}

	leads = n.dropDuplicates(leads, stats)

	return leads, stats, nil
}

type headerMapping struct {
	raw       string
	canonical string
}

// canonicalName trims the label and applies the rename table. The table
// must apply even when the origin name still carries incidental
// whitespace, so lookup always happens on the trimmed form.
func (n *Normalizer) canonicalName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if mapped, ok := n.cfg.ColumnMappings[trimmed]; ok {
		return mapped
	}
	return trimmed
}

func (n *Normalizer) checkRequired(present map[string]bool) error {
	var missing []string
	for _, col := range n.cfg.RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(errors.ErrMissingColumn, "%s", strings.Join(missing, ", "))
	}
	return nil
}

func (n *Normalizer) emptyColumns(b *lead.RawBatch, headers []headerMapping) []string {
	var empty []string
	for _, h := range headers {
		allEmpty := true
		for _, rec := range b.Records {
			if strings.TrimSpace(rec[h.raw]) != "" {
				allEmpty = false
				break
			}
		}
		if allEmpty {
			empty = append(empty, h.canonical)
		}
	}
	return empty
}

// buildLead populates one canonical lead, backfilling neutral defaults
// for every column the source institution never supplied. Malformed
// values (unparseable dates, non-numeric counters) fall back to their
// defaults; they never abort the batch.
func (n *Normalizer) buildLead(rec lead.RawRecord, headers []headerMapping, dropped []string, inst lead.Institution, stats *CleanStats) lead.Lead {
	values := make(map[string]string, len(headers))
	extra := make(map[string]string)
	droppedSet := make(map[string]bool, len(dropped))
	for _, c := range dropped {
		droppedSet[c] = true
	}

	for _, h := range headers {
		if droppedSet[h.canonical] {
			continue
		}
		values[h.canonical] = rec[h.raw]
		if !canonicalColumns[h.canonical] {
			extra[h.canonical] = rec[h.raw]
		}
	}

	l := lead.Lead{
		Institution: inst,
		ContactID:   parseInt(values["contact_id"]),
		FullName:    strings.TrimSpace(values["full_name"]),
		Phone:       strings.TrimSpace(values["phone"]),
		Email:       strings.TrimSpace(values["email"]),
		Program:     normalizeProgram(values["program"]),
		Database:    strings.TrimSpace(values["database"]),
		Channel:     n.normalizeChannel(values["channel"]),
		PhoneCalls:  int(parseInt(values["phone_calls"])),
		DialerCalls: int(parseInt(values["dialer_calls"])),
		UTMSource:   normalizeUTM(values["utm_source"]),
		UTMMedium:   normalizeUTM(values["utm_medium"]),
		UTMCampaign: normalizeUTM(values["utm_campaign"]),
		UTMContent:  normalizeUTM(values["utm_content"]),
		InsertedAt:  parseTimestamp(values["inserted_at"]),
		UpdatedAt:   parseTimestamp(values["updated_at"]),
		Resolution:  strings.TrimSpace(values["resolution"]),
		Extra:       extra,
	}

	l.WhatsAppInbound = n.recodeWhatsApp(values["whatsapp_inbound"]) == WhatsAppInboundSentinel

	l.EmailValid = l.Email != "" && emailPattern.MatchString(l.Email)
	if l.Email != "" && !l.EmailValid {
		stats.InvalidEmails++
	}

	return l
}

// recodeWhatsApp maps yes-variant spellings to the inbound sentinel.
// Anything else, including empty or no-like values, maps to absent,
// never to a false-like string. Re-applying the recode to the sentinel
// itself is a no-op.
func (n *Normalizer) recodeWhatsApp(v string) string {
	s := strings.ToLower(strings.TrimSpace(v))
	if s == WhatsAppInboundSentinel {
		return WhatsAppInboundSentinel
	}
	for _, yes := range n.cfg.WhatsAppYesValues {
		if s == yes {
			return WhatsAppInboundSentinel
		}
	}
	return ""
}

func (n *Normalizer) normalizeChannel(v string) string {
	s := strings.ToLower(strings.TrimSpace(v))
	if alias, ok := n.cfg.ChannelAliases[s]; ok {
		return alias
	}
	return s
}

// dropDuplicates removes repeat submissions: the same valid email for the
// same program counts once, first occurrence kept. Records without a
// valid email are never considered duplicates of each other.
func (n *Normalizer) dropDuplicates(leads []lead.Lead, stats *CleanStats) []lead.Lead {
	type dupKey struct {
		email   string
		program string
	}
	seen := make(map[dupKey]bool)
	out := leads[:0]
	for _, l := range leads {
		if l.EmailValid {
			k := dupKey{email: strings.ToLower(l.Email), program: l.Program}
			if seen[k] {
				stats.DuplicatesDropped++
				continue
			}
			seen[k] = true
		}
		out = append(out, l)
	}
	return out
}

// canonicalColumns is the set of canonical names with a typed home on the
// Lead struct; everything else flows into the Extra side-table.
var canonicalColumns = map[string]bool{
	"contact_id":       true,
	"full_name":        true,
	"phone":            true,
	"email":            true,
	"program":          true,
	"database":         true,
	"channel":          true,
	"phone_calls":      true,
	"dialer_calls":     true,
	"whatsapp_inbound": true,
	"utm_source":       true,
	"utm_medium":       true,
	"utm_campaign":     true,
	"utm_content":      true,
	"inserted_at":      true,
	"updated_at":       true,
	"resolution":       true,
}

func normalizeProgram(v string) string {
	s := strings.ToUpper(strings.TrimSpace(v))
	if s == "" {
		return "NO ESPECIFICADO"
	}
	return s
}

func normalizeUTM(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// parseInt reads an integer counter, tolerating the float formatting some
// CRM exports use ("3.0"). Anything unparseable counts as zero.
func parseInt(v string) int64 {
	s := strings.TrimSpace(v)
	if s == "" {
		return 0
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseTimestamp(v string) time.Time {
	s := strings.TrimSpace(v)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
