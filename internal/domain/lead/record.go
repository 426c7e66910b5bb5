package lead

import (
	"strings"
	"time"
)

// RawRecord is one row of an institution export, keyed by column label
// exactly as it appeared in the file. Values are raw cell text.
type RawRecord map[string]string

// RawBatch is one institution export as read from disk. Columns preserves
// the original header order, including labels this pipeline never uses.
type RawBatch struct {
	Columns []string
	Records []RawRecord
}

// Len returns the number of records in the batch
func (b *RawBatch) Len() int {
	return len(b.Records)
}

// HasColumn reports whether the batch header contains the label,
// compared after trimming incidental whitespace, case-insensitively.
func (b *RawBatch) HasColumn(label string) bool {
	for _, c := range b.Columns {
		if strings.EqualFold(strings.TrimSpace(c), label) {
			return true
		}
	}
	return false
}

// Lead is the canonical projection of a RawRecord. Optional fields carry
// their zero value when the source institution never supplied them; Extra
// holds untouched passthrough columns for export.
type Lead struct {
	Institution Institution

	// ContactID is unique only within one institution's export.
	// It must always travel together with Institution.
	ContactID int64
	FullName  string
	Phone     string
	Email     string

	Program  string // program of interest, free text
	Database string // source database / segment label, free text
	Channel  string // inbound contact channel, normalized lowercase

	PhoneCalls  int // primary telephony call counter
	DialerCalls int // dialer subsystem call counter

	WhatsAppInbound bool // recoded from the yes-variant boolean column

	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMContent  string

	InsertedAt time.Time // zero when absent or unparseable
	UpdatedAt  time.Time

	// Resolution is the raw outcome text. Empty while the lead is still
	// in progress; only present on historical records.
	Resolution string

	EmailValid bool // structural validity, set during cleaning

	// Extra holds source columns outside the canonical schema, keyed by
	// their trimmed original label.
	Extra map[string]string
}

// ScoredLead pairs a canonical lead with its derived features and score
type ScoredLead struct {
	Lead     Lead
	Features FeatureVector
	Score    float64 // enrollment probability, 0-100, two decimals
	Tier     Tier
}

// Tier is a coarse score band
type Tier string

const (
	TierLow    Tier = "low"    // (0, 30]
	TierMedium Tier = "medium" // (30, 60]
	TierHigh   Tier = "high"   // (60, 100]
)

// Valid checks if tier is valid
func (t Tier) Valid() bool {
	switch t {
	case TierLow, TierMedium, TierHigh:
		return true
	}
	return false
}

// String returns string representation
func (t Tier) String() string {
	return string(t)
}
