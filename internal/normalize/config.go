// Package normalize holds the versioned normalization config: the column
// rename table, resolution keyword taxonomy, categorizer rules and
// institution detection rules. The tables are data, not logic, so a new
// institution can be onboarded by editing the JSON document without
// touching pipeline code.
package normalize

import (
	_ "embed"
	"encoding/json"
	"os"

	"leadscore/internal/domain/lead"
	"leadscore/pkg/errors"
)

//go:embed normalization_default.json
var defaultConfigJSON []byte

// Config is the immutable normalization configuration, loaded once and
// injected by value into each pipeline component.
type Config struct {
	Version     string `json:"version"`
	Description string `json:"description"`

	// ColumnMappings renames origin column labels (after whitespace
	// trimming) to canonical schema names.
	ColumnMappings map[string]string `json:"column_mappings"`

	// ResolutionKeywords lists, per category, the lowercase substrings
	// that classify an outcome string. Evaluation follows
	// lead.ResolutionCategories order, not map order.
	ResolutionKeywords map[string][]string `json:"resolution_keywords"`

	// ResolutionToBinary maps category name to the outcome label.
	// Categories absent from the map count as 0.
	ResolutionToBinary map[string]int `json:"resolution_to_binary"`

	RequiredColumns []string `json:"required_columns"`
	OptionalColumns []string `json:"optional_columns"`

	// LeakageColumns encode information only known after the outcome;
	// they are carried through for audit but never become features.
	LeakageColumns []string `json:"leakage_columns"`

	// WhatsAppYesValues are the spellings that mean "yes" in the
	// inbound-WhatsApp boolean column.
	WhatsAppYesValues []string `json:"whatsapp_yes_values"`

	// ChannelAliases unify contact-channel spellings (wsp, wa, ...)
	ChannelAliases map[string]string `json:"channel_aliases"`

	Institutions  []InstitutionRule `json:"institutions"`
	VolumeBuckets []VolumeBucket    `json:"volume_buckets"`

	ProgramSentinels []string       `json:"program_sentinels"`
	ProgramRules     []CategoryRule `json:"program_rules"`

	DatabaseSentinels []string       `json:"database_sentinels"`
	DatabaseRules     []CategoryRule `json:"database_rules"`

	UTMSourceNotAvailable []string       `json:"utm_source_not_available"`
	UTMSourceRules        []CategoryRule `json:"utm_source_rules"`
	UTMMediumNotAvailable []string       `json:"utm_medium_not_available"`
	UTMMediumRules        []CategoryRule `json:"utm_medium_rules"`
}

// InstitutionRule describes how one institution's exports are recognized.
// Rules are evaluated in listed order within each detection method.
type InstitutionRule struct {
	Name lead.Institution `json:"name"`

	// SegmentTokens are matched as substrings against the uppercased
	// segment-label column. Longer tokens come first so a short token
	// cannot falsely match inside an unrelated longer string.
	SegmentTokens []string `json:"segment_tokens"`

	// SignatureColumns are column labels only this institution's export
	// carries; presence of any one identifies the institution.
	SignatureColumns []string `json:"signature_columns"`

	// ProgramTokens are program-name substrings unique to this
	// institution's catalog, matched uppercased.
	ProgramTokens []string `json:"program_tokens"`
}

// VolumeBucket maps a minimum record count to an institution. Buckets are
// evaluated in listed order, largest first. This is the low-confidence
// detection fallback.
type VolumeBucket struct {
	MinRecords  int              `json:"min_records"`
	Institution lead.Institution `json:"institution"`
}

// CategoryRule maps a closed-vocabulary category to the substrings that
// select it. First matching rule wins, so list order is significant.
type CategoryRule struct {
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// Load reads a normalization config from path, or returns the embedded
// default tables when path is empty.
func Load(path string) (*Config, error) {
	data := defaultConfigJSON
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read normalization config %s", path)
		}
		data = b
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse normalization config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the embedded default configuration
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// The embedded document is part of the build; failing to parse
		// it is a programming error.
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Version == "" {
		return errors.Wrap(errors.ErrInvalidInput, "normalization config missing version")
	}
	if len(c.ColumnMappings) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "normalization config has no column mappings")
	}
	if len(c.RequiredColumns) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "normalization config lists no required columns")
	}
	for _, cat := range lead.ResolutionCategories() {
		if _, ok := c.ResolutionKeywords[cat.String()]; !ok {
			return errors.Wrapf(errors.ErrInvalidInput,
				"normalization config missing keyword list for resolution category %q", cat)
		}
	}
	return nil
}

// KeywordsFor returns the keyword list of one resolution category
func (c *Config) KeywordsFor(cat lead.ResolutionCategory) []string {
	return c.ResolutionKeywords[cat.String()]
}

// IsLeakageColumn reports whether a canonical column is outcome leakage
func (c *Config) IsLeakageColumn(name string) bool {
	for _, col := range c.LeakageColumns {
		if col == name {
			return true
		}
	}
	return false
}
