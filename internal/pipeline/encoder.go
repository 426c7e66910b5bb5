package pipeline

import (
	"encoding/json"
	"os"

	"leadscore/internal/domain/lead"
	"leadscore/internal/metrics"
	"leadscore/pkg/errors"
	"leadscore/pkg/logger"
)

// EncoderManifest is the persisted encoding scheme exported at training
// time. FeatureOrder pins the column order the model was fitted on and
// Classes holds, per categorical feature, the fitted class labels in
// code order (index == integer code).
type EncoderManifest struct {
	Version      string              `json:"version"`
	FeatureOrder []string            `json:"feature_order"`
	Classes      map[string][]string `json:"classes"`
}

// LoadEncoderManifest reads and validates the manifest at path. The
// feature order is checked against the fixed model contract so a stale
// or reordered artifact fails at startup, not at scoring time.
func LoadEncoderManifest(path string) (*EncoderManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrArtifactNotFound, "encoder manifest %s", path)
		}
		return nil, errors.Wrap(err, "failed to read encoder manifest")
	}

	var m EncoderManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse encoder manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest against the model's feature contract
func (m *EncoderManifest) Validate() error {
	want := lead.FeatureColumns()
	if len(m.FeatureOrder) != len(want) {
		return errors.Wrapf(errors.ErrArtifactMismatch,
			"manifest has %d features, model contract has %d", len(m.FeatureOrder), len(want))
	}
	for i, name := range want {
		if m.FeatureOrder[i] != name {
			return errors.Wrapf(errors.ErrArtifactMismatch,
				"feature %d: manifest has %q, model contract has %q", i, m.FeatureOrder[i], name)
		}
	}

	for _, feat := range lead.CategoricalFeatures() {
		classes, ok := m.Classes[feat]
		if !ok || len(classes) == 0 {
			return errors.Wrapf(errors.ErrArtifactMismatch, "no fitted classes for feature %q", feat)
		}
	}

	// Stray entries with empty class lists would break code assignment
	for feat, classes := range m.Classes {
		if len(classes) == 0 {
			return errors.Wrapf(errors.ErrArtifactMismatch, "empty class list for feature %q", feat)
		}
	}
	return nil
}

// CategoricalEncoder replaces categorical feature values with the integer
// codes of a previously fitted encoding scheme. It never refits: codes
// come from the manifest so they always match what the model saw in
// training.
type CategoricalEncoder struct {
	codes map[string]map[string]int // feature -> class -> code
	first map[string]string         // feature -> class at code 0
	log   *logger.Logger
}

// NewCategoricalEncoder builds an encoder from a validated manifest
func NewCategoricalEncoder(m *EncoderManifest, log *logger.Logger) *CategoricalEncoder {
	codes := make(map[string]map[string]int, len(m.Classes))
	first := make(map[string]string, len(m.Classes))
	for feat, classes := range m.Classes {
		byClass := make(map[string]int, len(classes))
		for i, class := range classes {
			byClass[class] = i
		}
		codes[feat] = byClass
		first[feat] = classes[0]
	}
	return &CategoricalEncoder{codes: codes, first: first, log: log}
}

// Encode converts one feature vector into its encoded form. A value the
// encoder was never fitted on gets the code of the first fitted class
// rather than failing the batch; every such fallback is counted and
// logged. Returns the encoded vector and the number of fallback
// substitutions it took.
func (e *CategoricalEncoder) Encode(v *lead.FeatureVector) (lead.EncodedVector, int) {
	enc := lead.EncodedVector{
		PhoneCalls:          v.PhoneCalls,
		DialerCalls:         v.DialerCalls,
		DaysUnderManagement: v.DaysUnderManagement,
		CallRatio:           v.CallRatio,
		HighCallActivity:    v.HighCallActivity,
		RecentLead:          v.RecentLead,
		StaleLead:           v.StaleLead,
		HasEmail:            v.HasEmail,
		WhatsAppInbound:     v.WhatsAppInbound,
	}

	unseen := 0
	enc.InstitutionCode = e.encode(lead.FeatInstitution, v.Institution, &unseen)
	enc.ProgramCategoryCode = e.encode(lead.FeatProgramCategory, v.ProgramCategory, &unseen)
	enc.DatabaseCategoryCode = e.encode(lead.FeatDatabaseCategory, v.DatabaseCategory, &unseen)
	enc.UTMSourceCategoryCode = e.encode(lead.FeatUTMSource, v.UTMSourceCategory, &unseen)
	enc.UTMMediumCategoryCode = e.encode(lead.FeatUTMMedium, v.UTMMediumCategory, &unseen)

	return enc, unseen
}

func (e *CategoricalEncoder) encode(feature, value string, unseen *int) int {
	code, ok := e.codes[feature][value]
	if ok {
		return code
	}

	*unseen++
	metrics.UnseenCategories.WithLabelValues(feature).Inc()
	e.log.Warnw("Unseen category, falling back to first fitted class",
		"feature", feature,
		"value", value,
		"fallback", e.first[feature],
	)
	return 0
}

// Decode returns the fitted class label for a code, for reporting. An
// out-of-range code returns the empty string.
func (e *CategoricalEncoder) Decode(feature string, code int) string {
	for class, c := range e.codes[feature] {
		if c == code {
			return class
		}
	}
	return ""
}

// Classes returns the fitted class labels of a feature in code order
func (e *CategoricalEncoder) Classes(feature string) []string {
	byClass := e.codes[feature]
	out := make([]string, len(byClass))
	for class, code := range byClass {
		out[code] = class
	}
	return out
}
