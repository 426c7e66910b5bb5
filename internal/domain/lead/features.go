package lead

// Categorical feature names, as they appear in the encoder manifest
const (
	FeatInstitution      = "institution"
	FeatProgramCategory  = "program_category"
	FeatDatabaseCategory = "database_category"
	FeatUTMSource        = "utm_source_category"
	FeatUTMMedium        = "utm_medium_category"
)

// FeatureColumns returns the exact column order the classifier was
// fitted on. This order is part of the artifact contract: the encoder
// manifest is validated against it at load time so a silently reordered
// matrix can never reach the model.
func FeatureColumns() []string {
	return []string{
		FeatInstitution,
		"phone_calls",
		"dialer_calls",
		"days_under_management",
		"call_ratio",
		"high_call_activity",
		"recent_lead",
		"stale_lead",
		"has_email",
		"whatsapp_inbound",
		FeatProgramCategory,
		FeatDatabaseCategory,
		FeatUTMSource,
		FeatUTMMedium,
	}
}

// CategoricalFeatures returns the subset of FeatureColumns that carry
// string values and need fitted integer codes before scoring.
func CategoricalFeatures() []string {
	return []string{
		FeatInstitution,
		FeatProgramCategory,
		FeatDatabaseCategory,
		FeatUTMSource,
		FeatUTMMedium,
	}
}

// FeatureVector is the fixed set of engineered features derived from one
// canonical lead. Created once per scoring or training pass and immutable
// afterwards.
type FeatureVector struct {
	Institution string

	PhoneCalls  int
	DialerCalls int

	// DaysUnderManagement is floor days between insert and last update,
	// clamped to zero; unparseable timestamps count as zero.
	DaysUnderManagement int

	// CallRatio divides PhoneCalls by max(DaysUnderManagement, 1).
	// The floored denominator is deliberate smoothing for same-day leads.
	CallRatio float64

	HighCallActivity int // 1 when PhoneCalls > 5
	RecentLead       int // 1 when under management < 7 days
	StaleLead        int // 1 when under management > 30 days
	HasEmail         int // 1 when email passes the structural check
	WhatsAppInbound  int // 1 when the inbound WhatsApp sentinel is set

	ProgramCategory   string
	DatabaseCategory  string
	UTMSourceCategory string
	UTMMediumCategory string
}

// Categorical returns the vector's categorical values keyed by feature name
func (v *FeatureVector) Categorical() map[string]string {
	return map[string]string{
		FeatInstitution:      v.Institution,
		FeatProgramCategory:  v.ProgramCategory,
		FeatDatabaseCategory: v.DatabaseCategory,
		FeatUTMSource:        v.UTMSourceCategory,
		FeatUTMMedium:        v.UTMMediumCategory,
	}
}

// EncodedVector is a FeatureVector with its categorical values replaced
// by the integer codes of a previously fitted encoding scheme.
type EncodedVector struct {
	InstitutionCode int

	PhoneCalls          int
	DialerCalls         int
	DaysUnderManagement int
	CallRatio           float64
	HighCallActivity    int
	RecentLead          int
	StaleLead           int
	HasEmail            int
	WhatsAppInbound     int

	ProgramCategoryCode   int
	DatabaseCategoryCode  int
	UTMSourceCategoryCode int
	UTMMediumCategoryCode int
}

// ToFeatureVector converts the encoded vector to a float64 slice for
// model input. Order must match FeatureColumns exactly.
func (v *EncodedVector) ToFeatureVector() []float64 {
	return []float64{
		float64(v.InstitutionCode),
		float64(v.PhoneCalls),
		float64(v.DialerCalls),
		float64(v.DaysUnderManagement),
		v.CallRatio,
		float64(v.HighCallActivity),
		float64(v.RecentLead),
		float64(v.StaleLead),
		float64(v.HasEmail),
		float64(v.WhatsAppInbound),
		float64(v.ProgramCategoryCode),
		float64(v.DatabaseCategoryCode),
		float64(v.UTMSourceCategoryCode),
		float64(v.UTMMediumCategoryCode),
	}
}
