package lead

// Institution identifies which source organization produced an export.
// The set of known institutions is configuration data, not code; apart
// from the unknown sentinel the pipeline treats tags as opaque.
type Institution string

// InstitutionUnknown is returned when no detection rule matched,
// which only happens for an empty batch.
const InstitutionUnknown Institution = "unknown"

// String returns string representation
func (i Institution) String() string {
	return string(i)
}

// Known reports whether detection produced a real tag
func (i Institution) Known() bool {
	return i != "" && i != InstitutionUnknown
}

// Confidence qualifies how an institution tag was detected. The volume
// fallback is explicitly low confidence since two institutions can
// produce similarly sized batches.
type Confidence string

const (
	ConfidenceHigh Confidence = "high" // segment tokens, signature columns, program vocabulary
	ConfidenceLow  Confidence = "low"  // record-count bucket fallback
)

// String returns string representation
func (c Confidence) String() string {
	return string(c)
}
