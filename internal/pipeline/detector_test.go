package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadscore/internal/domain/lead"
	"leadscore/internal/normalize"
)

func batchOf(columns []string, rows ...map[string]string) *lead.RawBatch {
	records := make([]lead.RawRecord, len(rows))
	for i, row := range rows {
		records[i] = lead.RawRecord(row)
	}
	return &lead.RawBatch{Columns: columns, Records: records}
}

func TestDetector_SegmentTokens(t *testing.T) {
	d := NewDetector(normalize.Default())

	b := batchOf(
		[]string{"Idcontacto", "Base de datos"},
		map[string]string{"Idcontacto": "1", "Base de datos": "UNAB Pregrado 2024"},
		map[string]string{"Idcontacto": "2", "Base de datos": "unab consolidado"},
	)

	det := d.Detect(b)
	assert.Equal(t, lead.Institution("UNAB"), det.Institution)
	assert.Equal(t, lead.ConfidenceHigh, det.Confidence)
	assert.Equal(t, "segment", det.Method)
}

func TestDetector_SegmentTokensOnCanonicalHeader(t *testing.T) {
	d := NewDetector(normalize.Default())

	// Detection must also work on a batch that was already normalized
	b := batchOf(
		[]string{"contact_id", "database"},
		map[string]string{"contact_id": "1", "database": "Base Anahuac 103"},
	)

	det := d.Detect(b)
	assert.Equal(t, lead.Institution("Anahuac"), det.Institution)
	assert.Equal(t, "segment", det.Method)
}

func TestDetector_SignatureColumns(t *testing.T) {
	d := NewDetector(normalize.Default())

	b := batchOf(
		[]string{"Idcontacto", "Nombre Operador"},
		map[string]string{"Idcontacto": "1", "Nombre Operador": "Maria"},
	)

	det := d.Detect(b)
	assert.Equal(t, lead.Institution("UEES"), det.Institution)
	assert.Equal(t, lead.ConfidenceHigh, det.Confidence)
	assert.Equal(t, "signature", det.Method)
}

func TestDetector_ProgramVocabulary(t *testing.T) {
	d := NewDetector(normalize.Default())

	b := batchOf(
		[]string{"Idcontacto", "Programa interes"},
		map[string]string{"Idcontacto": "1", "Programa interes": "Diplomado en Neurociencia aplicada"},
	)

	det := d.Detect(b)
	assert.Equal(t, lead.Institution("Crexe"), det.Institution)
	assert.Equal(t, "program", det.Method)
}

func TestDetector_SegmentBeatsSignature(t *testing.T) {
	d := NewDetector(normalize.Default())

	// Crexe signature column present, but the segment labels say UNAB.
	// Segment tokens run first and win.
	b := batchOf(
		[]string{"Idcontacto", "Base de datos", "CHKENTRANTEWHATSAPP"},
		map[string]string{"Idcontacto": "1", "Base de datos": "UNAB 2024", "CHKENTRANTEWHATSAPP": "si"},
	)

	det := d.Detect(b)
	assert.Equal(t, lead.Institution("UNAB"), det.Institution)
	assert.Equal(t, "segment", det.Method)
}

func TestDetector_VolumeFallback(t *testing.T) {
	d := NewDetector(normalize.Default())

	// No distinguishing columns at all: record count decides, at low
	// confidence. Three records land in the smallest bucket.
	b := batchOf(
		[]string{"Idcontacto"},
		map[string]string{"Idcontacto": "1"},
		map[string]string{"Idcontacto": "2"},
		map[string]string{"Idcontacto": "3"},
	)

	det := d.Detect(b)
	assert.Equal(t, lead.Institution("Unisangil"), det.Institution)
	assert.Equal(t, lead.ConfidenceLow, det.Confidence)
	assert.Equal(t, "volume", det.Method)
}

func TestDetector_VolumeThresholdsAreExclusive(t *testing.T) {
	d := NewDetector(normalize.Default())

	// A batch of exactly 5000 records is not "over 5000": it falls to
	// the catch-all bucket, one more record crosses into UNAB's.
	atThreshold := make([]lead.RawRecord, 5000)
	for i := range atThreshold {
		atThreshold[i] = lead.RawRecord{"Idcontacto": "1"}
	}
	b := &lead.RawBatch{Columns: []string{"Idcontacto"}, Records: atThreshold}
	assert.Equal(t, lead.Institution("Unisangil"), d.Detect(b).Institution)

	b.Records = append(b.Records, lead.RawRecord{"Idcontacto": "1"})
	assert.Equal(t, lead.Institution("UNAB"), d.Detect(b).Institution)

	single := batchOf([]string{"Idcontacto"}, map[string]string{"Idcontacto": "1"})
	assert.Equal(t, lead.Institution("Unisangil"), d.Detect(single).Institution)
}

func TestDetector_EmptyBatchIsUnknown(t *testing.T) {
	d := NewDetector(normalize.Default())

	det := d.Detect(&lead.RawBatch{Columns: []string{"Idcontacto"}})
	assert.Equal(t, lead.InstitutionUnknown, det.Institution)
	assert.Equal(t, lead.ConfidenceLow, det.Confidence)
	assert.Equal(t, "none", det.Method)
	assert.False(t, det.Institution.Known())
}
