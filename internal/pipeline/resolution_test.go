package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadscore/internal/domain/lead"
	"leadscore/internal/normalize"
)

func TestResolutionClassifier_Categorize(t *testing.T) {
	rc := NewResolutionClassifier(normalize.Default())

	cases := []struct {
		text string
		want lead.ResolutionCategory
	}{
		{"Matriculado", lead.ResolutionSuccess},
		{"ADMITIDO - pendiente de documentos", lead.ResolutionSuccess},
		{"En proceso de pago", lead.ResolutionInProgress},
		{"Inscripto en otra universidad", lead.ResolutionEnrolledElsewhere},
		{"No contesta", lead.ResolutionNoContact},
		{"buzon de voz", lead.ResolutionNoContact},
		{"Telefono erroneo", lead.ResolutionPhoneIssue},
		{"Dejo de responder whatsapp", lead.ResolutionWhatsAppIssue},
		{"Le parece caro", lead.ResolutionNotInterested},
		{"Duplicado", lead.ResolutionRejectedOther},
		{"Se brinda informacion", lead.ResolutionInformational},
		{"", lead.ResolutionUnknown},
		{"algo totalmente nuevo", lead.ResolutionUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, rc.Categorize(tc.text))
		})
	}
}

func TestResolutionClassifier_OrderDecidesAmbiguousText(t *testing.T) {
	rc := NewResolutionClassifier(normalize.Default())

	// "dejo de responder whatsapp" matches both the whatsapp-issue list
	// and the generic "dejo de responder" catch-all. The specific
	// category is evaluated first and must win.
	got := rc.Categorize("cliente dejo de responder whatsapp tras propuesta")
	assert.Equal(t, lead.ResolutionWhatsAppIssue, got)

	// Without the whatsapp qualifier the catch-all applies
	got = rc.Categorize("cliente dejo de responder")
	assert.Equal(t, lead.ResolutionRejectedOther, got)
}

func TestResolutionClassifier_Binary(t *testing.T) {
	rc := NewResolutionClassifier(normalize.Default())

	assert.Equal(t, 1, rc.Binary(lead.ResolutionSuccess))
	assert.Equal(t, 0, rc.Binary(lead.ResolutionInProgress))
	assert.Equal(t, 0, rc.Binary(lead.ResolutionNotInterested))
	// Unknown is never counted as a conversion
	assert.Equal(t, 0, rc.Binary(lead.ResolutionUnknown))
}

func TestResolutionClassifier_CategorizeBatch(t *testing.T) {
	rc := NewResolutionClassifier(normalize.Default())

	leads := []lead.Lead{
		{ContactID: 1, Resolution: "Matriculado"},
		{ContactID: 2, Resolution: "categoria inventada"},
		{ContactID: 3, Resolution: "categoria inventada"},
		{ContactID: 4, Resolution: ""}, // still in progress, not drift
		{ContactID: 5, Resolution: "otra cosa rara"},
	}

	categories, report := rc.CategorizeBatch(leads, "UNAB")

	assert.Equal(t, lead.ResolutionSuccess, categories[1])
	assert.Equal(t, lead.ResolutionUnknown, categories[2])
	assert.Equal(t, lead.ResolutionUnknown, categories[4])

	assert.Equal(t, 3, report.Total)
	assert.Len(t, report.Distinct, 2)

	// Sample orders by frequency, then lexically
	sample := report.Sample(5)
	assert.Equal(t, []string{"categoria inventada", "otra cosa rara"}, sample)
}

func TestUnknownReport_SampleBounds(t *testing.T) {
	r := &UnknownReport{Distinct: map[string]int{"a": 1, "b": 2}}

	assert.Len(t, r.Sample(1), 1)
	assert.Len(t, r.Sample(10), 2)
	assert.Equal(t, "b", r.Sample(1)[0])
}
