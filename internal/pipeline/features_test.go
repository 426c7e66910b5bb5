package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"leadscore/internal/domain/lead"
	"leadscore/internal/normalize"
)

func TestFeatureEngine_Derive(t *testing.T) {
	fe := NewFeatureEngine(normalize.Default())

	inserted := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l := &lead.Lead{
		Institution: "UNAB",
		PhoneCalls:  8,
		DialerCalls: 2,
		InsertedAt:  inserted,
		UpdatedAt:   inserted.AddDate(0, 0, 10),
		Email:       "ana@example.com",
		EmailValid:  true,
		Program:     "MAESTRÍA EN ADMINISTRACIÓN",
		Database:    "UNAB Posgrado Consolidado",
		UTMSource:   "facebook",
		UTMMedium:   "paid_social",
	}

	v := fe.Derive(l)

	assert.Equal(t, "UNAB", v.Institution)
	assert.Equal(t, 8, v.PhoneCalls)
	assert.Equal(t, 10, v.DaysUnderManagement)
	assert.InDelta(t, 0.8, v.CallRatio, 1e-9)
	assert.Equal(t, 1, v.HighCallActivity)
	assert.Equal(t, 0, v.RecentLead)
	assert.Equal(t, 0, v.StaleLead)
	assert.Equal(t, 1, v.HasEmail)
	assert.Equal(t, 0, v.WhatsAppInbound)
	assert.Equal(t, "MASTERS", v.ProgramCategory)
	assert.Equal(t, "GRADUATE", v.DatabaseCategory)
	assert.Equal(t, "facebook", v.UTMSourceCategory)
	assert.Equal(t, "paid", v.UTMMediumCategory)
}

func TestFeatureEngine_DaysUnderManagement(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		insertedAt time.Time
		updatedAt  time.Time
		want       int
	}{
		{"normal", base, base.AddDate(0, 0, 5), 5},
		{"partial day floors", base, base.Add(36 * time.Hour), 1},
		{"negative clamps to zero", base, base.AddDate(0, 0, -3), 0},
		{"missing inserted", time.Time{}, base, 0},
		{"missing updated", base, time.Time{}, 0},
		{"same instant", base, base, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, daysUnderManagement(tc.insertedAt, tc.updatedAt))
		})
	}
}

func TestFeatureEngine_CallRatioDenominatorFloor(t *testing.T) {
	fe := NewFeatureEngine(normalize.Default())

	// Same-day lead: zero days under management, ratio keeps the raw
	// call count instead of dividing by zero.
	l := &lead.Lead{PhoneCalls: 4}
	v := fe.Derive(l)
	assert.Equal(t, 0, v.DaysUnderManagement)
	assert.InDelta(t, 4.0, v.CallRatio, 1e-9)
}

func TestFeatureEngine_ActivityAndRecencyBoundaries(t *testing.T) {
	fe := NewFeatureEngine(normalize.Default())
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	withDays := func(calls, days int) lead.FeatureVector {
		return fe.Derive(&lead.Lead{
			PhoneCalls: calls,
			InsertedAt: base,
			UpdatedAt:  base.AddDate(0, 0, days),
		})
	}

	// High activity is strictly more than 5 calls
	assert.Equal(t, 0, withDays(5, 10).HighCallActivity)
	assert.Equal(t, 1, withDays(6, 10).HighCallActivity)

	// Recent is strictly under 7 days, stale strictly over 30; the
	// 7-30 band sets neither flag
	assert.Equal(t, 1, withDays(0, 6).RecentLead)
	assert.Equal(t, 0, withDays(0, 7).RecentLead)
	assert.Equal(t, 0, withDays(0, 30).StaleLead)
	assert.Equal(t, 1, withDays(0, 31).StaleLead)

	mid := withDays(0, 15)
	assert.Equal(t, 0, mid.RecentLead)
	assert.Equal(t, 0, mid.StaleLead)
}

func TestFeatureEngine_CategorizeProgram(t *testing.T) {
	fe := NewFeatureEngine(normalize.Default())

	cases := []struct {
		in   string
		want string
	}{
		{"MAESTRÍA EN DERECHO", "MASTERS"}, // rule order: masters before law
		{"LICENCIATURA EN DERECHO", "LAW"},
		{"Ingeniería en Sistemas", "ENGINEERING"},
		{"Especialización en Farmacia", "SPECIALIZATION"},
		{"NO ESPECIFICADO", CategoryNotSpecified},
		{"nan", CategoryNotSpecified},
		{"", CategoryNotSpecified},
		{"Curso de Gastronomía", CategoryOther},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, fe.CategorizeProgram(tc.in), "input %q", tc.in)
	}
}

func TestFeatureEngine_CategorizeDatabase(t *testing.T) {
	fe := NewFeatureEngine(normalize.Default())

	cases := []struct {
		in   string
		want string
	}{
		{"Pregrado 2024", "UNDERGRADUATE"},
		{"POSTGRADO LETO", "GRADUATE"}, // level name outranks the LETO tag
		{"LETO marzo", "LETO"},
		{"Base de prueba", "TEST_BASE"},
		{"RMK enero", "REMARKETING"},
		{"Base 103", "PRIMARY_BASE"},
		{"Base 24", "SECONDARY_BASE"},
		{"", CategoryNotSpecified},
		{"Campaña especial", CategoryOther},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, fe.CategorizeDatabase(tc.in), "input %q", tc.in)
	}
}

func TestFeatureEngine_CategorizeUTM(t *testing.T) {
	fe := NewFeatureEngine(normalize.Default())

	assert.Equal(t, "google", fe.CategorizeUTMSource("Google Ads"))
	assert.Equal(t, "facebook", fe.CategorizeUTMSource("fb_campaign"))
	assert.Equal(t, UTMNotAvailable, fe.CategorizeUTMSource("no_disponible"))
	assert.Equal(t, UTMNotAvailable, fe.CategorizeUTMSource(""))
	assert.Equal(t, UTMOther, fe.CategorizeUTMSource("periodico local"))

	assert.Equal(t, "cpc", fe.CategorizeUTMMedium("CPC"))
	assert.Equal(t, "paid", fe.CategorizeUTMMedium("paid_social")) // paid rule runs first
	assert.Equal(t, UTMNotAvailable, fe.CategorizeUTMMedium("nan"))
	assert.Equal(t, UTMOther, fe.CategorizeUTMMedium("volante"))

	// "test" is a placeholder medium but a real (if unrecognized) source
	assert.Equal(t, UTMNotAvailable, fe.CategorizeUTMMedium("test"))
	assert.Equal(t, UTMNotAvailable, fe.CategorizeUTMMedium(" TEST "))
	assert.Equal(t, UTMOther, fe.CategorizeUTMSource("test"))
}
