package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tribal-ehr/hl7engine/pkg/cds"
)

func observationBundle(code knowledgeEntry, value float64) map[string]interface{} {
	return map[string]interface{}{
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{
					"code": map[string]interface{}{
						"coding": []interface{}{
							map[string]interface{}{"system": code.system, "code": code.code},
						},
					},
					"valueQuantity": map[string]interface{}{"value": value},
				},
			},
		},
	}
}

func TestVitalRangeAlert_FlagsOutOfRangeSystolicBP(t *testing.T) {
	h := NewVitalRangeAlert()
	h.now = fixedNow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	req := cds.Request{
		Hook: "patient-view",
		Prefetch: cds.NewValue(map[string]interface{}{
			"patient":      map[string]interface{}{"birthDate": "1980-01-01"},
			"observations": observationBundle(knowledgeEntry{system: loinc, code: "8480-6"}, 185),
		}),
	}

	resp, err := h.Invoke(req)
	require.NoError(t, err)
	require.Len(t, resp.Cards, 1)
	require.Equal(t, cds.IndicatorWarning, resp.Cards[0].Indicator)
	require.Contains(t, resp.Cards[0].Summary, "Systolic blood pressure")
	require.Contains(t, resp.Cards[0].Summary, "185.0")
}

func TestVitalRangeAlert_InRangeValueYieldsNoCards(t *testing.T) {
	h := NewVitalRangeAlert()
	h.now = fixedNow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	req := cds.Request{
		Hook: "patient-view",
		Prefetch: cds.NewValue(map[string]interface{}{
			"patient":      map[string]interface{}{"birthDate": "1980-01-01"},
			"observations": observationBundle(knowledgeEntry{system: loinc, code: "8480-6"}, 120),
		}),
	}

	resp, err := h.Invoke(req)
	require.NoError(t, err)
	require.Empty(t, resp.Cards)
}

func TestVitalRangeAlert_AgeOutsideBandSkipsCheck(t *testing.T) {
	h := NewVitalRangeAlert()
	h.now = fixedNow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	req := cds.Request{
		Hook: "patient-view",
		Prefetch: cds.NewValue(map[string]interface{}{
			// 10 years old: below the 18yr minimum for systolic BP.
			"patient":      map[string]interface{}{"birthDate": "2014-01-01"},
			"observations": observationBundle(knowledgeEntry{system: loinc, code: "8480-6"}, 185),
		}),
	}

	resp, err := h.Invoke(req)
	require.NoError(t, err)
	require.Empty(t, resp.Cards)
}

func TestVitalRangeAlert_NoObservationsYieldsNoCards(t *testing.T) {
	resp, err := NewVitalRangeAlert().Invoke(cds.Request{Hook: "patient-view"})
	require.NoError(t, err)
	require.Empty(t, resp.Cards)
}
