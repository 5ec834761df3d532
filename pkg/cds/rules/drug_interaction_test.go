package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tribal-ehr/hl7engine/pkg/cds"
)

func TestDrugInteraction_FlagsWarfarinAndIbuprofen(t *testing.T) {
	req := cds.Request{
		Hook: "order-select",
		Context: cds.NewValue(map[string]interface{}{
			"medications": map[string]interface{}{
				"proposed": map[string]interface{}{"text": "Ibuprofen 400mg"},
				"active":   map[string]interface{}{"text": "Warfarin 5mg"},
			},
		}),
	}

	resp, err := NewDrugInteraction().Invoke(req)
	require.NoError(t, err)
	require.Len(t, resp.Cards, 1)

	card := resp.Cards[0]
	require.Equal(t, cds.IndicatorCritical, card.Indicator)
	require.Contains(t, card.Summary, "Warfarin")
	require.Contains(t, card.Summary, "NSAID")
	require.Contains(t, card.Detail, "bleeding")
	require.Len(t, card.Suggestions, 1)
	require.Equal(t, "Cancel order", card.Suggestions[0].Label)
	require.NotEmpty(t, card.OverrideReasons)
}

func TestDrugInteraction_NoInteractionYieldsNoCards(t *testing.T) {
	req := cds.Request{
		Hook: "order-select",
		Context: cds.NewValue(map[string]interface{}{
			"medications": map[string]interface{}{
				"proposed": map[string]interface{}{"text": "Acetaminophen 500mg"},
				"active":   map[string]interface{}{"text": "Lisinopril 10mg"},
			},
		}),
	}

	resp, err := NewDrugInteraction().Invoke(req)
	require.NoError(t, err)
	require.Empty(t, resp.Cards)
}

func TestDrugInteraction_MissingProposedYieldsNoCards(t *testing.T) {
	resp, err := NewDrugInteraction().Invoke(cds.Request{Hook: "order-select"})
	require.NoError(t, err)
	require.Empty(t, resp.Cards)
}

func TestDrugInteraction_MatchesByCodedRxNormBeforeKeyword(t *testing.T) {
	req := cds.Request{
		Hook: "order-select",
		Context: cds.NewValue(map[string]interface{}{
			"medications": map[string]interface{}{
				"proposed": map[string]interface{}{
					"coding": []interface{}{
						map[string]interface{}{"system": rxnorm, "code": "5640", "display": "Ibuprofen"},
					},
				},
				"active": map[string]interface{}{
					"coding": []interface{}{
						map[string]interface{}{"system": rxnorm, "code": "11289", "display": "Warfarin"},
					},
				},
			},
		}),
	}

	resp, err := NewDrugInteraction().Invoke(req)
	require.NoError(t, err)
	require.Len(t, resp.Cards, 1)
}
