package rules

import "github.com/tribal-ehr/hl7engine/pkg/cds"

// allergenClass is one knowledge-table row mapping a medication class to
// the allergy entries it should be checked against.
type allergenClass struct {
	medication knowledgeEntry
	allergen   knowledgeEntry
}

var allergyTable = []allergenClass{
	{
		medication: knowledgeEntry{system: rxnorm, code: "7980", keywords: []string{"penicillin", "amoxicillin", "ampicillin"}},
		allergen:   knowledgeEntry{keywords: []string{"penicillin", "penicillin class"}},
	},
	{
		medication: knowledgeEntry{system: rxnorm, code: "2670", keywords: []string{"codeine", "morphine", "oxycodone"}},
		allergen:   knowledgeEntry{keywords: []string{"opioid", "opiate"}},
	},
}

// AllergyCheck cross-references a proposed medication against the
// patient's active allergy list. It is registered for the order-select
// hook only.
type AllergyCheck struct{}

// NewAllergyCheck creates an AllergyCheck handler.
func NewAllergyCheck() *AllergyCheck {
	return &AllergyCheck{}
}

// Descriptor implements cds.HookHandler.
func (AllergyCheck) Descriptor() cds.ServiceDescriptor {
	return cds.ServiceDescriptor{
		ID:          "allergy-check",
		Hook:        "order-select",
		Title:       "Allergy Check",
		Description: "Flags a proposed medication against the patient's recorded allergies.",
	}
}

// Invoke implements cds.HookHandler.
func (AllergyCheck) Invoke(req cds.Request) (cds.Response, error) {
	proposed := firstNonZero(
		req.Context.GetPath("medications", "proposed"),
		req.Context.Get("medications"),
	)
	if proposed.IsZero() {
		return cds.Response{}, nil
	}

	allergies := firstNonZeroArray(
		asMedicationList(req.Prefetch.Get("allergies")),
		asMedicationList(req.Context.Get("allergies")),
	)
	if len(allergies) == 0 {
		return cds.Response{}, nil
	}

	var cards []cds.Card
	for _, row := range allergyTable {
		if !classify(proposed, row.medication) {
			continue
		}
		for _, allergy := range allergies {
			if !classify(allergy, row.allergen) {
				continue
			}
			cards = append(cards, cds.Card{
				Summary:   "Patient has a recorded allergy matching this order",
				Detail:    "The proposed medication falls in a class the patient is recorded as allergic to.",
				Indicator: cds.IndicatorCritical,
				Source:    cds.Source{Label: "Allergy Check"},
				Suggestions: []cds.Suggestion{
					{Label: "Cancel order"},
				},
				OverrideReasons: []cds.OverrideReason{
					{Code: "no-reaction-history", Display: "Patient has tolerated this class previously"},
					{Code: "clinician-reviewed", Display: "Reviewed and accepted by prescriber"},
				},
			})
			break
		}
	}

	return cds.Response{Cards: cards}, nil
}
