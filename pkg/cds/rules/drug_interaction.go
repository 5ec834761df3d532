package rules

import (
	"github.com/tribal-ehr/hl7engine/pkg/cds"
)

// interactionPair is one knowledge-table row: two knowledgeEntry classes
// that interact, plus the clinical detail to surface when both are present.
type interactionPair struct {
	a, b      knowledgeEntry
	severity  cds.Indicator
	summary   string
	detail    string
}

// rxnorm is the coding system URI the drug-interaction and allergy tables
// key their coded entries on.
const rxnorm = "http://www.nlm.nih.gov/research/umls/rxnorm"

var interactionTable = []interactionPair{
	{
		a:        knowledgeEntry{system: rxnorm, code: "11289", keywords: []string{"warfarin", "coumadin"}},
		b:        knowledgeEntry{system: rxnorm, code: "5640", keywords: []string{"ibuprofen", "naproxen", "nsaid"}},
		severity: cds.IndicatorCritical,
		summary:  "Warfarin + NSAID: major bleeding risk",
		detail:   "Concurrent warfarin and an NSAID significantly increases the risk of gastrointestinal bleeding. Consider an alternative analgesic or intensified INR monitoring.",
	},
	{
		a:        knowledgeEntry{system: rxnorm, code: "6809", keywords: []string{"metformin"}},
		b:        knowledgeEntry{system: rxnorm, code: "40048", keywords: []string{"iodinated contrast", "contrast media"}},
		severity: cds.IndicatorWarning,
		summary:  "Metformin + iodinated contrast: lactic acidosis risk",
		detail:   "Iodinated contrast media can impair renal clearance of metformin. Consider holding metformin around the imaging study.",
	},
}

// DrugInteraction flags clinically significant interactions between a
// proposed medication order and the patient's active medication list
// (order-select).
type DrugInteraction struct{}

// NewDrugInteraction creates a DrugInteraction handler.
func NewDrugInteraction() *DrugInteraction {
	return &DrugInteraction{}
}

// Descriptor implements cds.HookHandler.
func (DrugInteraction) Descriptor() cds.ServiceDescriptor {
	return cds.ServiceDescriptor{
		ID:          "drug-interaction",
		Hook:        "order-select",
		Title:       "Drug Interaction Check",
		Description: "Flags clinically significant interactions between a proposed order and active medications.",
	}
}

// Invoke implements cds.HookHandler.
func (d DrugInteraction) Invoke(req cds.Request) (cds.Response, error) {
	proposed := firstNonZero(
		req.Context.GetPath("medications", "proposed"),
		req.Context.Get("medications"),
	)
	if proposed.IsZero() {
		return cds.Response{}, nil
	}

	active := firstNonZeroArray(
		asMedicationList(req.Prefetch.GetPath("medications", "active")),
		asMedicationList(req.Context.GetPath("medications", "active")),
	)

	var cards []cds.Card
	for _, pair := range interactionTable {
		var matchedA, matchedB bool
		if classify(proposed, pair.a) {
			matchedA = true
		}
		if classify(proposed, pair.b) {
			matchedB = true
		}
		for _, med := range active {
			if classify(med, pair.a) {
				matchedA = true
			}
			if classify(med, pair.b) {
				matchedB = true
			}
		}

		if matchedA && matchedB {
			cards = append(cards, cds.Card{
				Summary:   pair.summary,
				Detail:    pair.detail,
				Indicator: pair.severity,
				Source:    cds.Source{Label: "Drug Interaction Check"},
				Suggestions: []cds.Suggestion{
					{Label: "Cancel order"},
				},
				OverrideReasons: []cds.OverrideReason{
					{Code: "clinician-reviewed", Display: "Reviewed and accepted by prescriber"},
				},
			})
		}
	}

	return cds.Response{Cards: cards}, nil
}

func firstNonZero(values ...cds.Value) cds.Value {
	for _, v := range values {
		if !v.IsZero() {
			return v
		}
	}
	return cds.Value{}
}

func firstNonZeroArray(arrays ...[]cds.Value) []cds.Value {
	for _, a := range arrays {
		if len(a) > 0 {
			return a
		}
	}
	return nil
}

// asMedicationList normalizes a context/prefetch node that may be either a
// single medication entry (e.g. {text: "Warfarin 5mg"}) or an array of
// them into a uniform slice.
func asMedicationList(v cds.Value) []cds.Value {
	if items := v.Items(); len(items) > 0 {
		return items
	}
	if v.IsZero() {
		return nil
	}
	return []cds.Value{v}
}
