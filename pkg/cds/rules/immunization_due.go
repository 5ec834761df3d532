package rules

import (
	"time"

	"github.com/tribal-ehr/hl7engine/pkg/cds"
)

const cvx = "http://hl7.org/fhir/sid/cvx"

// vaccineSchedule is one knowledge-table row: a CVX-coded vaccine and the
// age band (in months) during which it is due.
type vaccineSchedule struct {
	vaccine    knowledgeEntry
	minAgeMo   int
	maxAgeMo   int
	display    string
}

var immunizationTable = []vaccineSchedule{
	{
		vaccine:  knowledgeEntry{system: cvx, code: "08", keywords: []string{"hepatitis b", "hep b"}},
		minAgeMo: 0,
		maxAgeMo: 2,
		display:  "Hepatitis B vaccine",
	},
	{
		vaccine:  knowledgeEntry{system: cvx, code: "20", keywords: []string{"dtap"}},
		minAgeMo: 2,
		maxAgeMo: 18,
		display:  "DTaP vaccine",
	},
	{
		vaccine:  knowledgeEntry{system: cvx, code: "03", keywords: []string{"mmr"}},
		minAgeMo: 12,
		maxAgeMo: 15,
		display:  "MMR vaccine",
	},
	{
		vaccine:  knowledgeEntry{system: cvx, code: "140", keywords: []string{"influenza", "flu shot"}},
		minAgeMo: 6,
		maxAgeMo: 1200,
		display:  "Seasonal influenza vaccine",
	},
}

// ImmunizationDue surfaces scheduling reminders for age-appropriate
// vaccines the patient has not yet received (patient-view).
type ImmunizationDue struct {
	// now is overridden in tests to avoid depending on the real clock.
	now func() time.Time
}

// NewImmunizationDue creates an ImmunizationDue handler.
func NewImmunizationDue() *ImmunizationDue {
	return &ImmunizationDue{now: time.Now}
}

// Descriptor implements cds.HookHandler.
func (ImmunizationDue) Descriptor() cds.ServiceDescriptor {
	return cds.ServiceDescriptor{
		ID:          "immunization-due",
		Hook:        "patient-view",
		Title:       "Immunization Due",
		Description: "Reminds the clinician of age-appropriate vaccines the patient has not yet received.",
	}
}

// Invoke implements cds.HookHandler.
func (h ImmunizationDue) Invoke(req cds.Request) (cds.Response, error) {
	birthDate := req.Prefetch.GetPath("patient", "birthDate").String()
	if birthDate == "" {
		birthDate = req.Context.GetPath("patient", "birthDate").String()
	}
	if birthDate == "" {
		return cds.Response{}, nil
	}

	dob, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return cds.Response{}, nil
	}

	clock := h.now
	if clock == nil {
		clock = time.Now
	}
	ageMonths := monthsBetween(dob, clock())

	given := bundleResources(req.Prefetch.Get("immunizations"))

	var cards []cds.Card
	for _, row := range immunizationTable {
		if ageMonths < row.minAgeMo || ageMonths > row.maxAgeMo {
			continue
		}

		received := false
		for _, imm := range given {
			if classify(imm.Get("vaccineCode"), row.vaccine) {
				received = true
				break
			}
		}
		if received {
			continue
		}

		cards = append(cards, cds.Card{
			Summary:   row.display + " is due",
			Detail:    "Patient is within the recommended age window and has no recorded dose on file.",
			Indicator: cds.IndicatorInfo,
			Source:    cds.Source{Label: "Immunization Due"},
			Suggestions: []cds.Suggestion{
				{Label: "Schedule " + row.display},
			},
			OverrideReasons: []cds.OverrideReason{
				{Code: "patient-declined", Display: "Patient or guardian declined"},
				{Code: "contraindicated", Display: "Medically contraindicated at this time"},
			},
		})
	}

	return cds.Response{Cards: cards}, nil
}

func monthsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	months := int(to.Month()) - int(from.Month())
	total := years*12 + months
	if to.Day() < from.Day() {
		total--
	}
	if total < 0 {
		return 0
	}
	return total
}
