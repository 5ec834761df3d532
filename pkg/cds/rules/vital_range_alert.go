package rules

import (
	"fmt"
	"time"

	"github.com/tribal-ehr/hl7engine/pkg/cds"
)

const loinc = "http://loinc.org"

// vitalRange is one knowledge-table row: a LOINC-coded vital sign and its
// age-banded (in years) reference range.
type vitalRange struct {
	vital     knowledgeEntry
	minAgeYr  int
	maxAgeYr  int
	low, high float64
	unit      string
	display   string
}

var vitalRangeTable = []vitalRange{
	{
		vital:    knowledgeEntry{system: loinc, code: "8480-6", keywords: []string{"systolic blood pressure", "systolic bp"}},
		minAgeYr: 18, maxAgeYr: 200,
		low: 90, high: 140, unit: "mmHg",
		display: "Systolic blood pressure",
	},
	{
		vital:    knowledgeEntry{system: loinc, code: "8867-4", keywords: []string{"heart rate", "pulse"}},
		minAgeYr: 18, maxAgeYr: 200,
		low: 60, high: 100, unit: "/min",
		display: "Heart rate",
	},
	{
		vital:    knowledgeEntry{system: loinc, code: "9279-1", keywords: []string{"respiratory rate"}},
		minAgeYr: 18, maxAgeYr: 200,
		low: 12, high: 20, unit: "/min",
		display: "Respiratory rate",
	},
	{
		vital:    knowledgeEntry{system: loinc, code: "8310-5", keywords: []string{"body temperature"}},
		minAgeYr: 0, maxAgeYr: 200,
		low: 36.1, high: 37.8, unit: "Cel",
		display: "Body temperature",
	},
}

// VitalRangeAlert flags out-of-range vital sign observations against
// age-banded reference ranges (patient-view).
type VitalRangeAlert struct {
	now func() time.Time
}

// NewVitalRangeAlert creates a VitalRangeAlert handler.
func NewVitalRangeAlert() *VitalRangeAlert {
	return &VitalRangeAlert{now: time.Now}
}

// Descriptor implements cds.HookHandler.
func (VitalRangeAlert) Descriptor() cds.ServiceDescriptor {
	return cds.ServiceDescriptor{
		ID:          "vital-range-alert",
		Hook:        "patient-view",
		Title:       "Vital Sign Range Alert",
		Description: "Flags vital sign observations outside the age-banded reference range.",
	}
}

// Invoke implements cds.HookHandler.
func (h VitalRangeAlert) Invoke(req cds.Request) (cds.Response, error) {
	ageYears := 0
	if birthDate := req.Prefetch.GetPath("patient", "birthDate").String(); birthDate != "" {
		if dob, err := time.Parse("2006-01-02", birthDate); err == nil {
			clock := h.now
			if clock == nil {
				clock = time.Now
			}
			ageYears = monthsBetween(dob, clock()) / 12
		}
	}

	observations := bundleResources(req.Prefetch.Get("observations"))
	if len(observations) == 0 {
		return cds.Response{}, nil
	}

	var cards []cds.Card
	for _, obs := range observations {
		code := obs.Get("code")

		for _, row := range vitalRangeTable {
			if ageYears < row.minAgeYr || ageYears > row.maxAgeYr {
				continue
			}
			if !classify(code, row.vital) {
				continue
			}

			v, ok := obs.GetPath("valueQuantity", "value").Float64()
			if !ok {
				continue
			}
			if v >= row.low && v <= row.high {
				continue
			}

			cards = append(cards, cds.Card{
				Summary:   fmt.Sprintf("%s out of range: %.1f %s", row.display, v, row.unit),
				Detail:    fmt.Sprintf("Reference range for this patient's age band is %.1f-%.1f %s.", row.low, row.high, row.unit),
				Indicator: cds.IndicatorWarning,
				Source:    cds.Source{Label: "Vital Sign Range Alert"},
				OverrideReasons: []cds.OverrideReason{
					{Code: "clinician-reviewed", Display: "Reviewed and accepted by clinician"},
				},
			})
		}
	}

	return cds.Response{Cards: cards}, nil
}
