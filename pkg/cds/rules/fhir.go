package rules

import "github.com/tribal-ehr/hl7engine/pkg/cds"

// bundleResources returns the "resource" value of every entry in a
// FHIR-Bundle-shaped value: {entry: [{resource: {...}}, ...]}. Malformed or
// absent shapes yield an empty slice.
func bundleResources(bundle cds.Value) []cds.Value {
	var out []cds.Value
	for _, entry := range bundle.Get("entry").Items() {
		if res := entry.Get("resource"); !res.IsZero() {
			out = append(out, res)
		}
	}
	return out
}
