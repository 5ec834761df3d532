// Package rules implements a handful of knowledge-table-driven CDS Hooks
// rule handlers: drug interaction, allergy, immunization due, and vital sign
// range checks. Each is a stateless evaluator; the interesting design is the
// knowledge table layout and the matching order (spec §4.7).
package rules

import (
	"strings"

	"github.com/tribal-ehr/hl7engine/pkg/cds"
)

// knowledgeEntry is one row of a rule's curated table: a coded identity plus
// a list of keywords that match when no coded identity is present in the
// input (e.g. free-text medication orders without RxNorm codes).
type knowledgeEntry struct {
	system   string // coding system, e.g. "http://www.nlm.nih.gov/research/umls/rxnorm"
	code     string
	keywords []string
}

// classify matches a Value's codings and free text against entry's coded
// identity first (system+code, exact), then falls back to a case-
// insensitive substring match against entry's keywords. This is the
// matching-order invariant shared by every rule handler: exact code match
// before fuzzy keyword match.
func classify(v cds.Value, entry knowledgeEntry) bool {
	for _, coding := range v.Codings() {
		if entry.system != "" && coding.System == entry.system && coding.Code == entry.code {
			return true
		}
	}

	text := strings.ToLower(v.Text())
	if text == "" {
		return false
	}
	for _, kw := range entry.keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// matchAny reports whether v matches any entry in table, returning the
// first matching entry.
func matchAny(v cds.Value, table []knowledgeEntry) (knowledgeEntry, bool) {
	for _, entry := range table {
		if classify(v, entry) {
			return entry, true
		}
	}
	return knowledgeEntry{}, false
}
