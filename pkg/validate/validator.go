// Package validate implements rule-driven structural and field-format
// verification of parsed HL7v2 messages.
package validate

import (
	"regexp"
	"sync"

	"github.com/tribal-ehr/hl7engine/pkg/hl7"
)

// Severity classifies a ValidationError.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationError is a single validation finding.
type ValidationError struct {
	Segment  string
	Field    int // 0 for segment-level findings
	Code     string
	Message  string
	Severity Severity
}

// ValidationResult is the outcome of validating one message.
type ValidationResult struct {
	Errors []ValidationError
}

// Valid reports whether the result contains no error-severity entries.
func (r ValidationResult) Valid() bool {
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			return false
		}
	}
	return true
}

// CustomRule is a caller-registered check applied to every occurrence of a
// given segment, after the built-in universal, message-type, and
// field-format rules.
type CustomRule func(seg hl7.Segment) []ValidationError

var dateTimePattern = regexp.MustCompile(`^\d{8}(\d{4}(\d{2}(\.\d{1,4})?)?)?([+-]\d{4})?$`)

var (
	processingIDPattern = regexp.MustCompile(`^[PDT]$`)
	patientClassPattern = regexp.MustCompile(`^[IOEPBRNU]$`)
	sexPattern          = regexp.MustCompile(`^[MFOUANC]$`)
)

var validOBXValueTypes = map[string]struct{}{
	"NM": {}, "ST": {}, "TX": {}, "CE": {}, "CF": {}, "CK": {}, "CN": {}, "CP": {},
	"CX": {}, "DT": {}, "ED": {}, "FT": {}, "ID": {}, "MO": {}, "PN": {}, "RP": {},
	"SN": {}, "TM": {}, "TN": {}, "TS": {}, "AD": {}, "XAD": {}, "XCN": {}, "XON": {},
	"XPN": {}, "XTN": {},
}

// Validator applies the three-layer validation described in spec §4.3:
// universal invariants, message-type required-segment lists, and
// field-format warnings, followed by any registered custom rules.
type Validator struct {
	mu               sync.RWMutex
	requiredSegments map[string][]string
	customRules      map[string][]CustomRule
}

// New creates a Validator preloaded with the standard required-segment
// table (spec §6).
func New() *Validator {
	v := &Validator{
		requiredSegments: defaultRequiredSegments(),
		customRules:      make(map[string][]CustomRule),
	}
	return v
}

// RegisterRule adds a custom rule applied to every segment named
// segmentName after the built-in rules run.
func (v *Validator) RegisterRule(segmentName string, rule CustomRule) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.customRules[segmentName] = append(v.customRules[segmentName], rule)
}

// SetRequiredSegments overrides (or adds) the required-segment list for a
// "TYPE^TRIGGER" key.
func (v *Validator) SetRequiredSegments(messageTypeTrigger string, segments []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requiredSegments[messageTypeTrigger] = segments
}

// Validate runs every layer of validation against msg and returns the
// accumulated findings. It never panics and never short-circuits: all
// applicable rules run regardless of earlier findings, except that an
// unknown message type skips the required-segment layer (spec §4.3).
func (v *Validator) Validate(msg *hl7.Message) ValidationResult {
	var errs []ValidationError

	errs = append(errs, v.universalInvariants(msg)...)
	errs = append(errs, v.messageTypeRequirements(msg)...)
	errs = append(errs, v.fieldFormatWarnings(msg)...)
	errs = append(errs, v.customChecks(msg)...)

	return ValidationResult{Errors: errs}
}

func (v *Validator) universalInvariants(msg *hl7.Message) []ValidationError {
	var errs []ValidationError

	msh, ok := msg.FindSegment("MSH")
	if !ok {
		return append(errs, ValidationError{
			Code: "MISSING_MSH", Message: "message has no MSH segment", Severity: SeverityError,
		})
	}

	for field, name := range map[int]string{9: "MSH-9", 10: "MSH-10", 11: "MSH-11", 12: "MSH-12"} {
		if hl7.FieldValue(msh, field) == "" {
			errs = append(errs, ValidationError{
				Segment: "MSH", Field: field, Code: "MISSING_REQUIRED_FIELD",
				Message: name + " must not be empty", Severity: SeverityError,
			})
		}
	}

	if pid, ok := msg.FindSegment("PID"); ok {
		if hl7.FieldValue(pid, 3) == "" {
			errs = append(errs, ValidationError{
				Segment: "PID", Field: 3, Code: "MISSING_REQUIRED_FIELD",
				Message: "PID-3 must not be empty", Severity: SeverityError,
			})
		}
		if hl7.FieldValue(pid, 5) == "" {
			errs = append(errs, ValidationError{
				Segment: "PID", Field: 5, Code: "MISSING_REQUIRED_FIELD",
				Message: "PID-5 must not be empty", Severity: SeverityError,
			})
		}
	}

	return errs
}

func (v *Validator) messageTypeRequirements(msg *hl7.Message) []ValidationError {
	// ACK messages echo whatever trigger the original message carried, so
	// their required-segment rule is keyed on the message code alone.
	key := msg.Header.MessageCode + "^" + msg.Header.TriggerEvent
	if msg.Header.MessageCode == "ACK" {
		key = "ACK^"
	}

	v.mu.RLock()
	required, known := v.requiredSegments[key]
	v.mu.RUnlock()

	if !known {
		return []ValidationError{{
			Code: "UNKNOWN_MESSAGE_TYPE", Message: "no required-segment rule for " + key,
			Severity: SeverityWarning,
		}}
	}

	var errs []ValidationError
	for _, segName := range required {
		if _, ok := msg.FindSegment(segName); !ok {
			errs = append(errs, ValidationError{
				Segment: segName, Code: "MISSING_REQUIRED_SEGMENT",
				Message: segName + " is required for " + key, Severity: SeverityError,
			})
		}
	}
	return errs
}

func (v *Validator) fieldFormatWarnings(msg *hl7.Message) []ValidationError {
	var errs []ValidationError

	warn := func(segment string, field int, code, message string) {
		errs = append(errs, ValidationError{
			Segment: segment, Field: field, Code: code, Message: message, Severity: SeverityWarning,
		})
	}

	if msh, ok := msg.FindSegment("MSH"); ok {
		if v := hl7.FieldValue(msh, 7); v != "" && !dateTimePattern.MatchString(v) {
			warn("MSH", 7, "INVALID_FORMAT", "MSH-7 does not match the HL7 timestamp pattern")
		}
		if v := hl7.FieldValue(msh, 11); v != "" && !processingIDPattern.MatchString(v) {
			warn("MSH", 11, "INVALID_FORMAT", "MSH-11 must be one of P, D, T")
		}
	}

	if pid, ok := msg.FindSegment("PID"); ok {
		if v := hl7.FieldValue(pid, 7); v != "" && !dateTimePattern.MatchString(v) {
			warn("PID", 7, "INVALID_FORMAT", "PID-7 does not match the HL7 timestamp pattern")
		}
		if v := hl7.FieldValue(pid, 8); v != "" && !sexPattern.MatchString(v) {
			warn("PID", 8, "INVALID_FORMAT", "PID-8 must be one of M, F, O, U, A, N, C")
		}
	}

	if pv1, ok := msg.FindSegment("PV1"); ok {
		if v := hl7.FieldValue(pv1, 2); v != "" && !patientClassPattern.MatchString(v) {
			warn("PV1", 2, "INVALID_FORMAT", "PV1-2 must be one of I, O, E, P, B, R, N, U")
		}
	}

	for _, obx := range msg.FindSegments("OBX") {
		vt := hl7.FieldValue(obx, 2)
		if vt == "" {
			continue
		}
		if _, ok := validOBXValueTypes[vt]; !ok {
			warn("OBX", 2, "INVALID_FORMAT", "OBX-2 "+vt+" is not a recognized HL7 value type")
		}
	}

	return errs
}

func (v *Validator) customChecks(msg *hl7.Message) []ValidationError {
	v.mu.RLock()
	rules := make(map[string][]CustomRule, len(v.customRules))
	for k, r := range v.customRules {
		rules[k] = append([]CustomRule(nil), r...)
	}
	v.mu.RUnlock()

	var errs []ValidationError
	for segName, segRules := range rules {
		for _, seg := range msg.FindSegments(segName) {
			for _, rule := range segRules {
				errs = append(errs, rule(seg)...)
			}
		}
	}
	return errs
}

// defaultRequiredSegments builds the static "TYPE^TRIGGER" -> required
// segments table.
func defaultRequiredSegments() map[string][]string {
	table := map[string][]string{}

	adt := []string{"MSH", "EVN", "PID", "PV1"}
	for _, trigger := range []string{"A01", "A02", "A03", "A04", "A08", "A11", "A13"} {
		table["ADT^"+trigger] = adt
	}

	table["ORM^O01"] = []string{"MSH", "PID", "ORC", "OBR"}
	table["ORU^R01"] = []string{"MSH", "PID", "OBR", "OBX"}
	table["OML^O21"] = []string{"MSH", "PID", "ORC", "OBR"}
	table["VXU^V04"] = []string{"MSH", "PID", "RXA", "ORC"}
	table["RDE^O11"] = []string{"MSH", "PID", "ORC", "RXE"}

	for _, trigger := range []string{"S12", "S13", "S14", "S15", "S26"} {
		table["SIU^"+trigger] = []string{"MSH", "SCH", "PID"}
	}

	table["MDM^T02"] = []string{"MSH", "EVN", "PID", "TXA"}
	table["ACK^"] = []string{"MSH", "MSA"}

	return table
}
