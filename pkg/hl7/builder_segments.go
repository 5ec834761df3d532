package hl7

// Name is a composite person-name value (family, given, middle).
type Name struct {
	Family string
	Given  string
	Middle string
}

// Address is a composite address value.
type Address struct {
	Street  string
	City    string
	State   string
	Zip     string
	Country string
}

// PatientIdentifier is a composite patient-identifier value
// (ID^checkdigit^checkdigitscheme^assigningAuthority^identifierTypeCode).
type PatientIdentifier struct {
	ID               string
	AssigningAuthority string
	TypeCode         string
}

// CodedValue is a composite coded value (identifier^text^codingSystem).
type CodedValue struct {
	Identifier   string
	Text         string
	CodingSystem string
}

// PIDInput supplies the fields of a PID (Patient Identification) segment.
type PIDInput struct {
	SetID      string
	Identifier PatientIdentifier
	Name       Name
	DOB        string // YYYYMMDD
	Sex        string
	Address    Address
	PhoneHome  string
}

// AddPID appends a PID segment populated from in.
func (b *Builder) AddPID(in PIDInput) *Builder {
	idx := len(b.segments)
	b.AddSegment("PID")
	b.SetField(idx, 1, in.SetID)
	b.SetField(idx, 3, b.composite(in.Identifier.ID, "", "", in.Identifier.AssigningAuthority, in.Identifier.TypeCode))
	b.SetField(idx, 5, b.composite(in.Name.Family, in.Name.Given, in.Name.Middle))
	b.SetField(idx, 7, in.DOB)
	b.SetField(idx, 8, in.Sex)
	b.SetField(idx, 11, b.composite(in.Address.Street, in.Address.City, in.Address.State, in.Address.Zip, in.Address.Country))
	b.SetField(idx, 13, in.PhoneHome)
	return b
}

// PV1Input supplies the fields of a PV1 (Patient Visit) segment.
type PV1Input struct {
	SetID            string
	PatientClass     string // I|O|E|P|B|R|N|U
	AssignedLocation string // point-of-care^room^bed
	AttendingDoctor  string
}

// AddPV1 appends a PV1 segment populated from in.
func (b *Builder) AddPV1(in PV1Input) *Builder {
	idx := len(b.segments)
	b.AddSegment("PV1")
	b.SetField(idx, 1, in.SetID)
	b.SetField(idx, 2, in.PatientClass)
	b.SetField(idx, 3, in.AssignedLocation)
	b.SetField(idx, 7, in.AttendingDoctor)
	return b
}

// EVNInput supplies the fields of an EVN (Event Type) segment.
type EVNInput struct {
	EventTypeCode  string
	RecordedDateTime string
}

// AddEVN appends an EVN segment populated from in.
func (b *Builder) AddEVN(in EVNInput) *Builder {
	idx := len(b.segments)
	b.AddSegment("EVN")
	b.SetField(idx, 1, in.EventTypeCode)
	b.SetField(idx, 2, in.RecordedDateTime)
	return b
}

// OBRInput supplies the fields of an OBR (Observation Request) segment.
type OBRInput struct {
	SetID                string
	PlacerOrderNumber    string
	FillerOrderNumber    string
	UniversalServiceID   CodedValue
	ObservationDateTime  string
}

// AddOBR appends an OBR segment populated from in.
func (b *Builder) AddOBR(in OBRInput) *Builder {
	idx := len(b.segments)
	b.AddSegment("OBR")
	b.SetField(idx, 1, in.SetID)
	b.SetField(idx, 2, in.PlacerOrderNumber)
	b.SetField(idx, 3, in.FillerOrderNumber)
	b.SetField(idx, 4, b.composite(in.UniversalServiceID.Identifier, in.UniversalServiceID.Text, in.UniversalServiceID.CodingSystem))
	b.SetField(idx, 7, in.ObservationDateTime)
	return b
}

// OBXInput supplies the fields of an OBX (Observation Result) segment.
type OBXInput struct {
	SetID             string
	ValueType         string
	ObservationID     CodedValue
	ObservationValue  string
	Units             string
	ReferenceRange    string
	AbnormalFlags     string
	ResultStatus      string
}

// AddOBX appends an OBX segment populated from in.
func (b *Builder) AddOBX(in OBXInput) *Builder {
	idx := len(b.segments)
	b.AddSegment("OBX")
	b.SetField(idx, 1, in.SetID)
	b.SetField(idx, 2, in.ValueType)
	b.SetField(idx, 3, b.composite(in.ObservationID.Identifier, in.ObservationID.Text, in.ObservationID.CodingSystem))
	b.SetField(idx, 5, in.ObservationValue)
	b.SetField(idx, 6, in.Units)
	b.SetField(idx, 7, in.ReferenceRange)
	b.SetField(idx, 8, in.AbnormalFlags)
	b.SetField(idx, 11, in.ResultStatus)
	return b
}

// AL1Input supplies the fields of an AL1 (Allergy Information) segment.
type AL1Input struct {
	SetID            string
	AllergenTypeCode string
	AllergenCode     CodedValue
	SeverityCode     string
	ReactionCode     string
}

// AddAL1 appends an AL1 segment populated from in.
func (b *Builder) AddAL1(in AL1Input) *Builder {
	idx := len(b.segments)
	b.AddSegment("AL1")
	b.SetField(idx, 1, in.SetID)
	b.SetField(idx, 2, in.AllergenTypeCode)
	b.SetField(idx, 3, b.composite(in.AllergenCode.Identifier, in.AllergenCode.Text, in.AllergenCode.CodingSystem))
	b.SetField(idx, 4, in.SeverityCode)
	b.SetField(idx, 5, in.ReactionCode)
	return b
}

// DG1Input supplies the fields of a DG1 (Diagnosis) segment.
type DG1Input struct {
	SetID             string
	CodingMethod      string
	DiagnosisCode     CodedValue
	DiagnosisDateTime string
	DiagnosisType     string
}

// AddDG1 appends a DG1 segment populated from in.
func (b *Builder) AddDG1(in DG1Input) *Builder {
	idx := len(b.segments)
	b.AddSegment("DG1")
	b.SetField(idx, 1, in.SetID)
	b.SetField(idx, 2, in.CodingMethod)
	b.SetField(idx, 3, b.composite(in.DiagnosisCode.Identifier, in.DiagnosisCode.Text, in.DiagnosisCode.CodingSystem))
	b.SetField(idx, 5, in.DiagnosisDateTime)
	b.SetField(idx, 6, in.DiagnosisType)
	return b
}

// RXEInput supplies the fields of an RXE (Pharmacy/Treatment Encoded Order)
// segment.
type RXEInput struct {
	QuantityTiming   string
	GiveCode         CodedValue
	GiveAmountMin    string
	GiveAmountMax    string
	GiveUnits        string
	GiveDosageForm   string
	AdminInstructions string
}

// AddRXE appends an RXE segment populated from in.
func (b *Builder) AddRXE(in RXEInput) *Builder {
	idx := len(b.segments)
	b.AddSegment("RXE")
	b.SetField(idx, 1, in.QuantityTiming)
	b.SetField(idx, 2, b.composite(in.GiveCode.Identifier, in.GiveCode.Text, in.GiveCode.CodingSystem))
	b.SetField(idx, 3, in.GiveAmountMin)
	b.SetField(idx, 4, in.GiveAmountMax)
	b.SetField(idx, 5, in.GiveUnits)
	b.SetField(idx, 6, in.GiveDosageForm)
	b.SetField(idx, 7, in.AdminInstructions)
	return b
}

// IN1Input supplies the fields of an IN1 (Insurance) segment.
type IN1Input struct {
	SetID               string
	InsurancePlanID     CodedValue
	InsuranceCompanyID  string
	InsuranceCompanyName string
	InsuranceCompanyAddress Address
}

// AddIN1 appends an IN1 segment populated from in.
func (b *Builder) AddIN1(in IN1Input) *Builder {
	idx := len(b.segments)
	b.AddSegment("IN1")
	b.SetField(idx, 1, in.SetID)
	b.SetField(idx, 2, b.composite(in.InsurancePlanID.Identifier, in.InsurancePlanID.Text, in.InsurancePlanID.CodingSystem))
	b.SetField(idx, 3, in.InsuranceCompanyID)
	b.SetField(idx, 4, in.InsuranceCompanyName)
	b.SetField(idx, 5, b.composite(in.InsuranceCompanyAddress.Street, in.InsuranceCompanyAddress.City, in.InsuranceCompanyAddress.State, in.InsuranceCompanyAddress.Zip, in.InsuranceCompanyAddress.Country))
	return b
}

// NK1Input supplies the fields of an NK1 (Next of Kin) segment.
type NK1Input struct {
	SetID        string
	Name         Name
	Relationship string
	Address      Address
	PhoneNumber  string
}

// AddNK1 appends an NK1 segment populated from in.
func (b *Builder) AddNK1(in NK1Input) *Builder {
	idx := len(b.segments)
	b.AddSegment("NK1")
	b.SetField(idx, 1, in.SetID)
	b.SetField(idx, 2, b.composite(in.Name.Family, in.Name.Given, in.Name.Middle))
	b.SetField(idx, 3, in.Relationship)
	b.SetField(idx, 4, b.composite(in.Address.Street, in.Address.City, in.Address.State, in.Address.Zip, in.Address.Country))
	b.SetField(idx, 5, in.PhoneNumber)
	return b
}

// SCHInput supplies the fields of an SCH (Scheduling Activity) segment.
type SCHInput struct {
	PlacerAppointmentID string
	FillerAppointmentID string
	AppointmentReason   CodedValue
	AppointmentTiming   string
}

// AddSCH appends an SCH segment populated from in.
func (b *Builder) AddSCH(in SCHInput) *Builder {
	idx := len(b.segments)
	b.AddSegment("SCH")
	b.SetField(idx, 1, in.PlacerAppointmentID)
	b.SetField(idx, 2, in.FillerAppointmentID)
	b.SetField(idx, 7, b.composite(in.AppointmentReason.Identifier, in.AppointmentReason.Text, in.AppointmentReason.CodingSystem))
	b.SetField(idx, 11, in.AppointmentTiming)
	return b
}
